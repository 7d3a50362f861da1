package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputTypeProbing(t *testing.T) {
	obj := buildTestObject(t)
	assert.Equal(t, InputObject, GetInputType(obj))

	// Flip e_type to ET_DYN: same image classifies as a shared object.
	dyn := make([]byte, len(obj))
	copy(dyn, obj)
	dyn[16] = byte(elf.ET_DYN)
	dyn[17] = 0
	assert.Equal(t, InputDynObj, GetInputType(dyn))

	assert.Equal(t, InputArchive, GetInputType([]byte("!<arch>\nrest")))
	assert.Equal(t, InputScript,
		GetInputType([]byte("GROUP ( libgcc.a libc.a )\n")))
	assert.Equal(t, InputScript,
		GetInputType([]byte("/* GNU ld script */\nINPUT(libfoo.so.1)\n")))
	assert.Equal(t, InputUnknown, GetInputType([]byte("plain text here")))
}

func TestMachineTypeProbing(t *testing.T) {
	obj := buildTestObject(t)
	assert.Equal(t, MachineTypeARM, GetMachineType(obj))

	other := make([]byte, len(obj))
	copy(other, obj)
	other[18] = 0x3e // EM_X86_64
	assert.Equal(t, MachineTypeNone, GetMachineType(other))

	assert.Equal(t, MachineTypeNone, GetMachineType([]byte("!<arch>\n")))
}

func TestCheckFileCompatibility(t *testing.T) {
	cfg := testConfig(OutputExec)
	obj := buildTestObject(t)
	assert.NoError(t, CheckFileCompatibility(cfg, &File{Name: "a.o", Contents: obj}))

	other := make([]byte, len(obj))
	copy(other, obj)
	other[18] = 0x3e
	err := CheckFileCompatibility(cfg, &File{Name: "b.o", Contents: other})
	if assert.Error(t, err) {
		assert.Equal(t, ErrInvalidInput, err.(*LinkError).Kind)
	}
}
