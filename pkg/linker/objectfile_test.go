package linker

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/ZhangLang001/mclinker/pkg/utils"
	"github.com/stretchr/testify/assert"
)

type elfImage struct {
	buf []byte
}

func (b *elfImage) place(data []byte, align int) uint32 {
	for len(b.buf)%align != 0 {
		b.buf = append(b.buf, 0)
	}
	off := uint32(len(b.buf))
	b.buf = append(b.buf, data...)
	return off
}

func encode[T any](vals []T, size int) []byte {
	out := make([]byte, len(vals)*size)
	for i, v := range vals {
		utils.Write[T](out[i*size:], v, binary.LittleEndian)
	}
	return out
}

// buildTestObject assembles a minimal ELF32 ARM relocatable object: one
// .text section holding two words, a global foo at offset 4, and an
// R_ARM_ABS32 against foo patching offset 0.
func buildTestObject(t *testing.T) []byte {
	t.Helper()
	img := &elfImage{buf: make([]byte, EhdrSize)}

	text := make([]byte, 8)
	binary.LittleEndian.PutUint32(text[0:], 0x00000002) // addend 2
	binary.LittleEndian.PutUint32(text[4:], 0xe12fff1e) // bx lr
	textOff := img.place(text, 4)

	syms := []Sym{
		{},
		{Info: SymInfo(uint8(elf.STB_LOCAL), uint8(elf.STT_SECTION)), Shndx: 1},
		{
			Name:  1, // "foo"
			Info:  SymInfo(uint8(elf.STB_GLOBAL), uint8(elf.STT_FUNC)),
			Shndx: 1,
			Val:   4,
			Size:  4,
		},
	}
	symOff := img.place(encode(syms, SymSize), 4)

	strtab := []byte("\x00foo\x00")
	strOff := img.place(strtab, 1)

	rels := []Rel{{Offset: 0, Info: RelInfo(2, R_ARM_ABS32)}}
	relOff := img.place(encode(rels, RelSize), 4)

	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.rel.text\x00.shstrtab\x00")
	shstrOff := img.place(shstrtab, 1)

	shdrs := []Shdr{
		{},
		{
			Name: 1, Type: uint32(elf.SHT_PROGBITS),
			Flags:  uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Offset: textOff, Size: 8, AddrAlign: 4,
		},
		{
			Name: 7, Type: uint32(elf.SHT_SYMTAB),
			Offset: symOff, Size: uint32(len(syms) * SymSize),
			Link: 3, Info: 2, AddrAlign: 4, EntSize: SymSize,
		},
		{
			Name: 15, Type: uint32(elf.SHT_STRTAB),
			Offset: strOff, Size: uint32(len(strtab)), AddrAlign: 1,
		},
		{
			Name: 23, Type: uint32(elf.SHT_REL),
			Offset: relOff, Size: RelSize,
			Link: 2, Info: 1, AddrAlign: 4, EntSize: RelSize,
		},
		{
			Name: 33, Type: uint32(elf.SHT_STRTAB),
			Offset: shstrOff, Size: uint32(len(shstrtab)), AddrAlign: 1,
		},
	}
	shOff := img.place(encode(shdrs, ShdrSize), 4)

	ehdr := Ehdr{
		Type:      uint16(elf.ET_REL),
		Machine:   EM_ARM,
		Version:   uint32(elf.EV_CURRENT),
		ShOff:     shOff,
		EhSize:    EhdrSize,
		ShEntSize: ShdrSize,
		ShNum:     uint16(len(shdrs)),
		ShStrndx:  5,
	}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS32)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	utils.Write[Ehdr](img.buf, ehdr, binary.LittleEndian)
	return img.buf
}

func TestParseObjectFile(t *testing.T) {
	ctx := testContext(t, OutputExec)
	contents := buildTestObject(t)

	assert.Equal(t, InputObject, GetInputType(contents))
	assert.Equal(t, MachineTypeARM, GetMachineType(contents))

	file := &File{Name: "demo.o", Contents: contents}
	obj, err := CreateObjectFile(ctx, file, false)
	assert.NoError(t, err)

	assert.Len(t, obj.ElfSections, 6)
	assert.Len(t, obj.ElfSyms, 3)
	assert.Equal(t, 2, obj.FirstGlobal)

	isec := obj.Sections[1]
	if assert.NotNil(t, isec) {
		assert.Equal(t, ".text", isec.Name())
		assert.Equal(t, uint32(8), isec.ShSize)
		assert.Equal(t, ".text", isec.OutputSection.Name)
	}
	// Symbol table, string tables and the relocation section get no
	// input section of their own.
	assert.Nil(t, obj.Sections[2])
	assert.Nil(t, obj.Sections[4])

	obj.ResolveSymbols(ctx, true)
	foo := ctx.SymbolMap["foo"]
	if assert.NotNil(t, foo) {
		assert.Equal(t, obj, foo.File)
		assert.Equal(t, uint64(4), foo.Value)
		assert.True(t, foo.IsFunc())
	}
}

func TestParsedRelocationsCarryPrereadData(t *testing.T) {
	ctx := testContext(t, OutputExec)
	file := &File{Name: "demo.o", Contents: buildTestObject(t)}
	obj, err := CreateObjectFile(ctx, file, false)
	assert.NoError(t, err)
	obj.ResolveSymbols(ctx, true)

	isec := obj.Sections[1]
	rels := isec.GetRels(ctx)
	if assert.Len(t, rels, 1) {
		assert.Equal(t, R_ARM_ABS32, rels[0].Type)
		assert.Equal(t, ctx.SymbolMap["foo"], rels[0].Sym)
		// The word under the relocation, already host-endian.
		assert.Equal(t, uint64(2), rels[0].TargetData)
	}
}

func TestSymbolValueAfterLayout(t *testing.T) {
	ctx := testContext(t, OutputExec)
	file := &File{Name: "demo.o", Contents: buildTestObject(t)}
	obj, err := CreateObjectFile(ctx, file, false)
	assert.NoError(t, err)
	obj.ResolveSymbols(ctx, true)

	BinSections(ctx)
	ComputeSectionSizes(ctx)
	CollectChunks(ctx)
	SortOutputSections(ctx)
	AssignSectionIndices(ctx)
	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}
	SetOutputSectionOffsets(ctx)

	foo := ctx.SymbolMap["foo"]
	isec := obj.Sections[1]
	assert.Equal(t,
		isec.OutputSection.Shdr.Addr+uint64(isec.Offset)+4,
		foo.GetAddr())
}

func TestRejectsTruncatedELF(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, err := NewInputFile(ctx, &File{Name: "tiny", Contents: []byte("\177ELF")})
	if assert.Error(t, err) {
		assert.Equal(t, ErrInvalidInput, err.(*LinkError).Kind)
	}

	_, err = NewInputFile(ctx, &File{Name: "noelf", Contents: make([]byte, 64)})
	assert.Error(t, err)
}
