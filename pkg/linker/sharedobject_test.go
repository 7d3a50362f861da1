package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSharedObject(ctx *Context, soname string, symNames ...string) *SharedObject {
	so := &SharedObject{
		InputFile: InputFile{
			File:    &File{Name: soname},
			IsAlive: true,
		},
		SOName: soname,
	}
	so.FirstGlobal = 1
	so.ElfSyms = []Sym{{}}
	so.Symbols = []*Symbol{nil}
	for _, name := range symNames {
		so.ElfSyms = append(so.ElfSyms, Sym{
			Info:  SymInfo(uint8(elf.STB_GLOBAL), uint8(elf.STT_FUNC)),
			Shndx: 1,
			Val:   0x100,
		})
		so.Symbols = append(so.Symbols, GetSymbolByName(ctx, name))
	}
	ctx.Shareds = append(ctx.Shareds, so)
	return so
}

func TestSharedDefinitionSatisfiesUndefined(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "a.o", true)
	referGlobal(ctx, objA, "sin")
	so := testSharedObject(ctx, "libm.so.6", "sin")

	assert.NoError(t, ResolveSymbols(ctx))

	sin := ctx.SymbolMap["sin"]
	assert.Equal(t, so, sin.Shared)
	assert.True(t, sin.IsDyn())
	assert.True(t, sin.IsDefined())
	assert.True(t, sin.Referenced)
}

func TestSharedNeverPreemptsRegularDefinition(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "a.o", true)
	defineGlobal(ctx, objA, "sin", uint8(elf.STB_GLOBAL))
	testSharedObject(ctx, "libm.so.6", "sin")

	assert.NoError(t, ResolveSymbols(ctx))

	sin := ctx.SymbolMap["sin"]
	assert.False(t, sin.IsDyn())
	assert.Equal(t, objA, sin.File)
}

func TestAsNeededSuppressesUnreferenced(t *testing.T) {
	ctx := testContext(t, OutputExec)
	testObject(ctx, "a.o", true)
	so := testSharedObject(ctx, "libm.so.6", "sin")
	so.AsNeeded = true

	assert.NoError(t, ResolveSymbols(ctx))
	assert.False(t, so.IsNeeded(ctx))

	// A reference flips it.
	ctx2 := testContext(t, OutputExec)
	objB, _ := testObject(ctx2, "b.o", true)
	referGlobal(ctx2, objB, "sin")
	so2 := testSharedObject(ctx2, "libm.so.6", "sin")
	so2.AsNeeded = true

	assert.NoError(t, ResolveSymbols(ctx2))
	assert.True(t, so2.IsNeeded(ctx2))
}

func TestDynamicSectionEmitsNeeded(t *testing.T) {
	ctx := testContext(t, OutputDynObj)
	ctx.Cfg.SOName = "libout.so.1"
	objA, _ := testObject(ctx, "a.o", true)
	referGlobal(ctx, objA, "sin")
	so := testSharedObject(ctx, "libm.so.6", "sin")
	so.CopyNeeded = true
	so.Needed = []string{"libc.so.6"}

	assert.NoError(t, ResolveSymbols(ctx))
	ctx.Dynamic.PrepareStrings(ctx)

	es := ctx.Dynamic.entries(ctx)
	var needed []uint32
	var sawSoname, sawNull bool
	for _, d := range es {
		switch elf.DynTag(d.Tag) {
		case elf.DT_NEEDED:
			needed = append(needed, d.Val)
		case elf.DT_SONAME:
			sawSoname = true
		case elf.DT_NULL:
			sawNull = true
		}
	}
	// libm itself plus its propagated dependency.
	assert.Len(t, needed, 2)
	assert.True(t, sawSoname)
	assert.True(t, sawNull)

	ctx.Dynamic.UpdateShdr(ctx)
	assert.Equal(t, uint64(len(es)*DynSize), ctx.Dynamic.Shdr.Size)
}

func TestDynsymAddIsIdempotent(t *testing.T) {
	ctx := testContext(t, OutputDynObj)
	sym := undefSym(ctx, "sin")

	ctx.Dynsym.Add(ctx, sym)
	first := sym.DynsymIdx
	ctx.Dynsym.Add(ctx, sym)

	assert.Equal(t, first, sym.DynsymIdx)
	assert.Len(t, ctx.Dynsym.Syms, 1)
	assert.Equal(t, int32(1), first)

	ctx.Dynsym.UpdateShdr(ctx)
	assert.Equal(t, uint64(2*SymSize), ctx.Dynsym.Shdr.Size)
}

func TestElfHashMatchesReference(t *testing.T) {
	// Reference values from the System V gABI hash function.
	assert.Equal(t, uint32(0), elfHash(""))
	assert.Equal(t, uint32(0x000737fe), elfHash("main"))
	assert.Equal(t, uint32(0x077905a6), elfHash("printf"))
}
