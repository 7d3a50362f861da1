package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefinedBeatsUndefined(t *testing.T) {
	cfg := testConfig(OutputExec)
	old := NewSymbol("foo")

	inc := Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine}
	assert.Equal(t, ActionOverride, Resolve(old, inc, cfg))

	old.Desc = SymDefine
	assert.Equal(t, ActionKeepOld,
		Resolve(old, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymUndefined}, cfg))
}

func TestResolveStrongBeatsWeakEitherOrder(t *testing.T) {
	cfg := testConfig(OutputExec)

	weakFirst := NewSymbol("foo")
	weakFirst.Desc = SymDefine
	weakFirst.Binding = uint8(elf.STB_WEAK)
	assert.Equal(t, ActionOverride,
		Resolve(weakFirst, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine}, cfg))

	strongFirst := NewSymbol("bar")
	strongFirst.Desc = SymDefine
	strongFirst.Binding = uint8(elf.STB_GLOBAL)
	assert.Equal(t, ActionKeepOld,
		Resolve(strongFirst, Candidate{Bind: uint8(elf.STB_WEAK), Desc: SymDefine}, cfg))
}

func TestResolveStrongStrongConflicts(t *testing.T) {
	cfg := testConfig(OutputExec)
	old := NewSymbol("foo")
	old.Desc = SymDefine
	old.Binding = uint8(elf.STB_GLOBAL)

	inc := Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine}
	assert.Equal(t, ActionConflict, Resolve(old, inc, cfg))

	cfg.AllowMulDefs = true
	assert.Equal(t, ActionKeepOld, Resolve(old, inc, cfg))
}

func TestResolveCommonMergesLargest(t *testing.T) {
	cfg := testConfig(OutputExec)
	old := NewSymbol("blk")
	old.Desc = SymCommon
	old.Binding = uint8(elf.STB_GLOBAL)
	old.Size = 8
	old.Value = 4 // alignment

	inc := Candidate{
		Bind: uint8(elf.STB_GLOBAL), Desc: SymCommon, Size: 16, Value: 8,
	}
	assert.Equal(t, ActionMerge, Resolve(old, inc, cfg))

	mergeCommon(old, inc)
	assert.Equal(t, uint64(16), old.Size)
	assert.Equal(t, uint64(8), old.Value)

	// The smaller block does not shrink the survivor.
	mergeCommon(old, Candidate{Desc: SymCommon, Size: 4, Value: 1})
	assert.Equal(t, uint64(16), old.Size)
	assert.Equal(t, uint64(8), old.Value)
}

func TestResolveDefinitionBeatsCommon(t *testing.T) {
	cfg := testConfig(OutputExec)
	old := NewSymbol("blk")
	old.Desc = SymCommon
	old.Binding = uint8(elf.STB_GLOBAL)

	assert.Equal(t, ActionOverride,
		Resolve(old, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine}, cfg))

	def := NewSymbol("blk2")
	def.Desc = SymDefine
	def.Binding = uint8(elf.STB_GLOBAL)
	assert.Equal(t, ActionKeepOld,
		Resolve(def, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymCommon}, cfg))
}

func TestResolveSharedOnlySatisfiesUndefined(t *testing.T) {
	cfg := testConfig(OutputExec)

	undef := NewSymbol("sin")
	assert.Equal(t, ActionOverride,
		Resolve(undef, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine, Dyn: true}, cfg))

	weakDef := NewSymbol("cos")
	weakDef.Desc = SymDefine
	weakDef.Binding = uint8(elf.STB_WEAK)
	assert.Equal(t, ActionKeepOld,
		Resolve(weakDef, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine, Dyn: true}, cfg))

	// A later regular definition takes over from the shared object.
	dynDef := NewSymbol("tan")
	dynDef.Desc = SymDefine
	dynDef.Shared = &SharedObject{}
	assert.Equal(t, ActionOverride,
		Resolve(dynDef, Candidate{Bind: uint8(elf.STB_GLOBAL), Desc: SymDefine}, cfg))
}

func TestResolveSymbolsReportsMultipleDefinition(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "a.o", true)
	objB, _ := testObject(ctx, "b.o", true)
	defineGlobal(ctx, objA, "bar", uint8(elf.STB_GLOBAL))
	defineGlobal(ctx, objB, "bar", uint8(elf.STB_GLOBAL))

	err := ResolveSymbols(ctx)
	if assert.Error(t, err) {
		le := err.(*LinkError)
		assert.Equal(t, ErrMultipleDefinition, le.Kind)
		assert.Contains(t, le.Msg, "a.o")
		assert.Contains(t, le.Msg, "b.o")
	}
}

func TestResolveSymbolsMonotone(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "a.o", true)
	objB, _ := testObject(ctx, "b.o", true)
	referGlobal(ctx, objA, "foo")
	sym := defineGlobal(ctx, objB, "foo", uint8(elf.STB_GLOBAL))

	assert.NoError(t, ResolveSymbols(ctx))
	assert.Equal(t, objB, sym.File)
	assert.True(t, sym.IsDefined())

	// A weak definition arriving later never reverts the strong one.
	objC, _ := testObject(ctx, "c.o", true)
	defineGlobal(ctx, objC, "foo", uint8(elf.STB_WEAK))
	objC.ResolveSymbols(ctx, true)
	assert.Equal(t, objB, sym.File)
	assert.NoError(t, ctx.FirstError())
}

func TestArchiveMemberPulledOnce(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "main.o", true)
	member, _ := testObject(ctx, "libc.a(printf.o)", false)
	referGlobal(ctx, objA, "printf")
	printf := defineGlobal(ctx, member, "printf", uint8(elf.STB_GLOBAL))

	assert.NoError(t, ResolveSymbols(ctx))
	assert.True(t, member.IsAlive)
	assert.Equal(t, member, printf.File)
	assert.Len(t, ctx.Objs, 2)

	// Group fixed point: another liveness pass adds nothing.
	before := len(ctx.Objs)
	MarkLiveObjects(ctx)
	assert.Len(t, ctx.Objs, before)
}

func TestLazyMemberWithoutReferenceStaysOut(t *testing.T) {
	ctx := testContext(t, OutputExec)
	testObject(ctx, "main.o", true)
	member, _ := testObject(ctx, "libc.a(unused.o)", false)
	defineGlobal(ctx, member, "unused_fn", uint8(elf.STB_GLOBAL))

	assert.NoError(t, ResolveSymbols(ctx))
	assert.False(t, member.IsAlive)
	assert.Len(t, ctx.Objs, 1)
}

func TestCheckUndefinedReportsUnresolved(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "main.o", true)
	referGlobal(ctx, objA, "missing")

	assert.NoError(t, ResolveSymbols(ctx))
	err := CheckUndefined(ctx)
	if assert.Error(t, err) {
		assert.Equal(t, ErrUnresolvedSymbol, err.(*LinkError).Kind)
	}
}

func TestCheckUndefinedAllowsWeak(t *testing.T) {
	ctx := testContext(t, OutputExec)
	objA, _ := testObject(ctx, "main.o", true)
	addGlobal(ctx, objA, "maybe", Sym{
		Info:  SymInfo(uint8(elf.STB_WEAK), uint8(elf.STT_NOTYPE)),
		Shndx: uint16(elf.SHN_UNDEF),
	})

	assert.NoError(t, ResolveSymbols(ctx))
	assert.NoError(t, CheckUndefined(ctx))
}
