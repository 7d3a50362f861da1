package linker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// relocate pre-reads a relocation from the section contents, applies it
// against a scratch copy, and returns the result with the patched bytes.
func relocate(ctx *Context, isec *InputSection, typ uint32, offset uint64,
	sym *Symbol) (ApplyResult, []byte) {

	rel := ctx.Backend.RelocFactory.Produce(isec, offset, typ, 0, 0)
	rel.Sym = sym

	buf := make([]byte, len(isec.Contents))
	copy(buf, isec.Contents)
	res := ctx.Backend.ApplyReloc(ctx, isec, &rel, buf[offset:])
	return res, buf
}

func TestEndiannessRoundTrip(t *testing.T) {
	// Pre-read then write-back through an identity-valued absolute
	// relocation must reproduce the original bytes in both byte
	// orders: the swap happens exactly once each way.
	for _, little := range []bool{true, false} {
		ctx := testContext(t, OutputExec)
		ctx.Cfg.LittleEndian = little
		_, isec := testObject(ctx, "a.o", true)
		isec.OutputSection.Shdr.Addr = 0

		raw := []byte{0x12, 0x34, 0x56, 0x78}
		copy(isec.Contents, raw)

		// S = 0, so the stored value is exactly the implicit addend.
		zero := definedSym(ctx, "zero", isec, 0)
		zero.Absolute = true
		zero.SetInputSection(nil)

		res, buf := relocate(ctx, isec, R_ARM_ABS32, 0, zero)
		assert.Equal(t, ApplyOK, res)
		assert.Equal(t, raw, buf[:4], "little=%v", little)
	}
}

func TestApplyNoneLeavesBytes(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	copy(isec.Contents, []byte{0xde, 0xad, 0xbe, 0xef})
	sym := definedSym(ctx, "x", isec, 0)

	res, buf := relocate(ctx, isec, R_ARM_NONE, 0, sym)
	assert.Equal(t, ApplyOK, res)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf[:4])
}

func TestApplyAbs32AddsImplicitAddend(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0x20000

	// Addend 8 stored in the field.
	binary.LittleEndian.PutUint32(isec.Contents[0:], 8)
	sym := definedSym(ctx, "obj", isec, 0x10)

	res, buf := relocate(ctx, isec, R_ARM_ABS32, 0, sym)
	assert.Equal(t, ApplyOK, res)
	assert.Equal(t, uint32(0x20018), binary.LittleEndian.Uint32(buf[:4]))
}

func TestApplyRel32IsPCRelative(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0x10000

	sym := definedSym(ctx, "target", isec, 0x20)

	res, buf := relocate(ctx, isec, R_ARM_REL32, 4, sym)
	assert.Equal(t, ApplyOK, res)
	// S + A - P = 0x10020 + 0 - 0x10004
	assert.Equal(t, uint32(0x1c), binary.LittleEndian.Uint32(buf[4:8]))
}

func TestApplyCallEncodesBranch(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0x10000

	// bl with zero displacement field.
	binary.LittleEndian.PutUint32(isec.Contents[0:], 0xeb000000)
	sym := definedSym(ctx, "callee", isec, 0x10)

	res, buf := relocate(ctx, isec, R_ARM_CALL, 0, sym)
	assert.Equal(t, ApplyOK, res)
	insn := binary.LittleEndian.Uint32(buf[:4])
	assert.Equal(t, uint32(0xeb000000), insn&0xff000000)
	// (S + A - P) >> 2 with A = 0 from the field:
	// (0x10010 + 0 - 0x10000) >> 2, so the displacement is 0x10 >> 2.
	assert.Equal(t, uint32(0x10>>2), insn&0x00ffffff)
}

func TestApplyCallOverflows(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0x10000

	binary.LittleEndian.PutUint32(isec.Contents[0:], 0xeb000000)
	far := definedSym(ctx, "far", isec, 0)
	far.SetInputSection(nil)
	far.Absolute = true
	far.Value = 0x10000000 // > 32 MiB away

	res, _ := relocate(ctx, isec, R_ARM_CALL, 0, far)
	assert.Equal(t, ApplyOverflow, res)
}

func TestApplyMovwMovtPair(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0

	sym := definedSym(ctx, "addr", isec, 0)
	sym.SetInputSection(nil)
	sym.Absolute = true
	sym.Value = 0x12345678

	// movw r0, #0 / movt r0, #0
	binary.LittleEndian.PutUint32(isec.Contents[0:], 0xe3000000)
	binary.LittleEndian.PutUint32(isec.Contents[4:], 0xe3400000)

	res, buf := relocate(ctx, isec, R_ARM_MOVW_ABS_NC, 0, sym)
	assert.Equal(t, ApplyOK, res)
	movw := binary.LittleEndian.Uint32(buf[:4])
	assert.Equal(t, uint32(0x5), (movw>>16)&0xf)
	assert.Equal(t, uint32(0x678), movw&0xfff)

	res, buf = relocate(ctx, isec, R_ARM_MOVT_ABS, 4, sym)
	assert.Equal(t, ApplyOK, res)
	movt := binary.LittleEndian.Uint32(buf[4:8])
	assert.Equal(t, uint32(0x1), (movt>>16)&0xf)
	assert.Equal(t, uint32(0x234), movt&0xfff)
}

func TestApplyAbs16Overflow(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0

	sym := definedSym(ctx, "big", isec, 0)
	sym.SetInputSection(nil)
	sym.Absolute = true
	sym.Value = 0x20000

	res, _ := relocate(ctx, isec, R_ARM_ABS16, 0, sym)
	assert.Equal(t, ApplyOverflow, res)
}

func TestApplyGotRelative(t *testing.T) {
	ctx := testContext(t, OutputDynObj)
	_, isec := testObject(ctx, "a.o", true)
	isec.OutputSection.Shdr.Addr = 0x1000

	sym := definedSym(ctx, "x", isec, 0)
	ensureGot(ctx)
	ctx.Got.ReserveEntry(sym)
	ctx.Got.Shdr.Addr = 0x3000

	res, buf := relocate(ctx, isec, R_ARM_GOT_BREL, 0, sym)
	assert.Equal(t, ApplyOK, res)
	// GOT(S) is the first slot: offset 0 from GOT_ORG.
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[:4]))

	res, buf = relocate(ctx, isec, R_ARM_BASE_PREL, 4, sym)
	assert.Equal(t, ApplyOK, res)
	// GOT_ORG + A - P = 0x3000 - 0x1004
	assert.Equal(t, uint32(0x1ffc), binary.LittleEndian.Uint32(buf[4:8]))
}

func TestApplyDynamicOnlyIsBadReloc(t *testing.T) {
	ctx := testContext(t, OutputExec)
	_, isec := testObject(ctx, "a.o", true)
	sym := definedSym(ctx, "x", isec, 0)

	res, _ := relocate(ctx, isec, R_ARM_GLOB_DAT, 0, sym)
	assert.Equal(t, ApplyBadReloc, res)
}

func TestThumbBranchAddendRoundTrip(t *testing.T) {
	for _, disp := range []int64{0, 4, -4, 0x7fe, -0x800, 0xfffffe, -0x1000000} {
		w := encodeThumbBranch(0xf800f000, uint64(disp))
		assert.Equal(t, disp, thumbBranchAddend(w), "disp %#x", disp)
	}
}
