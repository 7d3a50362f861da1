package linker

import (
	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// ApplyResult is what a per-type apply function reports back.
type ApplyResult uint8

const (
	ApplyOK ApplyResult = iota
	ApplyOverflow
	ApplyBadReloc
	ApplyUnsupported
)

// ApplyRelocAlloc patches every relocation of this section into base,
// the section's bytes inside the output buffer. The scratch word each
// apply function works on is host-endian throughout; target byte order
// is touched only at the pre-read (relocation construction) and at the
// write-back inside the apply function.
func (i *InputSection) ApplyRelocAlloc(ctx *Context, base []byte) error {
	rels := i.GetRels(ctx)

	for a := range rels {
		rel := &rels[a]
		if rel.Type == R_ARM_NONE || rel.Sym == nil {
			continue
		}
		sym := rel.Sym
		if rel.Offset >= uint64(len(base)) {
			return errorf(ErrRelocOverflow,
				"%s: relocation offset %#x outside section %s",
				i.File.File.Name, rel.Offset, i.Name())
		}

		loc := base[rel.Offset:]
		switch ctx.Backend.ApplyReloc(ctx, i, rel, loc) {
		case ApplyOverflow:
			return errorf(ErrRelocOverflow,
				"%s: relocation %s against %s in section %s+%#x does not fit",
				i.File.File.Name, relTypeName(rel.Type), sym.Name,
				i.Name(), rel.Offset)
		case ApplyBadReloc:
			return errorf(ErrUnexpectedReloc,
				"%s: malformed relocation %s in section %s",
				i.File.File.Name, relTypeName(rel.Type), i.Name())
		case ApplyUnsupported:
			return errorf(ErrUnsupportedReloc,
				"%s: relocation %s is not implemented",
				i.File.File.Name, relTypeName(rel.Type))
		}
	}
	return nil
}

// symValue is S for a relocation: the PLT entry for calls routed through
// the PLT, zero for symbols left to the dynamic linker, the final
// address otherwise.
func symValue(ctx *Context, sym *Symbol, branch bool) uint64 {
	if branch && sym.PltIdx >= 0 {
		return sym.PltEntryAddr(ctx)
	}
	if sym.IsDyn() || sym.IsUndef() {
		if sym.PltIdx >= 0 {
			return sym.PltEntryAddr(ctx)
		}
		return 0
	}
	return sym.GetAddr()
}

// implicitAddend decodes the addend stored in the relocated field for
// REL-style relocations. data is the host-endian pre-read scratch.
func implicitAddend(typ uint32, data uint64) int64 {
	w := uint32(data)
	switch typ {
	case R_ARM_ABS32, R_ARM_ABS32_NOI, R_ARM_REL32, R_ARM_REL32_NOI,
		R_ARM_TARGET1, R_ARM_GOTOFF32, R_ARM_BASE_PREL, R_ARM_GOT_BREL,
		R_ARM_GOT_PREL, R_ARM_SBREL32:
		return int64(int32(w))
	case R_ARM_CALL, R_ARM_JUMP24, R_ARM_PLT32, R_ARM_PC24:
		return int64(utils.SignExtend(uint64(w&0x00ffffff)<<2, 25))
	case R_ARM_THM_CALL, R_ARM_THM_JUMP24:
		return thumbBranchAddend(w)
	case R_ARM_PREL31:
		return int64(utils.SignExtend(uint64(w&0x7fffffff), 30))
	case R_ARM_MOVW_ABS_NC, R_ARM_MOVT_ABS,
		R_ARM_MOVW_PREL_NC, R_ARM_MOVT_PREL:
		imm := (w>>4)&0xf000 | w&0xfff
		return int64(utils.SignExtend(uint64(imm), 15))
	case R_ARM_ABS12:
		return int64(w & 0xfff)
	}
	return 0
}

// thumbBranchAddend decodes the immediate of a Thumb-2 BL/B.W pair. The
// scratch holds the two little-ordered halfwords as read from memory:
// first halfword in the low bits.
func thumbBranchAddend(w uint32) int64 {
	hw1 := w & 0xffff
	hw2 := w >> 16
	s := (hw1 >> 10) & 1
	j1 := (hw2 >> 13) & 1
	j2 := (hw2 >> 11) & 1
	i1 := ^(j1 ^ s) & 1
	i2 := ^(j2 ^ s) & 1
	imm := s<<24 | i1<<23 | i2<<22 | (hw1&0x3ff)<<12 | (hw2&0x7ff)<<1
	return int64(utils.SignExtend(uint64(imm), 24))
}

func encodeThumbBranch(w uint32, val uint64) uint32 {
	s := uint32(val>>24) & 1
	i1 := uint32(val>>23) & 1
	i2 := uint32(val>>22) & 1
	j1 := (^i1 ^ s) & 1
	j2 := (^i2 ^ s) & 1
	imm10 := uint32(val>>12) & 0x3ff
	imm11 := uint32(val>>1) & 0x7ff
	hw1 := w&0xf800 | s<<10 | imm10
	hw2 := (w>>16)&0xd000 | j1<<13 | j2<<11 | imm11
	return hw1 | hw2<<16
}

func encodeMovImm(w uint32, imm uint32) uint32 {
	return w&0xfff0f000 | (imm&0xf000)<<4 | imm&0xfff
}

func fitsSigned(val int64, bits int) bool {
	limit := int64(1) << (bits - 1)
	return val >= -limit && val < limit
}

// armApplyReloc computes and stores the final value for one relocation.
// S, A and P follow the ELF for ARM conventions; GOT_ORG is the base of
// .got.
func armApplyReloc(ctx *Context, isec *InputSection, rel *Relocation, loc []byte) ApplyResult {
	order := ctx.Cfg.ByteOrder()
	sym := rel.Sym

	A := rel.Addend
	if !isec.RelsecIsRela {
		A = implicitAddend(rel.Type, rel.TargetData)
	}
	P := isec.GetAddr() + rel.Offset
	w := uint32(rel.TargetData)

	branch := false
	switch rel.Type {
	case R_ARM_CALL, R_ARM_JUMP24, R_ARM_PLT32, R_ARM_PC24,
		R_ARM_THM_CALL, R_ARM_THM_JUMP24:
		branch = true
	}
	S := symValue(ctx, sym, branch)

	gotOrg := uint64(0)
	if ctx.Got != nil {
		gotOrg = ctx.Got.Shdr.Addr
	}

	switch rel.Type {
	case R_ARM_NONE:
		return ApplyOK

	case R_ARM_ABS32, R_ARM_ABS32_NOI, R_ARM_TARGET1:
		order.PutUint32(loc, uint32(S)+uint32(A))
		return ApplyOK

	case R_ARM_REL32, R_ARM_REL32_NOI:
		order.PutUint32(loc, uint32(S+uint64(A)-P))
		return ApplyOK

	case R_ARM_ABS16:
		val := int64(S) + A
		if !fitsSigned(val, 17) {
			return ApplyOverflow
		}
		order.PutUint16(loc, uint16(val))
		return ApplyOK

	case R_ARM_ABS8:
		val := int64(S) + A
		if !fitsSigned(val, 9) {
			return ApplyOverflow
		}
		loc[0] = byte(val)
		return ApplyOK

	case R_ARM_ABS12:
		val := int64(S) + A
		if val < 0 || val > 0xfff {
			return ApplyOverflow
		}
		order.PutUint32(loc, w&^uint32(0xfff)|uint32(val)&0xfff)
		return ApplyOK

	case R_ARM_BASE_PREL:
		order.PutUint32(loc, uint32(gotOrg+uint64(A)-P))
		return ApplyOK

	case R_ARM_GOTOFF32:
		order.PutUint32(loc, uint32(S+uint64(A)-gotOrg))
		return ApplyOK

	case R_ARM_GOT_BREL:
		order.PutUint32(loc, uint32(sym.GotEntryAddr(ctx)+uint64(A)-gotOrg))
		return ApplyOK

	case R_ARM_GOT_PREL:
		order.PutUint32(loc, uint32(sym.GotEntryAddr(ctx)+uint64(A)-P))
		return ApplyOK

	case R_ARM_CALL, R_ARM_JUMP24, R_ARM_PLT32, R_ARM_PC24:
		val := int64(S) + A - int64(P)
		if val < armBranchMin || val > armBranchMax {
			if stub := ctx.stubAddrFor(sym); stub != 0 {
				val = int64(stub) + A - int64(P)
			}
			if val < armBranchMin || val > armBranchMax {
				return ApplyOverflow
			}
		}
		if val&3 != 0 {
			return ApplyBadReloc
		}
		order.PutUint32(loc, w&0xff000000|uint32(val>>2)&0x00ffffff)
		return ApplyOK

	case R_ARM_THM_CALL, R_ARM_THM_JUMP24:
		val := int64(S) + A - int64(P)
		if !fitsSigned(val, 25) {
			return ApplyOverflow
		}
		order.PutUint32(loc, encodeThumbBranch(w, uint64(val)))
		return ApplyOK

	case R_ARM_PREL31:
		val := S + uint64(A) - P
		order.PutUint32(loc, w&0x80000000|uint32(val)&0x7fffffff)
		return ApplyOK

	case R_ARM_SBREL31:
		order.PutUint32(loc, w&0x80000000|uint32(S+uint64(A))&0x7fffffff)
		return ApplyOK

	case R_ARM_MOVW_ABS_NC:
		order.PutUint32(loc, encodeMovImm(w, uint32(S+uint64(A))&0xffff))
		return ApplyOK

	case R_ARM_MOVT_ABS:
		order.PutUint32(loc, encodeMovImm(w, uint32((S+uint64(A))>>16)))
		return ApplyOK

	case R_ARM_MOVW_PREL_NC:
		order.PutUint32(loc, encodeMovImm(w, uint32(S+uint64(A)-P)&0xffff))
		return ApplyOK

	case R_ARM_MOVT_PREL:
		order.PutUint32(loc, encodeMovImm(w, uint32((S+uint64(A)-P)>>16)))
		return ApplyOK

	case R_ARM_V4BX, R_ARM_SBREL32:
		// Nothing to patch for v4bx on v5+; SBREL32 without a segment
		// base behaves like ABS32.
		if rel.Type == R_ARM_SBREL32 {
			order.PutUint32(loc, uint32(S)+uint32(A))
		}
		return ApplyOK

	case R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT, R_ARM_RELATIVE:
		return ApplyBadReloc
	}
	return ApplyUnsupported
}
