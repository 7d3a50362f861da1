package linker

import "debug/elf"

// The relocation scanner. For every relocation that will reach the
// output it decides which GOT, PLT and dynamic-relocation entries to
// reserve, recording its decisions in the symbol's reservation bits.
// Scanning is idempotent: each relocation is visited once and each
// per-symbol reservation bit is checked before acting.

type pendingRel struct {
	isec   *InputSection // nil when the slot is a GOT entry
	offset uint64
	typ    uint32
	sym    *Symbol // nil for R_ARM_RELATIVE against a section location
}

func symbolPreemptible(ctx *Context, sym *Symbol) bool {
	if sym.Visibility != uint8(elf.STV_DEFAULT) {
		return false
	}
	if !ctx.Cfg.IsDynObj() {
		return false
	}
	if ctx.Cfg.Bsymbolic {
		return false
	}
	return true
}

func symbolNeedsPLT(ctx *Context, sym *Symbol) bool {
	return ctx.Cfg.IsDynObj() &&
		sym.SymType == uint8(elf.STT_FUNC) &&
		(sym.IsDyn() || sym.IsUndef() || symbolPreemptible(ctx, sym))
}

func symbolNeedsDynRel(ctx *Context, sym *Symbol, isAbsReloc bool) bool {
	if sym.IsUndef() && !ctx.Cfg.IsDynObj() {
		return false
	}
	if sym.IsAbsolute() {
		return false
	}
	if ctx.Cfg.IsDynObj() && isAbsReloc {
		return true
	}
	if sym.IsDyn() || sym.IsUndef() {
		return true
	}
	return false
}

// ensureGot makes .got part of the output and defines
// _GLOBAL_OFFSET_TABLE_ at its base.
func ensureGot(ctx *Context) {
	if ctx.Got.Required {
		return
	}
	ctx.Got.Required = true

	sym := GetSymbolByName(ctx, "_GLOBAL_OFFSET_TABLE_")
	if sym.IsUndef() {
		sym.Desc = SymDefine
		sym.SymType = uint8(elf.STT_OBJECT)
		sym.Binding = uint8(elf.STB_LOCAL)
		sym.Visibility = uint8(elf.STV_HIDDEN)
		sym.Value = 0
		sym.SetChunk(ctx.Got)
	}
}

// checkValidReloc rejects dynamic relocations the dynamic linker cannot
// process when the output is a shared object.
func checkValidReloc(ctx *Context, isec *InputSection, rel *Relocation) error {
	if !ctx.Cfg.IsDynObj() {
		return nil
	}
	switch rel.Type {
	case R_ARM_RELATIVE, R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT,
		R_ARM_ABS32, R_ARM_ABS32_NOI, R_ARM_PC24,
		R_ARM_TLS_DTPMOD32, R_ARM_TLS_DTPOFF32, R_ARM_TLS_TPOFF32:
		return nil
	}
	return errorf(ErrUnsupportedReloc,
		"%s: cannot generate dynamic relocation %s against %s; recompile with -fPIC",
		isec.File.File.Name, relTypeName(rel.Type), rel.Sym.Name)
}

func scanRelocation(ctx *Context, isec *InputSection, rel *Relocation) error {
	if rel.scanned {
		return nil
	}
	rel.scanned = true

	rsym := rel.Sym

	// A reference to _GLOBAL_OFFSET_TABLE_ implies a .got even when no
	// relocation otherwise demands one.
	if rsym.Name == "_GLOBAL_OFFSET_TABLE_" {
		ensureGot(ctx)
	}

	if rsym.IsLocal() {
		return scanLocalReloc(ctx, isec, rel)
	}
	return scanGlobalReloc(ctx, isec, rel)
}

func scanLocalReloc(ctx *Context, isec *InputSection, rel *Relocation) error {
	rsym := rel.Sym

	switch rel.Type {
	case R_ARM_ABS32, R_ARM_ABS32_NOI, R_ARM_TARGET1:
		// PIC output needs the address fixed at load time; one
		// RELATIVE entry per location.
		if ctx.Cfg.IsDynObj() {
			ctx.RelDyn.ReserveEntry()
			ctx.pendingRels = append(ctx.pendingRels, pendingRel{
				isec: isec, offset: rel.Offset, typ: R_ARM_RELATIVE,
			})
			rsym.Reserved |= ReserveRel
		}
		return nil

	case R_ARM_ABS16, R_ARM_ABS12, R_ARM_THM_ABS5, R_ARM_ABS8,
		R_ARM_BASE_ABS, R_ARM_MOVW_ABS_NC, R_ARM_MOVT_ABS,
		R_ARM_THM_MOVW_ABS_NC, R_ARM_THM_MOVT_ABS:
		if ctx.Cfg.IsDynObj() {
			if err := checkValidReloc(ctx, isec, rel); err != nil {
				return err
			}
			ctx.RelDyn.ReserveEntry()
			ctx.pendingRels = append(ctx.pendingRels, pendingRel{
				isec: isec, offset: rel.Offset, typ: R_ARM_RELATIVE,
			})
			rsym.Reserved |= ReserveRel
		}
		return nil

	case R_ARM_GOTOFF32, R_ARM_GOTOFF12:
		ensureGot(ctx)
		return nil

	case R_ARM_GOT_BREL, R_ARM_GOT_PREL:
		if rsym.Reserved&(ReserveGot|ReserveGotRel) != 0 {
			return nil
		}
		ensureGot(ctx)
		ctx.Got.ReserveEntry(rsym)
		if ctx.Cfg.IsDynObj() {
			// The GOT slot itself must be relocated at load time.
			ctx.RelDyn.ReserveEntry()
			ctx.pendingRels = append(ctx.pendingRels, pendingRel{
				offset: 0, typ: R_ARM_RELATIVE, sym: rsym,
			})
			rsym.Reserved |= ReserveGotRel
			return nil
		}
		rsym.Reserved |= ReserveGot
		return nil

	case R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT, R_ARM_RELATIVE:
		return errorf(ErrUnexpectedReloc,
			"%s: unexpected relocation %s in object file",
			isec.File.File.Name, relTypeName(rel.Type))
	}
	return nil
}

func scanGlobalReloc(ctx *Context, isec *InputSection, rel *Relocation) error {
	rsym := rel.Sym

	switch rel.Type {
	case R_ARM_ABS32, R_ARM_ABS16, R_ARM_ABS12, R_ARM_THM_ABS5,
		R_ARM_ABS8, R_ARM_BASE_ABS, R_ARM_MOVW_ABS_NC, R_ARM_MOVT_ABS,
		R_ARM_THM_MOVW_ABS_NC, R_ARM_THM_MOVT_ABS, R_ARM_ABS32_NOI,
		R_ARM_TARGET1:
		if symbolNeedsPLT(ctx, rsym) && rsym.Reserved&ReservePlt == 0 {
			ctx.Plt.ReserveEntry(ctx, rsym)
			rsym.Reserved |= ReservePlt
		}
		if symbolNeedsDynRel(ctx, rsym, true) {
			if err := checkValidReloc(ctx, isec, rel); err != nil {
				return err
			}
			ctx.RelDyn.ReserveEntry()
			pend := pendingRel{isec: isec, offset: rel.Offset}
			if symbolPreemptible(ctx, rsym) || rsym.IsDyn() || rsym.IsUndef() {
				pend.typ = R_ARM_ABS32
				pend.sym = rsym
			} else {
				pend.typ = R_ARM_RELATIVE
			}
			ctx.pendingRels = append(ctx.pendingRels, pend)
			rsym.Reserved |= ReserveRel
		}
		return nil

	case R_ARM_GOTOFF32, R_ARM_GOTOFF12:
		ensureGot(ctx)
		return nil

	case R_ARM_REL32, R_ARM_REL32_NOI, R_ARM_LDR_PC_G0, R_ARM_SBREL32,
		R_ARM_THM_PC8, R_ARM_BASE_PREL, R_ARM_MOVW_PREL_NC,
		R_ARM_MOVT_PREL, R_ARM_THM_MOVW_PREL_NC, R_ARM_THM_MOVT_PREL,
		R_ARM_THM_ALU_PREL_11_0, R_ARM_THM_PC12,
		R_ARM_ALU_PC_G0_NC, R_ARM_ALU_PC_G0, R_ARM_ALU_PC_G1_NC,
		R_ARM_ALU_PC_G1, R_ARM_ALU_PC_G2, R_ARM_LDR_PC_G1,
		R_ARM_LDR_PC_G2, R_ARM_LDRS_PC_G0, R_ARM_LDRS_PC_G1,
		R_ARM_LDRS_PC_G2, R_ARM_LDC_PC_G0, R_ARM_LDC_PC_G1,
		R_ARM_LDC_PC_G2, R_ARM_ALU_SB_G0_NC, R_ARM_ALU_SB_G0,
		R_ARM_ALU_SB_G1_NC, R_ARM_ALU_SB_G1, R_ARM_ALU_SB_G2,
		R_ARM_LDR_SB_G0, R_ARM_LDR_SB_G1, R_ARM_LDR_SB_G2,
		R_ARM_LDRS_SB_G0, R_ARM_LDRS_SB_G1, R_ARM_LDRS_SB_G2,
		R_ARM_LDC_SB_G0, R_ARM_LDC_SB_G1, R_ARM_LDC_SB_G2,
		R_ARM_MOVW_BREL_NC, R_ARM_MOVT_BREL, R_ARM_MOVW_BREL,
		R_ARM_THM_MOVW_BREL_NC, R_ARM_THM_MOVT_BREL, R_ARM_THM_MOVW_BREL:
		if symbolNeedsDynRel(ctx, rsym, false) {
			if err := checkValidReloc(ctx, isec, rel); err != nil {
				return err
			}
			ctx.RelDyn.ReserveEntry()
			ctx.pendingRels = append(ctx.pendingRels, pendingRel{
				isec: isec, offset: rel.Offset, typ: R_ARM_ABS32, sym: rsym,
			})
			rsym.Reserved |= ReserveRel
		}
		return nil

	case R_ARM_THM_CALL, R_ARM_PLT32, R_ARM_CALL, R_ARM_JUMP24,
		R_ARM_THM_JUMP24, R_ARM_SBREL31, R_ARM_PREL31,
		R_ARM_THM_JUMP19, R_ARM_THM_JUMP6, R_ARM_THM_JUMP11,
		R_ARM_THM_JUMP8:
		if rsym.Reserved&ReservePlt != 0 {
			return nil
		}
		// A call to a definition in this image that cannot be
		// preempted stays direct.
		if rsym.IsDefined() && !rsym.IsDyn() &&
			!symbolPreemptible(ctx, rsym) {
			return nil
		}
		ctx.Plt.ReserveEntry(ctx, rsym)
		rsym.Reserved |= ReservePlt
		return nil

	case R_ARM_GOT_BREL, R_ARM_GOT_ABS, R_ARM_GOT_PREL:
		if rsym.Reserved&(ReserveGot|ReserveGotRel) != 0 {
			return nil
		}
		ensureGot(ctx)
		ctx.Got.ReserveEntry(rsym)
		if ctx.Cfg.IsDynObj() || rsym.IsUndef() || rsym.IsDyn() {
			ctx.RelDyn.ReserveEntry()
			ctx.pendingRels = append(ctx.pendingRels, pendingRel{
				offset: 0, typ: R_ARM_GLOB_DAT, sym: rsym,
			})
			rsym.Reserved |= ReserveGotRel
			return nil
		}
		rsym.Reserved |= ReserveGot
		return nil

	case R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT, R_ARM_RELATIVE:
		return errorf(ErrUnexpectedReloc,
			"%s: unexpected relocation %s in object file",
			isec.File.File.Name, relTypeName(rel.Type))
	}
	return nil
}

// ScanRelocations walks every relocation of every live allocatable
// section. The JUMP_SLOT records paired with the PLT reservations are
// produced later, by FinalizeDynRels.
func ScanRelocations(ctx *Context) error {
	for _, file := range ctx.Objs {
		if err := file.ScanRelocations(ctx); err != nil {
			return err
		}
	}
	return nil
}
