package linker

// ARM relocation codes, ABI names. debug/elf carries the pre-EABI aliases
// for some of these, so the full set is spelled out here.
const (
	R_ARM_NONE              uint32 = 0
	R_ARM_PC24              uint32 = 1
	R_ARM_ABS32             uint32 = 2
	R_ARM_REL32             uint32 = 3
	R_ARM_LDR_PC_G0         uint32 = 4
	R_ARM_ABS16             uint32 = 5
	R_ARM_ABS12             uint32 = 6
	R_ARM_THM_ABS5          uint32 = 7
	R_ARM_ABS8              uint32 = 8
	R_ARM_SBREL32           uint32 = 9
	R_ARM_THM_CALL          uint32 = 10
	R_ARM_THM_PC8           uint32 = 11
	R_ARM_TLS_DTPMOD32      uint32 = 17
	R_ARM_TLS_DTPOFF32      uint32 = 18
	R_ARM_TLS_TPOFF32       uint32 = 19
	R_ARM_COPY              uint32 = 20
	R_ARM_GLOB_DAT          uint32 = 21
	R_ARM_JUMP_SLOT         uint32 = 22
	R_ARM_RELATIVE          uint32 = 23
	R_ARM_GOTOFF32          uint32 = 24
	R_ARM_BASE_PREL         uint32 = 25
	R_ARM_GOT_BREL          uint32 = 26
	R_ARM_PLT32             uint32 = 27
	R_ARM_CALL              uint32 = 28
	R_ARM_JUMP24            uint32 = 29
	R_ARM_THM_JUMP24        uint32 = 30
	R_ARM_BASE_ABS          uint32 = 31
	R_ARM_TARGET1           uint32 = 38
	R_ARM_SBREL31           uint32 = 39
	R_ARM_V4BX              uint32 = 40
	R_ARM_TARGET2           uint32 = 41
	R_ARM_PREL31            uint32 = 42
	R_ARM_MOVW_ABS_NC       uint32 = 43
	R_ARM_MOVT_ABS          uint32 = 44
	R_ARM_MOVW_PREL_NC      uint32 = 45
	R_ARM_MOVT_PREL         uint32 = 46
	R_ARM_THM_MOVW_ABS_NC   uint32 = 47
	R_ARM_THM_MOVT_ABS      uint32 = 48
	R_ARM_THM_MOVW_PREL_NC  uint32 = 49
	R_ARM_THM_MOVT_PREL     uint32 = 50
	R_ARM_THM_JUMP19        uint32 = 51
	R_ARM_THM_JUMP6         uint32 = 52
	R_ARM_THM_ALU_PREL_11_0 uint32 = 53
	R_ARM_THM_PC12          uint32 = 54
	R_ARM_ABS32_NOI         uint32 = 55
	R_ARM_REL32_NOI         uint32 = 56
	R_ARM_ALU_PC_G0_NC      uint32 = 57
	R_ARM_ALU_PC_G0         uint32 = 58
	R_ARM_ALU_PC_G1_NC      uint32 = 59
	R_ARM_ALU_PC_G1         uint32 = 60
	R_ARM_ALU_PC_G2         uint32 = 61
	R_ARM_LDR_PC_G1         uint32 = 62
	R_ARM_LDR_PC_G2         uint32 = 63
	R_ARM_LDRS_PC_G0        uint32 = 64
	R_ARM_LDRS_PC_G1        uint32 = 65
	R_ARM_LDRS_PC_G2        uint32 = 66
	R_ARM_LDC_PC_G0         uint32 = 67
	R_ARM_LDC_PC_G1         uint32 = 68
	R_ARM_LDC_PC_G2         uint32 = 69
	R_ARM_ALU_SB_G0_NC      uint32 = 70
	R_ARM_ALU_SB_G0         uint32 = 71
	R_ARM_ALU_SB_G1_NC      uint32 = 72
	R_ARM_ALU_SB_G1         uint32 = 73
	R_ARM_ALU_SB_G2         uint32 = 74
	R_ARM_LDR_SB_G0         uint32 = 75
	R_ARM_LDR_SB_G1         uint32 = 76
	R_ARM_LDR_SB_G2         uint32 = 77
	R_ARM_LDRS_SB_G0        uint32 = 78
	R_ARM_LDRS_SB_G1        uint32 = 79
	R_ARM_LDRS_SB_G2        uint32 = 80
	R_ARM_LDC_SB_G0         uint32 = 81
	R_ARM_LDC_SB_G1         uint32 = 82
	R_ARM_LDC_SB_G2         uint32 = 83
	R_ARM_MOVW_BREL_NC      uint32 = 84
	R_ARM_MOVT_BREL         uint32 = 85
	R_ARM_MOVW_BREL         uint32 = 86
	R_ARM_THM_MOVW_BREL_NC  uint32 = 87
	R_ARM_THM_MOVT_BREL     uint32 = 88
	R_ARM_THM_MOVW_BREL     uint32 = 89
	R_ARM_GOT_ABS           uint32 = 95
	R_ARM_GOT_PREL          uint32 = 96
	R_ARM_GOTOFF12          uint32 = 98
	R_ARM_THM_JUMP11        uint32 = 102
	R_ARM_THM_JUMP8         uint32 = 103
)

// ARM section types.
const (
	SHT_ARM_EXIDX      uint32 = 0x70000001
	SHT_ARM_ATTRIBUTES uint32 = 0x70000003
)

const EM_ARM uint16 = 40

// Branch displacement limits for ARM B/BL, signed 26-bit byte offset.
const armBranchMax = int64(1)<<25 - 1
const armBranchMin = -(int64(1) << 25)

func relTypeName(typ uint32) string {
	names := map[uint32]string{
		R_ARM_NONE: "R_ARM_NONE", R_ARM_PC24: "R_ARM_PC24",
		R_ARM_ABS32: "R_ARM_ABS32", R_ARM_REL32: "R_ARM_REL32",
		R_ARM_ABS16: "R_ARM_ABS16", R_ARM_ABS12: "R_ARM_ABS12",
		R_ARM_ABS8: "R_ARM_ABS8", R_ARM_THM_CALL: "R_ARM_THM_CALL",
		R_ARM_COPY: "R_ARM_COPY", R_ARM_GLOB_DAT: "R_ARM_GLOB_DAT",
		R_ARM_JUMP_SLOT: "R_ARM_JUMP_SLOT", R_ARM_RELATIVE: "R_ARM_RELATIVE",
		R_ARM_GOTOFF32: "R_ARM_GOTOFF32", R_ARM_BASE_PREL: "R_ARM_BASE_PREL",
		R_ARM_GOT_BREL: "R_ARM_GOT_BREL", R_ARM_PLT32: "R_ARM_PLT32",
		R_ARM_CALL: "R_ARM_CALL", R_ARM_JUMP24: "R_ARM_JUMP24",
		R_ARM_THM_JUMP24: "R_ARM_THM_JUMP24", R_ARM_PREL31: "R_ARM_PREL31",
		R_ARM_MOVW_ABS_NC: "R_ARM_MOVW_ABS_NC", R_ARM_MOVT_ABS: "R_ARM_MOVT_ABS",
		R_ARM_ABS32_NOI: "R_ARM_ABS32_NOI", R_ARM_REL32_NOI: "R_ARM_REL32_NOI",
		R_ARM_GOT_PREL: "R_ARM_GOT_PREL", R_ARM_GOTOFF12: "R_ARM_GOTOFF12",
	}
	if name, ok := names[typ]; ok {
		return name
	}
	return "R_ARM_" + itoa(typ)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
