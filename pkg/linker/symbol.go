package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// Reservation bits. The scanner records here which GOT/PLT/dynamic
// relocation entries it has already claimed for a symbol, so repeated
// scans of relocations against the same symbol stay idempotent.
const (
	ReserveRel    uint8 = 0x1
	ReserveGot    uint8 = 0x2
	ReserveGotRel uint8 = 0x4
	ReservePlt    uint8 = 0x8
)

type SymbolDesc uint8

const (
	SymUndefined SymbolDesc = iota
	SymDefine
	SymCommon
	SymIndirect
)

// Symbol is the linker-side resolution record for one name. ELF symbol
// table entries from every input resolve onto these; at most one
// definition wins per name.
//
// Exactly one of InputSection, Fragment, Chunk is non-nil for a symbol
// defined relative to some content; all three are nil for absolute and
// undefined symbols.
type Symbol struct {
	Name   string
	File   *ObjectFile
	Shared *SharedObject

	InputSection *InputSection
	Fragment     *SectionFragment
	Chunk        Chunker

	Value      uint64
	Size       uint64
	SymIdx     int
	SymType    uint8
	Binding    uint8
	Visibility uint8
	Desc       SymbolDesc
	Absolute   bool

	Reserved   uint8
	Referenced bool

	GotIdx    int32
	GotPltIdx int32
	PltIdx    int32
	DynsymIdx int32
}

func NewSymbol(name string) *Symbol {
	return &Symbol{
		Name:      name,
		SymIdx:    -1,
		Binding:   uint8(elf.STB_GLOBAL),
		GotIdx:    -1,
		GotPltIdx: -1,
		PltIdx:    -1,
		DynsymIdx: -1,
	}
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
	s.Fragment = nil
	s.Chunk = nil
}

func (s *Symbol) SetSectionFragment(frag *SectionFragment) {
	s.InputSection = nil
	s.Fragment = frag
	s.Chunk = nil
}

func (s *Symbol) SetChunk(chunk Chunker) {
	s.InputSection = nil
	s.Fragment = nil
	s.Chunk = chunk
}

func (s *Symbol) IsUndef() bool   { return s.Desc == SymUndefined }
func (s *Symbol) IsDefined() bool { return s.Desc == SymDefine }
func (s *Symbol) IsCommon() bool  { return s.Desc == SymCommon }

func (s *Symbol) IsWeak() bool {
	return s.Binding == uint8(elf.STB_WEAK)
}

func (s *Symbol) IsLocal() bool {
	return s.Binding == uint8(elf.STB_LOCAL)
}

// IsDyn reports whether the winning definition came from a shared object.
func (s *Symbol) IsDyn() bool {
	return s.Shared != nil
}

func (s *Symbol) IsAbsolute() bool {
	return s.Absolute
}

func (s *Symbol) IsFunc() bool {
	return s.SymType == uint8(elf.STT_FUNC)
}

func (s *Symbol) ElfSym() *Sym {
	utils.Assert(s.File != nil && s.SymIdx >= 0 &&
		s.SymIdx < len(s.File.ElfSyms))
	return &s.File.ElfSyms[s.SymIdx]
}

func (s *Symbol) Clear() {
	s.File = nil
	s.Shared = nil
	s.InputSection = nil
	s.Fragment = nil
	s.Chunk = nil
	s.SymIdx = -1
	s.Desc = SymUndefined
}

// GetAddr is the symbol's final address once layout has run.
func (s *Symbol) GetAddr() uint64 {
	if s.Fragment != nil {
		return s.Fragment.GetAddr() + s.Value
	}
	if s.InputSection != nil {
		return s.InputSection.GetAddr() + s.Value
	}
	if s.Chunk != nil {
		return uint64(s.Chunk.GetShdr().Addr) + s.Value
	}
	return s.Value
}

func (s *Symbol) GotEntryAddr(ctx *Context) uint64 {
	utils.Assert(s.GotIdx >= 0)
	return uint64(ctx.Got.Shdr.Addr) + uint64(s.GotIdx)*ctx.Cfg.WordSize()
}

func (s *Symbol) GotPltEntryAddr(ctx *Context) uint64 {
	utils.Assert(s.GotPltIdx >= 0)
	return uint64(ctx.GotPlt.Shdr.Addr) + uint64(s.GotPltIdx)*ctx.Cfg.WordSize()
}

func (s *Symbol) PltEntryAddr(ctx *Context) uint64 {
	utils.Assert(s.PltIdx >= 0)
	return uint64(ctx.Plt.Shdr.Addr) + PLT0Size + uint64(s.PltIdx)*PLT1Size
}

// GetSymbolByName interns a name in the link-wide symbol map.
func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	sym := NewSymbol(name)
	ctx.SymbolMap[name] = sym
	return sym
}
