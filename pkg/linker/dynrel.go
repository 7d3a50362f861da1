package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// OutputRel is one dynamic relocation destined for .rel.dyn or .rel.plt.
// Sym may be nil for R_ARM_RELATIVE.
type OutputRel struct {
	Offset uint64
	Type   uint32
	Sym    *Symbol
}

// DynRelSection holds dynamic relocations. The scanner reserves entries
// up front; layout produces the actual records once addresses are known.
// The reserve/produce split keeps section sizing independent of the
// order relocations are finalised in.
type DynRelSection struct {
	Chunk
	Data     *SectionData
	reserved int
	Rels     []OutputRel
}

func NewDynRelSection(name string, useRela bool) *DynRelSection {
	s := &DynRelSection{Chunk: NewChunk()}
	s.Name = name
	s.Shdr.Type = uint32(elf.SHT_REL)
	s.Shdr.EntSize = RelSize
	if useRela {
		s.Shdr.Type = uint32(elf.SHT_RELA)
		s.Shdr.EntSize = RelaSize
	}
	s.Shdr.Flags = uint64(elf.SHF_ALLOC)
	s.Shdr.Kind = KindRelocation
	s.Shdr.AddrAlign = 4
	s.Data = NewSectionData(s)
	return s
}

// ReserveEntry claims space for one future record.
func (s *DynRelSection) ReserveEntry() {
	s.reserved++
	s.Data.AppendBack(&Fragment{Kind: FragReloc})
}

// AddReloc fills one reserved slot.
func (s *DynRelSection) AddReloc(rel OutputRel) {
	utils.Assert(len(s.Rels) < s.reserved)
	s.Data.Fragments[len(s.Rels)].Rel = &rel
	s.Rels = append(s.Rels, rel)
}

func (s *DynRelSection) Count() int {
	return s.reserved
}

func (s *DynRelSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(s.reserved) * s.Shdr.EntSize
}

func (s *DynRelSection) CopyBuf(ctx *Context) error {
	if s.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	for i, rel := range s.Rels {
		symIdx := uint32(0)
		if rel.Sym != nil && rel.Sym.DynsymIdx >= 0 {
			symIdx = uint32(rel.Sym.DynsymIdx)
		}
		utils.Write[Rel](buf[uint64(i)*s.Shdr.EntSize:], Rel{
			Offset: uint32(rel.Offset),
			Info:   RelInfo(symIdx, rel.Type),
		}, order)
	}
	return region.Sync()
}
