package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

const PLT0Size = 20
const PLT1Size = 12

// PltSection is .plt: the PLT0 resolver stub followed by one PLT1 entry
// per reserved symbol. Reserving a PLT entry also reserves the paired
// .got.plt slot and the .rel.plt JUMP_SLOT record; the three move
// together by construction.
type PltSection struct {
	Chunk
	Data *SectionData
	Syms []*Symbol
}

func NewPltSection() *PltSection {
	p := &PltSection{Chunk: NewChunk()}
	p.Name = ".plt"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.Kind = KindPLT
	p.Shdr.AddrAlign = 4
	p.Data = NewSectionData(p)
	p.Data.AppendBack(&Fragment{Kind: FragPLTEntry, Data: make([]byte, PLT0Size)})
	return p
}

// ReserveEntry claims the PLT entry plus its GOT slot and dynamic
// relocation for sym.
func (p *PltSection) ReserveEntry(ctx *Context, sym *Symbol) {
	utils.Assert(sym.PltIdx < 0)
	sym.PltIdx = int32(len(p.Syms))
	p.Syms = append(p.Syms, sym)
	p.Data.AppendBack(&Fragment{
		Kind: FragPLTEntry, Sym: sym, Data: make([]byte, PLT1Size),
	})

	ctx.GotPlt.ReserveEntry(sym)
	ctx.RelPlt.ReserveEntry()
}

func (p *PltSection) UpdateShdr(ctx *Context) {
	if len(p.Syms) == 0 {
		p.Shdr.Size = 0
		return
	}
	p.Shdr.Size = PLT0Size + uint64(len(p.Syms))*PLT1Size
}

func (p *PltSection) CopyBuf(ctx *Context) error {
	if p.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(p.Shdr.Offset, p.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	backend := ctx.Backend
	frags := p.Data.Fragments
	backend.WritePLT0(ctx, frags[0].Data,
		uint64(ctx.GotPlt.Shdr.Addr), uint64(p.Shdr.Addr))
	for i, sym := range p.Syms {
		backend.WritePLT1(ctx, frags[i+1].Data,
			sym.GotPltEntryAddr(ctx), sym.PltEntryAddr(ctx))
	}

	p.Data.WriteTo(region.Start())
	return region.Sync()
}
