package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// GotSection is .got: one address slot per symbol the scanner reserved a
// GOT entry for. Slots for preemptible or shared symbols are left zero
// and fixed by a dynamic relocation; the rest hold the symbol address.
type GotSection struct {
	Chunk
	Data     *SectionData
	Syms     []*Symbol
	Required bool
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk()}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.Kind = KindGOT
	g.Shdr.AddrAlign = 4
	g.Shdr.EntSize = 4
	g.Data = NewSectionData(g)
	return g
}

// ReserveEntry claims one GOT slot for sym.
func (g *GotSection) ReserveEntry(sym *Symbol) {
	utils.Assert(sym.GotIdx < 0)
	sym.GotIdx = int32(len(g.Syms))
	g.Syms = append(g.Syms, sym)
	g.Data.AppendBack(&Fragment{Kind: FragGOTEntry, Sym: sym})
}

func (g *GotSection) UpdateShdr(ctx *Context) {
	g.Shdr.Size = uint64(len(g.Syms)) * 4
}

func (g *GotSection) CopyBuf(ctx *Context) error {
	if g.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(g.Shdr.Offset, g.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	for i, sym := range g.Syms {
		val := uint32(0)
		if sym.Reserved&ReserveGotRel == 0 {
			val = uint32(sym.GetAddr())
		}
		order.PutUint32(buf[i*4:], val)
	}
	return region.Sync()
}

// GotPltSection is .got.plt: three reserved slots for the dynamic
// linker, then one slot per PLT entry, each initially pointing at PLT0
// so the first call round-trips through the resolver.
type GotPltSection struct {
	Chunk
	Syms []*Symbol
}

const GotPltHeaderSlots = 3

func NewGotPltSection() *GotPltSection {
	g := &GotPltSection{Chunk: NewChunk()}
	g.Name = ".got.plt"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.Kind = KindGOT
	g.Shdr.AddrAlign = 4
	g.Shdr.EntSize = 4
	return g
}

func (g *GotPltSection) ReserveEntry(sym *Symbol) {
	utils.Assert(sym.GotPltIdx < 0)
	sym.GotPltIdx = int32(GotPltHeaderSlots + len(g.Syms))
	g.Syms = append(g.Syms, sym)
}

func (g *GotPltSection) UpdateShdr(ctx *Context) {
	g.Shdr.Size = uint64(GotPltHeaderSlots+len(g.Syms)) * 4
}

func (g *GotPltSection) CopyBuf(ctx *Context) error {
	if g.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(g.Shdr.Offset, g.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()

	// Slot 0 is the address of .dynamic; 1 and 2 are for the dynamic
	// linker to fill at load time.
	if ctx.Dynamic != nil {
		order.PutUint32(buf, uint32(ctx.Dynamic.Shdr.Addr))
	}
	for i := range g.Syms {
		slot := (GotPltHeaderSlots + i) * 4
		order.PutUint32(buf[slot:], uint32(ctx.Plt.Shdr.Addr))
	}
	return region.Sync()
}
