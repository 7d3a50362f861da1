package linker

import (
	"debug/elf"
	"math"
	"math/bits"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// InputSection mirrors one section of a relocatable object. Alive
// sections are binned into an OutputSection; the section's relocations
// are parsed lazily through the relocation factory.
type InputSection struct {
	File     *ObjectFile
	Contents []byte
	Shndx    uint32
	ShSize   uint32
	IsAlive  bool
	P2Align  uint8

	Offset        uint32
	OutputSection *OutputSection

	RelsecIdx    uint32
	RelsecIsRela bool
	rels         []Relocation
}

func NewInputSection(ctx *Context, name string, file *ObjectFile, shndx uint32) *InputSection {
	s := &InputSection{
		File:      file,
		Shndx:     shndx,
		IsAlive:   true,
		Offset:    math.MaxUint32,
		RelsecIdx: math.MaxUint32,
		ShSize:    math.MaxUint32,
	}

	shdr := s.Shdr()
	if shdr.Type != uint32(elf.SHT_NOBITS) {
		s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]
	}

	utils.Assert(shdr.Flags&uint32(elf.SHF_COMPRESSED) == 0)
	s.ShSize = shdr.Size

	toP2Align := func(align uint32) uint8 {
		if align == 0 {
			return 0
		}
		return uint8(bits.TrailingZeros32(align))
	}
	s.P2Align = toP2Align(shdr.AddrAlign)

	s.OutputSection = GetOutputSection(
		ctx, name, uint64(shdr.Type), uint64(shdr.Flags))

	return s
}

func (i *InputSection) Shdr() *Shdr {
	utils.Assert(i.Shndx < uint32(len(i.File.ElfSections)))
	return &i.File.ElfSections[i.Shndx]
}

func (i *InputSection) Name() string {
	return ElfGetName(i.File.ShStrtab, i.Shdr().Name)
}

// GetRels parses the attached relocation section on first use. Each
// record's target datum is pre-read and byte-swapped exactly once here.
func (i *InputSection) GetRels(ctx *Context) []Relocation {
	if i.RelsecIdx == math.MaxUint32 || i.rels != nil {
		return i.rels
	}

	factory := ctx.Backend.RelocFactory
	bs := i.File.GetBytesFromShdr(&i.File.ElfSections[i.RelsecIdx])
	order := ctx.Cfg.ByteOrder()

	if i.RelsecIsRela {
		raw := ReadRelas(bs, order)
		i.rels = make([]Relocation, 0, len(raw))
		for _, r := range raw {
			i.rels = append(i.rels, factory.Produce(
				i, uint64(r.Offset), r.RelType(), r.SymIdx(),
				int64(r.Addend)))
		}
	} else {
		raw := ReadRels(bs, order)
		i.rels = make([]Relocation, 0, len(raw))
		for _, r := range raw {
			// REL: the addend is implicit in the target field.
			i.rels = append(i.rels, factory.Produce(
				i, uint64(r.Offset), r.RelType(), r.SymIdx(), 0))
		}
	}
	return i.rels
}

func (i *InputSection) GetAddr() uint64 {
	return i.OutputSection.Shdr.Addr + uint64(i.Offset)
}

func (i *InputSection) ScanRelocations(ctx *Context) error {
	for a := range i.GetRels(ctx) {
		rel := &i.rels[a]
		if rel.Sym == nil {
			continue
		}
		if err := scanRelocation(ctx, i, rel); err != nil {
			return err
		}
	}
	return nil
}

func (i *InputSection) WriteTo(ctx *Context, buf []byte) error {
	if i.Shdr().Type == uint32(elf.SHT_NOBITS) || i.ShSize == 0 {
		return nil
	}

	i.CopyContents(buf)

	if i.Shdr().Flags&uint32(elf.SHF_ALLOC) != 0 {
		return i.ApplyRelocAlloc(ctx, buf)
	}
	return nil
}

func (i *InputSection) CopyContents(buf []byte) {
	copy(buf, i.Contents)
}
