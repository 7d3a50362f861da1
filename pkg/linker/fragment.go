package linker

import (
	"math"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

type FragmentKind uint8

const (
	FragRegion FragmentKind = iota
	FragFill
	FragAlignment
	FragReloc
	FragPLTEntry
	FragGOTEntry
	FragStub
)

// Fragment is one atomic content unit under a section. It is a tagged
// variant: the Kind selects which payload fields are meaningful.
//
//	FragRegion    Data is a span of an input's byte region
//	FragFill      Pattern repeated up to FillSize bytes
//	FragAlignment zero padding up to Boundary
//	FragReloc     Rel names an entry in a relocation section
//	FragPLTEntry  Data is the stub code, Sym the target
//	FragGOTEntry  one address slot for Sym
//	FragStub      Data is a branch-range veneer, Sym the far target
type Fragment struct {
	Kind   FragmentKind
	Parent *SectionData
	Offset uint64

	Data     []byte
	Pattern  byte
	FillSize uint64
	Boundary uint64
	Rel      *OutputRel
	Sym      *Symbol
}

func NewRegionFragment(data []byte) *Fragment {
	return &Fragment{Kind: FragRegion, Offset: math.MaxUint64, Data: data}
}

func NewFillFragment(pattern byte, size uint64) *Fragment {
	return &Fragment{
		Kind: FragFill, Offset: math.MaxUint64,
		Pattern: pattern, FillSize: size,
	}
}

func NewAlignFragment(boundary uint64) *Fragment {
	return &Fragment{
		Kind: FragAlignment, Offset: math.MaxUint64, Boundary: boundary,
	}
}

func (f *Fragment) Size() uint64 {
	switch f.Kind {
	case FragRegion, FragPLTEntry, FragStub:
		return uint64(len(f.Data))
	case FragFill:
		return f.FillSize
	case FragAlignment:
		// Resolved against the fragment's own offset once placed.
		if f.Offset == math.MaxUint64 {
			return 0
		}
		return utils.AlignTo(f.Offset, f.Boundary) - f.Offset
	case FragReloc:
		return RelSize
	case FragGOTEntry:
		return 4
	}
	return 0
}

// SectionData is the ordered fragment body of a section.
type SectionData struct {
	Owner     Chunker
	Fragments []*Fragment
}

func NewSectionData(owner Chunker) *SectionData {
	return &SectionData{Owner: owner}
}

// Append places a fragment at the current end of the section, honouring
// the fragment's alignment, and grows the owner's size. Appending in the
// middle is legal; offsets of the following fragments cascade.
func (sd *SectionData) Append(frag *Fragment, at int) {
	utils.Assert(at >= 0 && at <= len(sd.Fragments))
	frag.Parent = sd

	sd.Fragments = append(sd.Fragments, nil)
	copy(sd.Fragments[at+1:], sd.Fragments[at:])
	sd.Fragments[at] = frag

	sd.relayout(at)
}

func (sd *SectionData) AppendBack(frag *Fragment) {
	sd.Append(frag, len(sd.Fragments))
}

// relayout recomputes offsets from index on and refreshes the owner's
// section size.
func (sd *SectionData) relayout(from int) {
	offset := uint64(0)
	if from > 0 {
		prev := sd.Fragments[from-1]
		offset = prev.Offset + prev.Size()
	}
	for _, frag := range sd.Fragments[from:] {
		if frag.Kind == FragAlignment {
			frag.Offset = offset
			offset = utils.AlignTo(offset, frag.Boundary)
			continue
		}
		frag.Offset = offset
		offset += frag.Size()
	}
	sd.Owner.GetShdr().Size = offset
}

// WriteTo renders the fragment list into buf, which must be at least the
// section size.
func (sd *SectionData) WriteTo(buf []byte) {
	for _, frag := range sd.Fragments {
		switch frag.Kind {
		case FragRegion, FragPLTEntry, FragStub:
			copy(buf[frag.Offset:], frag.Data)
		case FragFill:
			end := frag.Offset + frag.FillSize
			for i := frag.Offset; i < end; i++ {
				buf[i] = frag.Pattern
			}
		}
		// Alignment renders as zeros; reloc and GOT entries are
		// rendered by their owning chunks.
	}
}

// FragmentRef is the canonical address handle: a fragment plus an offset
// inside it. Symbols and relocations address output bytes through these.
type FragmentRef struct {
	Frag *Fragment
	Off  uint64
}

func NewFragmentRef(frag *Fragment, off uint64) *FragmentRef {
	return &FragmentRef{Frag: frag, Off: off}
}

// OutputOffset is the byte offset within the owning section.
func (r *FragmentRef) OutputOffset() uint64 {
	return r.Frag.Offset + r.Off
}

// Addr is the final virtual address once layout has assigned the owning
// section's address.
func (r *FragmentRef) Addr() uint64 {
	return r.Frag.Parent.Owner.GetShdr().Addr + r.OutputOffset()
}
