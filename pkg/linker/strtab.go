package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// StrtabSection is an ELF string table under construction. Offset 0 is
// the empty string.
type StrtabSection struct {
	Chunk
	offsets map[string]uint32
	buf     []byte
}

func NewStrtabSection(name string, alloc bool) *StrtabSection {
	s := &StrtabSection{
		Chunk:   NewChunk(),
		offsets: map[string]uint32{"": 0},
		buf:     []byte{0},
	}
	s.Name = name
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	s.Shdr.Kind = KindStringTable
	if alloc {
		s.Shdr.Flags = uint64(elf.SHF_ALLOC)
	}
	return s
}

// Add interns a string and returns its offset.
func (s *StrtabSection) Add(str string) uint32 {
	if off, ok := s.offsets[str]; ok {
		return off
	}
	off := uint32(len(s.buf))
	s.offsets[str] = off
	s.buf = append(s.buf, str...)
	s.buf = append(s.buf, 0)
	return off
}

// GetOffset returns the offset of a previously added string.
func (s *StrtabSection) GetOffset(str string) uint32 {
	off, ok := s.offsets[str]
	utils.Assert(ok)
	return off
}

func (s *StrtabSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.buf))
}

func (s *StrtabSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)
	copy(region.Start(), s.buf)
	return region.Sync()
}
