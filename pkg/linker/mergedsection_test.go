package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergedSectionDeduplicates(t *testing.T) {
	ctx := testContext(t, OutputExec)
	m := GetMergedSectionInstance(ctx, ".rodata.str1.1",
		uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_MERGE|elf.SHF_STRINGS))

	f1 := m.Insert("hello\x00", 0)
	f2 := m.Insert("world\x00", 0)
	f3 := m.Insert("hello\x00", 2)

	assert.Equal(t, f1, f3)
	assert.NotEqual(t, f1, f2)
	assert.Equal(t, uint32(2), f1.P2Align)

	// Same name/type/flags intern to the same pool.
	again := GetMergedSectionInstance(ctx, ".rodata.str1.4",
		uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_MERGE|elf.SHF_STRINGS))
	assert.Equal(t, m, again)
}

func TestMergedSectionAssignsAlignedOffsets(t *testing.T) {
	ctx := testContext(t, OutputExec)
	m := GetMergedSectionInstance(ctx, ".rodata.cst8",
		uint32(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_MERGE))

	a := m.Insert("aaaaaaaa", 3)
	b := m.Insert("bb", 1)
	m.AssignOffsets()

	assert.Equal(t, uint32(0)%8, a.Offset%8)
	assert.Equal(t, uint32(0)%2, b.Offset%2)
	assert.NotEqual(t, a.Offset, b.Offset)
	assert.Equal(t, uint64(8), m.Shdr.AddrAlign)
	assert.Greater(t, m.Shdr.Size, uint64(0))
}

func TestMergeableSectionFragmentLookup(t *testing.T) {
	m := &MergeableSection{
		FragOffsets: []uint32{0, 6, 12},
		Fragments: []*SectionFragment{
			{Offset: 0}, {Offset: 100}, {Offset: 200},
		},
	}

	frag, off := m.GetFragment(0)
	assert.Equal(t, m.Fragments[0], frag)
	assert.Equal(t, uint32(0), off)

	frag, off = m.GetFragment(8)
	assert.Equal(t, m.Fragments[1], frag)
	assert.Equal(t, uint32(2), off)

	frag, off = m.GetFragment(14)
	assert.Equal(t, m.Fragments[2], frag)
	assert.Equal(t, uint32(2), off)
}

func TestGetOutputNameMapsPrefixes(t *testing.T) {
	assert.Equal(t, ".text", GetOutputName(".text.hot.main", 0))
	assert.Equal(t, ".data", GetOutputName(".data.foo", 0))
	assert.Equal(t, ".bss", GetOutputName(".bss.x", 0))
	assert.Equal(t, ".custom", GetOutputName(".custom", 0))
	assert.Equal(t, ".rodata.str",
		GetOutputName(".rodata.str1.1",
			uint64(elf.SHF_MERGE|elf.SHF_STRINGS)))
	assert.Equal(t, ".rodata.cst",
		GetOutputName(".rodata.cst8", uint64(elf.SHF_MERGE)))
}

func TestStrtabInternsOnce(t *testing.T) {
	s := NewStrtabSection(".strtab", false)
	off1 := s.Add("foo")
	off2 := s.Add("bar")
	off3 := s.Add("foo")

	assert.Equal(t, off1, off3)
	assert.NotEqual(t, off1, off2)
	assert.Equal(t, uint32(0), s.Add(""))
	assert.Equal(t, off1, s.GetOffset("foo"))

	ctx := testContext(t, OutputExec)
	s.UpdateShdr(ctx)
	assert.Equal(t, uint64(1+4+4), s.Shdr.Size)
}
