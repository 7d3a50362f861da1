package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// ProgramHeader is the class-agnostic segment descriptor; the writer
// narrows it to the ELF32 wire form.
type ProgramHeader struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

type OutputPhdr struct {
	Chunk
}

func NewOutputPhdr() *OutputPhdr {
	o := &OutputPhdr{Chunk: NewChunk()}
	o.Shdr.Flags = uint64(elf.SHF_ALLOC)
	o.Shdr.AddrAlign = 4
	return o
}

func toPhdrFlags(chunk Chunker) uint32 {
	ret := uint32(elf.PF_R)
	write := chunk.GetShdr().Flags&uint64(elf.SHF_WRITE) != 0
	if write {
		ret |= uint32(elf.PF_W)
	}
	if chunk.GetShdr().Flags&uint64(elf.SHF_EXECINSTR) != 0 {
		ret |= uint32(elf.PF_X)
	}
	return ret
}

// segments derives the program header table from the laid-out chunk
// list. It runs twice with identical control flow: pre-layout for the
// table size, post-layout for the values.
func (o *OutputPhdr) segments(ctx *Context) []ProgramHeader {
	var phdrs []ProgramHeader
	if ctx.Cfg.OutputType == OutputRelocatable {
		return phdrs
	}

	phdrs = append(phdrs, ProgramHeader{
		Type:     uint32(elf.PT_PHDR),
		Flags:    uint32(elf.PF_R),
		Offset:   o.Shdr.Offset,
		VAddr:    o.Shdr.Addr,
		FileSize: o.Shdr.Size,
		MemSize:  o.Shdr.Size,
		Align:    4,
	})

	if ctx.Interp != nil {
		phdrs = append(phdrs, ProgramHeader{
			Type:     uint32(elf.PT_INTERP),
			Flags:    uint32(elf.PF_R),
			Offset:   ctx.Interp.Shdr.Offset,
			VAddr:    ctx.Interp.Shdr.Addr,
			FileSize: ctx.Interp.Shdr.Size,
			MemSize:  ctx.Interp.Shdr.Size,
			Align:    1,
		})
	}

	// One PT_LOAD per maximal run of allocated chunks with the same
	// segment permission flags. BSS extends MemSize only.
	isAlloc := func(chunk Chunker) bool {
		return chunk.GetShdr().Flags&uint64(elf.SHF_ALLOC) != 0
	}
	isBss := func(chunk Chunker) bool {
		return chunk.GetShdr().Type == uint32(elf.SHT_NOBITS)
	}

	i := 0
	for i < len(ctx.Chunks) {
		if !isAlloc(ctx.Chunks[i]) {
			i++
			continue
		}
		flags := toPhdrFlags(ctx.Chunks[i])
		first := ctx.Chunks[i].GetShdr()
		seg := ProgramHeader{
			Type:   uint32(elf.PT_LOAD),
			Flags:  flags,
			Offset: first.Offset,
			VAddr:  first.Addr,
			Align:  PageSize,
		}
		end := first.Addr
		fileEnd := first.Addr
		for i < len(ctx.Chunks) && isAlloc(ctx.Chunks[i]) &&
			toPhdrFlags(ctx.Chunks[i]) == flags {
			shdr := ctx.Chunks[i].GetShdr()
			end = shdr.Addr + shdr.Size
			if !isBss(ctx.Chunks[i]) {
				fileEnd = shdr.Addr + shdr.Size
			}
			i++
		}
		seg.FileSize = fileEnd - seg.VAddr
		seg.MemSize = end - seg.VAddr
		phdrs = append(phdrs, seg)
	}

	if ctx.Dynamic != nil && ctx.Dynamic.Shdr.Size > 0 {
		phdrs = append(phdrs, ProgramHeader{
			Type:     uint32(elf.PT_DYNAMIC),
			Flags:    uint32(elf.PF_R | elf.PF_W),
			Offset:   ctx.Dynamic.Shdr.Offset,
			VAddr:    ctx.Dynamic.Shdr.Addr,
			FileSize: ctx.Dynamic.Shdr.Size,
			MemSize:  ctx.Dynamic.Shdr.Size,
			Align:    4,
		})
	}

	phdrs = append(phdrs, ProgramHeader{
		Type:  uint32(elf.PT_GNU_STACK),
		Flags: uint32(elf.PF_R | elf.PF_W),
		Align: 1,
	})
	return phdrs
}

func (o *OutputPhdr) UpdateShdr(ctx *Context) {
	o.Shdr.Size = uint64(len(o.segments(ctx))) * PhdrSize
}

func (o *OutputPhdr) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(o.Shdr.Offset, o.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	for i, seg := range o.segments(ctx) {
		utils.Write[Phdr](buf[i*PhdrSize:], Phdr{
			Type:     seg.Type,
			Offset:   uint32(seg.Offset),
			VAddr:    uint32(seg.VAddr),
			PAddr:    uint32(seg.VAddr),
			FileSize: uint32(seg.FileSize),
			MemSize:  uint32(seg.MemSize),
			Flags:    seg.Flags,
			Align:    uint32(seg.Align),
		}, order)
	}
	return region.Sync()
}
