package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

const EF_ARM_EABI_VER5 uint32 = 0x05000000

type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	o := &OutputEhdr{Chunk: NewChunk()}
	o.Shdr.Flags = uint64(elf.SHF_ALLOC)
	o.Shdr.Size = EhdrSize
	o.Shdr.AddrAlign = 4
	return o
}

// GetEntryAddress resolves the entry point: the configured entry symbol
// if defined, otherwise the start of the first executable section.
func GetEntryAddress(ctx *Context) uint64 {
	if sym, ok := ctx.SymbolMap[ctx.Cfg.Entry]; ok && !sym.IsUndef() && !sym.IsDyn() {
		return sym.GetAddr()
	}
	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0 {
			ctx.Diags.Warnf("cannot find entry symbol %s; defaulting to %#x",
				ctx.Cfg.Entry, shdr.Addr)
			return shdr.Addr
		}
	}
	return 0
}

func (o *OutputEhdr) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(o.Shdr.Offset, EhdrSize)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	var ehdr Ehdr
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS32)
	if ctx.Cfg.LittleEndian {
		ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	} else {
		ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2MSB)
	}
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)

	switch ctx.Cfg.OutputType {
	case OutputDynObj:
		ehdr.Type = uint16(elf.ET_DYN)
	case OutputRelocatable:
		ehdr.Type = uint16(elf.ET_REL)
	default:
		ehdr.Type = uint16(elf.ET_EXEC)
	}
	ehdr.Machine = ctx.Backend.Machine
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = uint32(GetEntryAddress(ctx))
	ehdr.PhOff = uint32(ctx.Phdr.Shdr.Offset)
	ehdr.ShOff = uint32(ctx.Shdr.Shdr.Offset)
	ehdr.Flags = EF_ARM_EABI_VER5
	ehdr.EhSize = EhdrSize
	ehdr.PhEntSize = PhdrSize
	ehdr.PhNum = uint16(ctx.Phdr.Shdr.Size / PhdrSize)
	ehdr.ShEntSize = ShdrSize
	ehdr.ShNum = uint16(ctx.Shdr.Shdr.Size / ShdrSize)
	ehdr.ShStrndx = uint16(ctx.Shstrtab.Shndx)

	utils.Write[Ehdr](region.Start(), ehdr, ctx.Cfg.ByteOrder())
	return region.Sync()
}
