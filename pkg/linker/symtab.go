package linker

import (
	"debug/elf"
	"sort"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// SymtabSection is the non-dynamic .symtab in the output: the live
// locals of every object followed by the resolved globals.
type SymtabSection struct {
	Chunk
	locals  []*Symbol
	globals []*Symbol
}

func NewSymtabSection() *SymtabSection {
	s := &SymtabSection{Chunk: NewChunk()}
	s.Name = ".symtab"
	s.Shdr.Type = uint32(elf.SHT_SYMTAB)
	s.Shdr.Kind = KindSymbolTable
	s.Shdr.AddrAlign = 4
	s.Shdr.EntSize = SymSize
	return s
}

// Finalize fixes the member set and interns every name into .strtab.
// Must run before layout freezes the string table.
func (s *SymtabSection) Finalize(ctx *Context) {
	for _, file := range ctx.Objs {
		for i := 1; i < len(file.LocalSymbols); i++ {
			sym := &file.LocalSymbols[i]
			if sym.Name == "" || sym.SymType == uint8(elf.STT_SECTION) {
				continue
			}
			if sym.InputSection != nil && !sym.InputSection.IsAlive {
				continue
			}
			s.locals = append(s.locals, sym)
			ctx.Strtab.Add(sym.Name)
		}
	}

	names := make([]string, 0, len(ctx.SymbolMap))
	for name := range ctx.SymbolMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sym := ctx.SymbolMap[name]
		if sym.File == nil && sym.Shared == nil && sym.Chunk == nil &&
			!sym.Referenced {
			continue
		}
		s.globals = append(s.globals, sym)
		ctx.Strtab.Add(sym.Name)
	}

	s.Shdr.Info = uint32(len(s.locals) + 1)
}

func (s *SymtabSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(1+len(s.locals)+len(s.globals)) * SymSize
}

func (s *SymtabSection) writeSym(ctx *Context, buf []byte, sym *Symbol) {
	esym := Sym{
		Name: ctx.Strtab.GetOffset(sym.Name),
		Info: SymInfo(sym.Binding, sym.SymType),
		Size: uint32(sym.Size),
	}
	switch {
	case sym.IsDyn() || sym.IsUndef():
		esym.Shndx = uint16(elf.SHN_UNDEF)
	case sym.IsAbsolute():
		esym.Shndx = uint16(elf.SHN_ABS)
		esym.Val = uint32(sym.Value)
	default:
		esym.Val = uint32(sym.GetAddr())
		if shndx := outputShndx(sym); shndx > 0 {
			esym.Shndx = uint16(shndx)
		}
	}
	utils.Write[Sym](buf, esym, ctx.Cfg.ByteOrder())
}

func (s *SymtabSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	buf := region.Start()
	utils.Write[Sym](buf, Sym{}, ctx.Cfg.ByteOrder())
	idx := 1
	for _, sym := range s.locals {
		s.writeSym(ctx, buf[idx*SymSize:], sym)
		idx++
	}
	for _, sym := range s.globals {
		s.writeSym(ctx, buf[idx*SymSize:], sym)
		idx++
	}
	return region.Sync()
}
