package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// InputFile is the part of an input common to relocatable objects and
// shared objects: the parsed section table and symbol table views.
type InputFile struct {
	File         *File
	ElfSections  []Shdr
	ShStrtab     []byte
	ElfSyms      []Sym
	FirstGlobal  int
	SymbolStrtab []byte
	IsAlive      bool
	Symbols      []*Symbol
	LocalSymbols []Symbol
}

func NewInputFile(ctx *Context, file *File) (InputFile, error) {
	f := InputFile{File: file}

	if len(file.Contents) < EhdrSize {
		return f, errorf(ErrInvalidInput, "%s: file too small", file.Name)
	}
	if !CheckMagic(file.Contents) {
		return f, errorf(ErrInvalidInput, "%s: not an ELF file", file.Name)
	}

	order := ctx.Cfg.ByteOrder()
	ehdr := ReadEhdr(file.Contents, order)
	if uint64(ehdr.ShOff) > uint64(len(file.Contents)) {
		return f, errorf(ErrInvalidInput, "%s: bad section header offset", file.Name)
	}
	contents := file.Contents[ehdr.ShOff:]
	shdr := ReadShdr(contents, order)

	// Section counts above 0xff00 spill into the first header's size.
	numSections := int64(ehdr.ShNum)
	if numSections == 0 {
		numSections = int64(shdr.Size)
	}

	f.ElfSections = []Shdr{shdr}
	for numSections > 1 {
		contents = contents[ShdrSize:]
		f.ElfSections = append(f.ElfSections, ReadShdr(contents, order))
		numSections--
	}

	shstrndx := int64(ehdr.ShStrndx)
	if ehdr.ShStrndx == uint16(elf.SHN_XINDEX) {
		shstrndx = int64(shdr.Link)
	}
	if shstrndx >= int64(len(f.ElfSections)) {
		return f, errorf(ErrInvalidInput, "%s: bad shstrndx", file.Name)
	}
	f.ShStrtab = f.GetBytesFromIdx(shstrndx)
	return f, nil
}

func (f *InputFile) GetBytesFromShdr(s *Shdr) []byte {
	end := uint64(s.Offset) + uint64(s.Size)
	if uint64(len(f.File.Contents)) < end {
		utils.Fatal("section header is out of range")
	}
	return f.File.Contents[s.Offset:end]
}

func (f *InputFile) GetBytesFromIdx(idx int64) []byte {
	return f.GetBytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) FillUpElfSyms(ctx *Context, s *Shdr) {
	bs := f.GetBytesFromShdr(s)
	f.ElfSyms = ReadSyms(bs, ctx.Cfg.ByteOrder())
}

func (f *InputFile) FindSection(ty uint32) *Shdr {
	for i := 0; i < len(f.ElfSections); i++ {
		shdr := &f.ElfSections[i]
		if shdr.Type == ty {
			return shdr
		}
	}
	return nil
}

func (f *InputFile) GetEhdr(ctx *Context) Ehdr {
	return ReadEhdr(f.File.Contents, ctx.Cfg.ByteOrder())
}
