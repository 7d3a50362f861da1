package linker

import (
	"debug/elf"
	"path/filepath"
)

// SharedObject is a parsed DT_NEEDED candidate. Its dynamic symbols can
// satisfy undefined references but never preempt a definition from a
// relocatable object.
type SharedObject struct {
	InputFile
	SOName     string
	Needed     []string
	AsNeeded   bool
	CopyNeeded bool
	DynsymSec  *Shdr
}

func CreateSharedObject(ctx *Context, file *File, attr Attribute) (*SharedObject, error) {
	if err := CheckFileCompatibility(ctx.Cfg, file); err != nil {
		return nil, err
	}

	base, err := NewInputFile(ctx, file)
	if err != nil {
		return nil, err
	}
	so := &SharedObject{InputFile: base}
	so.IsAlive = true
	so.AsNeeded = attr.AsNeeded
	so.CopyNeeded = attr.AddNeeded
	so.SOName = filepath.Base(file.Name)

	if err := so.Parse(ctx); err != nil {
		return nil, err
	}
	ctx.Shareds = append(ctx.Shareds, so)
	return so, nil
}

func (so *SharedObject) Parse(ctx *Context) error {
	so.DynsymSec = so.FindSection(uint32(elf.SHT_DYNSYM))
	if so.DynsymSec == nil {
		return errorf(ErrInvalidInput, "%s: shared object has no .dynsym",
			so.File.Name)
	}
	so.FirstGlobal = int(so.DynsymSec.Info)
	so.FillUpElfSyms(ctx, so.DynsymSec)
	if int64(so.DynsymSec.Link) >= int64(len(so.ElfSections)) {
		return errorf(ErrInvalidInput, "%s: bad dynsym link", so.File.Name)
	}
	so.SymbolStrtab = so.GetBytesFromIdx(int64(so.DynsymSec.Link))

	so.parseDynamic(ctx)

	so.Symbols = make([]*Symbol, len(so.ElfSyms))
	for i := so.FirstGlobal; i < len(so.ElfSyms); i++ {
		esym := &so.ElfSyms[i]
		name := ElfGetName(so.SymbolStrtab, esym.Name)
		so.Symbols[i] = GetSymbolByName(ctx, name)
	}
	return nil
}

// parseDynamic picks SONAME and the transitive needed list out of the
// .dynamic section.
func (so *SharedObject) parseDynamic(ctx *Context) {
	dynSec := so.FindSection(uint32(elf.SHT_DYNAMIC))
	if dynSec == nil || int64(dynSec.Link) >= int64(len(so.ElfSections)) {
		return
	}
	strTab := so.GetBytesFromIdx(int64(dynSec.Link))
	dyns := ReadDyns(so.GetBytesFromShdr(dynSec), ctx.Cfg.ByteOrder())
	for _, d := range dyns {
		switch elf.DynTag(d.Tag) {
		case elf.DT_SONAME:
			so.SOName = ElfGetName(strTab, d.Val)
		case elf.DT_NEEDED:
			so.Needed = append(so.Needed, ElfGetName(strTab, d.Val))
		case elf.DT_NULL:
			return
		}
	}
}

// ResolveSymbols offers this shared object's definitions. Only undefined
// references take them.
func (so *SharedObject) ResolveSymbols(ctx *Context) {
	for i := so.FirstGlobal; i < len(so.ElfSyms); i++ {
		esym := &so.ElfSyms[i]
		if esym.IsUndef() {
			continue
		}
		sym := so.Symbols[i]

		inc := Candidate{
			Bind:  esym.Bind(),
			Desc:  SymDefine,
			Size:  uint64(esym.Size),
			Value: uint64(esym.Val),
			Dyn:   true,
		}
		if Resolve(sym, inc, ctx.Cfg) == ActionOverride {
			sym.File = nil
			sym.Shared = so
			sym.InputSection = nil
			sym.Fragment = nil
			sym.Chunk = nil
			sym.Value = uint64(esym.Val)
			sym.Size = uint64(esym.Size)
			sym.SymIdx = i
			sym.SymType = esym.Type()
			sym.Binding = esym.Bind()
			sym.Visibility = esym.StVisibility()
			sym.Desc = SymDefine
			sym.Absolute = esym.IsAbs()
		}
	}
}

// IsNeeded reports whether any referenced symbol resolved into this
// shared object; with --as-needed, DT_NEEDED is emitted only then.
func (so *SharedObject) IsNeeded(ctx *Context) bool {
	if !so.AsNeeded {
		return true
	}
	for i := so.FirstGlobal; i < len(so.ElfSyms); i++ {
		sym := so.Symbols[i]
		if sym != nil && sym.Shared == so && sym.Referenced {
			return true
		}
	}
	return false
}
