package linker

import (
	"bytes"
	"debug/elf"
	"math"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// ObjectFile is a parsed relocatable object. Local symbols live in
// LocalSymbols; global symbols resolve through the link-wide symbol map.
type ObjectFile struct {
	InputFile
	SymtabSec         *Shdr
	SymtabShndxSec    []uint32
	Sections          []*InputSection
	MergeableSections []*MergeableSection
	Priority          uint32
}

func NewObjectFile(ctx *Context, file *File, inLib bool) (*ObjectFile, error) {
	base, err := NewInputFile(ctx, file)
	if err != nil {
		return nil, err
	}
	o := &ObjectFile{InputFile: base}
	o.IsAlive = !inLib
	return o, nil
}

func CreateObjectFile(ctx *Context, file *File, inLib bool) (*ObjectFile, error) {
	if err := CheckFileCompatibility(ctx.Cfg, file); err != nil {
		return nil, err
	}
	obj, err := NewObjectFile(ctx, file, inLib)
	if err != nil {
		return nil, err
	}
	obj.Priority = uint32(len(ctx.Objs))
	if err := obj.Parse(ctx); err != nil {
		return nil, err
	}
	ctx.Objs = append(ctx.Objs, obj)
	return obj, nil
}

func (o *ObjectFile) Parse(ctx *Context) error {
	o.SymtabSec = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.SymtabSec != nil {
		o.FirstGlobal = int(o.SymtabSec.Info)
		o.FillUpElfSyms(ctx, o.SymtabSec)
		if int64(o.SymtabSec.Link) >= int64(len(o.ElfSections)) {
			return errorf(ErrInvalidInput, "%s: bad symtab link", o.File.Name)
		}
		o.SymbolStrtab = o.GetBytesFromIdx(int64(o.SymtabSec.Link))
	}

	if err := o.InitializeSections(ctx); err != nil {
		return err
	}
	o.InitializeSymbols(ctx)
	o.InitializeMergeableSections(ctx)
	o.SkipEhframeSections()
	return nil
}

func (o *ObjectFile) InitializeSections(ctx *Context) error {
	o.Sections = make([]*InputSection, len(o.ElfSections))
	for i := 0; i < len(o.ElfSections); i++ {
		shdr := &o.ElfSections[i]
		switch shdr.Type {
		case uint32(elf.SHT_GROUP), uint32(elf.SHT_SYMTAB),
			uint32(elf.SHT_STRTAB), uint32(elf.SHT_REL),
			uint32(elf.SHT_RELA), uint32(elf.SHT_NULL):
		case uint32(elf.SHT_SYMTAB_SHNDX):
			o.FillUpSymtabShndxSec(ctx, shdr)
		default:
			name := ElfGetName(o.ShStrtab, shdr.Name)
			o.Sections[i] = NewInputSection(ctx, name, o, uint32(i))
		}
	}

	// Attach each relocation section to the section it patches.
	for i := 0; i < len(o.ElfSections); i++ {
		shdr := &o.ElfSections[i]
		if shdr.Type != uint32(elf.SHT_REL) &&
			shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}
		if shdr.Info >= uint32(len(o.Sections)) {
			return errorf(ErrInvalidInput,
				"%s: relocation section targets nothing", o.File.Name)
		}
		if target := o.Sections[shdr.Info]; target != nil {
			utils.Assert(target.RelsecIdx == math.MaxUint32)
			target.RelsecIdx = uint32(i)
			target.RelsecIsRela = shdr.Type == uint32(elf.SHT_RELA)
		}
	}
	return nil
}

func (o *ObjectFile) FillUpSymtabShndxSec(ctx *Context, s *Shdr) {
	bs := o.GetBytesFromShdr(s)
	o.SymtabShndxSec = utils.ReadSlice[uint32](bs, 4, ctx.Cfg.ByteOrder())
}

func (o *ObjectFile) InitializeSymbols(ctx *Context) {
	if o.SymtabSec == nil {
		return
	}

	o.LocalSymbols = make([]Symbol, o.FirstGlobal)
	for i := 0; i < len(o.LocalSymbols); i++ {
		o.LocalSymbols[i] = *NewSymbol("")
	}
	o.LocalSymbols[0].File = o

	for i := 1; i < len(o.LocalSymbols); i++ {
		esym := &o.ElfSyms[i]
		sym := &o.LocalSymbols[i]
		sym.Name = ElfGetName(o.SymbolStrtab, esym.Name)
		sym.File = o
		sym.Value = uint64(esym.Val)
		sym.Size = uint64(esym.Size)
		sym.SymIdx = i
		sym.SymType = esym.Type()
		sym.Binding = uint8(elf.STB_LOCAL)
		sym.Visibility = esym.StVisibility()
		sym.Desc = SymDefine
		sym.Absolute = esym.IsAbs()

		if !esym.IsAbs() && !esym.IsUndef() {
			sym.SetInputSection(o.Sections[o.GetShndx(esym, i)])
		}
	}

	o.Symbols = make([]*Symbol, len(o.ElfSyms))
	for i := 0; i < len(o.LocalSymbols); i++ {
		o.Symbols[i] = &o.LocalSymbols[i]
	}
	for i := len(o.LocalSymbols); i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]
		name := ElfGetName(o.SymbolStrtab, esym.Name)
		o.Symbols[i] = GetSymbolByName(ctx, name)
	}
}

func (o *ObjectFile) GetShndx(esym *Sym, idx int) int64 {
	utils.Assert(idx >= 0 && idx < len(o.ElfSyms))
	if esym.Shndx == uint16(elf.SHN_XINDEX) {
		return int64(o.SymtabShndxSec[idx])
	}
	return int64(esym.Shndx)
}

func (o *ObjectFile) GetSection(esym *Sym, idx int) *InputSection {
	shndx := o.GetShndx(esym, idx)
	if shndx < 0 || shndx >= int64(len(o.Sections)) {
		return nil
	}
	return o.Sections[shndx]
}

func (o *ObjectFile) candidateFor(esym *Sym) Candidate {
	desc := SymDefine
	if esym.IsCommon() {
		desc = SymCommon
	}
	return Candidate{
		Bind:  esym.Bind(),
		Desc:  desc,
		Size:  uint64(esym.Size),
		Value: uint64(esym.Val),
	}
}

// ResolveSymbols offers this object's global definitions to the
// link-wide map, applying the precedence rules. Conflicts are recorded
// only when reportConflicts is set (the pass over live objects).
func (o *ObjectFile) ResolveSymbols(ctx *Context, reportConflicts bool) {
	for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
		sym := o.Symbols[i]
		esym := &o.ElfSyms[i]

		if esym.IsUndef() {
			continue
		}

		var isec *InputSection
		if !esym.IsAbs() && !esym.IsCommon() {
			isec = o.GetSection(esym, i)
			if isec == nil {
				continue
			}
		}

		if sym.File == o && sym.SymIdx == i {
			continue
		}

		switch Resolve(sym, o.candidateFor(esym), ctx.Cfg) {
		case ActionOverride:
			sym.File = o
			sym.Shared = nil
			sym.Value = uint64(esym.Val)
			sym.Size = uint64(esym.Size)
			sym.SymIdx = i
			sym.SymType = esym.Type()
			sym.Binding = esym.Bind()
			sym.Visibility = esym.StVisibility()
			sym.Absolute = esym.IsAbs()
			if esym.IsCommon() {
				sym.Desc = SymCommon
				sym.InputSection = nil
				sym.Fragment = nil
				sym.Chunk = nil
			} else {
				sym.Desc = SymDefine
				if isec != nil {
					sym.SetInputSection(isec)
				}
			}
		case ActionMerge:
			mergeCommon(sym, o.candidateFor(esym))
		case ActionConflict:
			if reportConflicts && sym.File != nil {
				ctx.Fail(errorf(ErrMultipleDefinition,
					"%s: defined in both %s and %s",
					sym.Name, sym.File.File.Name, o.File.Name))
			}
		case ActionKeepOld:
		}
	}
}

// MarkReferences records this live object's non-weak undefined
// references; --as-needed and archive pull-in consult this.
func (o *ObjectFile) MarkReferences() {
	for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]
		if esym.IsUndef() && !esym.IsWeak() {
			o.Symbols[i].Referenced = true
		}
	}
}

// MarkLiveObjects walks this file's undefined references; any lazy
// archive member that defines one becomes live. An archive member is
// pulled in only for a non-weak undefined reference.
func (o *ObjectFile) MarkLiveObjects(feeder func(*ObjectFile)) {
	utils.Assert(o.IsAlive)

	for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
		sym := o.Symbols[i]
		esym := &o.ElfSyms[i]

		if sym.File == nil {
			continue
		}
		if esym.IsUndef() && !esym.IsWeak() && !sym.File.IsAlive {
			sym.File.IsAlive = true
			feeder(sym.File)
		}
	}
}

func (o *ObjectFile) ClearSymbols() {
	for _, sym := range o.Symbols[o.FirstGlobal:] {
		if sym.File == o {
			sym.Clear()
		}
	}
}

func (o *ObjectFile) InitializeMergeableSections(ctx *Context) {
	o.MergeableSections = make([]*MergeableSection, len(o.Sections))
	for i := 0; i < len(o.Sections); i++ {
		isec := o.Sections[i]
		if isec != nil && isec.IsAlive &&
			isec.Shdr().Flags&uint32(elf.SHF_MERGE) != 0 {
			o.MergeableSections[i] = splitSection(ctx, isec)
			isec.IsAlive = false
		}
	}
}

func findNull(data []byte, entSize int) int {
	if entSize == 1 {
		return bytes.Index(data, []byte{0})
	}
	for i := 0; i <= len(data)-entSize; i += entSize {
		bs := data[i : i+entSize]
		if utils.AllZeros(bs) {
			return i
		}
	}
	return -1
}

func splitSection(ctx *Context, isec *InputSection) *MergeableSection {
	m := &MergeableSection{}
	shdr := isec.Shdr()

	m.Parent = GetMergedSectionInstance(ctx, isec.Name(), shdr.Type,
		uint64(shdr.Flags))
	m.P2Align = isec.P2Align

	data := isec.Contents
	offset := uint64(0)
	entSize := uint64(shdr.EntSize)
	if entSize == 0 {
		entSize = 1
	}
	if shdr.Flags&uint32(elf.SHF_STRINGS) != 0 {
		for len(data) > 0 {
			end := findNull(data, int(entSize))
			if end == -1 {
				utils.Fatal("string is not null terminated")
			}
			sz := uint64(end) + entSize
			substr := data[:sz]
			data = data[sz:]
			m.Strs = append(m.Strs, string(substr))
			m.FragOffsets = append(m.FragOffsets, uint32(offset))
			offset += sz
		}
	} else {
		if uint64(len(data))%entSize != 0 {
			utils.Fatal("section size is not multiple of entsize")
		}
		for len(data) > 0 {
			substr := data[:entSize]
			data = data[entSize:]
			m.Strs = append(m.Strs, string(substr))
			m.FragOffsets = append(m.FragOffsets, uint32(offset))
			offset += entSize
		}
	}
	return m
}

func (o *ObjectFile) RegisterSectionPieces() {
	for _, m := range o.MergeableSections {
		if m == nil {
			continue
		}
		m.Fragments = make([]*SectionFragment, 0, len(m.Strs))
		for i := 0; i < len(m.Strs); i++ {
			m.Fragments = append(m.Fragments,
				m.Parent.Insert(m.Strs[i], uint32(m.P2Align)))
		}
	}

	for i := 1; i < len(o.ElfSyms); i++ {
		sym := o.Symbols[i]
		esym := &o.ElfSyms[i]

		if esym.IsAbs() || esym.IsUndef() || esym.IsCommon() {
			continue
		}

		shndx := o.GetShndx(esym, i)
		if shndx < 0 || shndx >= int64(len(o.MergeableSections)) {
			continue
		}
		m := o.MergeableSections[shndx]
		if m == nil {
			continue
		}

		frag, fragOffset := m.GetFragment(uint32(esym.Val))
		if frag == nil {
			utils.Fatal("bad symbol value")
		}
		if sym.File == o && sym.SymIdx == i {
			sym.SetSectionFragment(frag)
			sym.Value = uint64(fragOffset)
		}
	}
}

func (o *ObjectFile) SkipEhframeSections() {
	for _, isec := range o.Sections {
		if isec != nil && isec.IsAlive && isec.Name() == ".eh_frame" {
			isec.IsAlive = false
		}
	}
}

func (o *ObjectFile) ScanRelocations(ctx *Context) error {
	for _, isec := range o.Sections {
		if isec != nil && isec.IsAlive &&
			isec.Shdr().Flags&uint32(elf.SHF_ALLOC) != 0 {
			if err := isec.ScanRelocations(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
