package linker

import (
	"debug/elf"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// DynsymSection is .dynsym. Index 0 is the null entry; every member is
// global, so sh_info stays 1.
type DynsymSection struct {
	Chunk
	Syms []*Symbol
}

func NewDynsymSection() *DynsymSection {
	s := &DynsymSection{Chunk: NewChunk()}
	s.Name = ".dynsym"
	s.Shdr.Type = uint32(elf.SHT_DYNSYM)
	s.Shdr.Flags = uint64(elf.SHF_ALLOC)
	s.Shdr.Kind = KindSymbolTable
	s.Shdr.AddrAlign = 4
	s.Shdr.EntSize = SymSize
	s.Shdr.Info = 1
	return s
}

// Add registers a symbol in the dynamic symbol table and interns its
// name into .dynstr. Adding twice is a no-op.
func (s *DynsymSection) Add(ctx *Context, sym *Symbol) {
	if sym.DynsymIdx >= 0 {
		return
	}
	sym.DynsymIdx = int32(len(s.Syms) + 1)
	s.Syms = append(s.Syms, sym)
	ctx.Dynstr.Add(sym.Name)
}

func (s *DynsymSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.Syms)+1) * SymSize
}

func (s *DynsymSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	utils.Write[Sym](buf, Sym{}, order)
	for i, sym := range s.Syms {
		esym := Sym{
			Name: ctx.Dynstr.GetOffset(sym.Name),
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
		utils.Write[Sym](buf[(i+1)*SymSize:], esym, order)
	}
	return region.Sync()
}

// outputShndx finds the output section index a defined symbol lands in.
func outputShndx(sym *Symbol) int64 {
	var chunk Chunker
	switch {
	case sym.InputSection != nil:
		chunk = sym.InputSection.OutputSection
	case sym.Fragment != nil:
		chunk = sym.Fragment.OutputSection
	case sym.Chunk != nil:
		chunk = sym.Chunk
	}
	if chunk == nil {
		return 0
	}
	return chunk.GetShndx()
}

// HashSection is the SysV .hash table over .dynsym.
type HashSection struct {
	Chunk
}

func NewHashSection() *HashSection {
	h := &HashSection{Chunk: NewChunk()}
	h.Name = ".hash"
	h.Shdr.Type = uint32(elf.SHT_HASH)
	h.Shdr.Flags = uint64(elf.SHF_ALLOC)
	h.Shdr.Kind = KindMetaData
	h.Shdr.AddrAlign = 4
	h.Shdr.EntSize = 4
	return h
}

func (h *HashSection) nbucket(ctx *Context) uint32 {
	n := uint32(len(ctx.Dynsym.Syms)+1)/2 + 1
	return n
}

func (h *HashSection) UpdateShdr(ctx *Context) {
	nchain := uint32(len(ctx.Dynsym.Syms) + 1)
	h.Shdr.Size = uint64(2+h.nbucket(ctx)+nchain) * 4
}

func elfHash(name string) uint32 {
	var hash, g uint32
	for i := 0; i < len(name); i++ {
		hash = hash<<4 + uint32(name[i])
		g = hash & 0xf0000000
		if g != 0 {
			hash ^= g >> 24
		}
		hash &^= g
	}
	return hash
}

func (h *HashSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(h.Shdr.Offset, h.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	nbucket := h.nbucket(ctx)
	nchain := uint32(len(ctx.Dynsym.Syms) + 1)
	buckets := make([]uint32, nbucket)
	chains := make([]uint32, nchain)

	for _, sym := range ctx.Dynsym.Syms {
		idx := uint32(sym.DynsymIdx)
		b := elfHash(sym.Name) % nbucket
		chains[idx] = buckets[b]
		buckets[b] = idx
	}

	buf := region.Start()
	order.PutUint32(buf, nbucket)
	order.PutUint32(buf[4:], nchain)
	for i, b := range buckets {
		order.PutUint32(buf[8+i*4:], b)
	}
	base := 8 + int(nbucket)*4
	for i, c := range chains {
		order.PutUint32(buf[base+i*4:], c)
	}
	return region.Sync()
}

// InterpSection is .interp, the program-interpreter path.
type InterpSection struct {
	Chunk
	Path string
}

func NewInterpSection(path string) *InterpSection {
	s := &InterpSection{Chunk: NewChunk(), Path: path}
	s.Name = ".interp"
	s.Shdr.Type = uint32(elf.SHT_PROGBITS)
	s.Shdr.Flags = uint64(elf.SHF_ALLOC)
	s.Shdr.Kind = KindMetaData
	s.Shdr.AddrAlign = 1
	return s
}

func (s *InterpSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.Path) + 1)
}

func (s *InterpSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)
	copy(region.Start(), s.Path)
	return region.Sync()
}

// DynamicSection is .dynamic. Entry construction runs twice with the
// same control flow: once pre-layout for the size, once post-layout for
// the values.
type DynamicSection struct {
	Chunk
	neededNames []string
}

func NewDynamicSection() *DynamicSection {
	s := &DynamicSection{Chunk: NewChunk()}
	s.Name = ".dynamic"
	s.Shdr.Type = uint32(elf.SHT_DYNAMIC)
	s.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	s.Shdr.Kind = KindMetaData
	s.Shdr.AddrAlign = 4
	s.Shdr.EntSize = DynSize
	return s
}

// PrepareStrings interns every name .dynamic will reference, before
// layout freezes .dynstr. DT_NEEDED comes from each live shared object,
// honouring --as-needed, plus transitive entries under --add-needed.
func (s *DynamicSection) PrepareStrings(ctx *Context) {
	seen := make(map[string]bool)
	push := func(name string) {
		if !seen[name] {
			seen[name] = true
			s.neededNames = append(s.neededNames, name)
			ctx.Dynstr.Add(name)
		}
	}
	for _, so := range ctx.Shareds {
		if !so.IsNeeded(ctx) {
			continue
		}
		push(so.SOName)
		if so.CopyNeeded {
			for _, dep := range so.Needed {
				push(dep)
			}
		}
	}
	if ctx.Cfg.IsDynObj() && ctx.Cfg.SOName != "" {
		ctx.Dynstr.Add(ctx.Cfg.SOName)
	}
}

func (s *DynamicSection) entries(ctx *Context) []Dyn {
	var es []Dyn
	add := func(tag elf.DynTag, val uint64) {
		es = append(es, Dyn{Tag: uint32(tag), Val: uint32(val)})
	}

	for _, name := range s.neededNames {
		add(elf.DT_NEEDED, uint64(ctx.Dynstr.GetOffset(name)))
	}
	if ctx.Cfg.IsDynObj() && ctx.Cfg.SOName != "" {
		add(elf.DT_SONAME, uint64(ctx.Dynstr.GetOffset(ctx.Cfg.SOName)))
	}
	add(elf.DT_HASH, ctx.Hash.Shdr.Addr)
	add(elf.DT_STRTAB, ctx.Dynstr.Shdr.Addr)
	add(elf.DT_SYMTAB, ctx.Dynsym.Shdr.Addr)
	add(elf.DT_SYMENT, SymSize)
	add(elf.DT_STRSZ, ctx.Dynstr.Shdr.Size)
	if ctx.RelDyn.Count() > 0 {
		add(elf.DT_REL, ctx.RelDyn.Shdr.Addr)
		add(elf.DT_RELSZ, ctx.RelDyn.Shdr.Size)
		add(elf.DT_RELENT, RelSize)
	}
	if ctx.RelPlt.Count() > 0 {
		add(elf.DT_JMPREL, ctx.RelPlt.Shdr.Addr)
		add(elf.DT_PLTRELSZ, ctx.RelPlt.Shdr.Size)
		add(elf.DT_PLTREL, uint64(elf.DT_REL))
		add(elf.DT_PLTGOT, ctx.GotPlt.Shdr.Addr)
	}
	for _, osec := range ctx.OutputSections {
		switch osec.Shdr.Type {
		case uint32(elf.SHT_INIT_ARRAY):
			add(elf.DT_INIT_ARRAY, osec.Shdr.Addr)
			add(elf.DT_INIT_ARRAYSZ, osec.Shdr.Size)
		case uint32(elf.SHT_FINI_ARRAY):
			add(elf.DT_FINI_ARRAY, osec.Shdr.Addr)
			add(elf.DT_FINI_ARRAYSZ, osec.Shdr.Size)
		}
	}
	add(elf.DT_NULL, 0)
	return es
}

func (s *DynamicSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.entries(ctx))) * DynSize
}

func (s *DynamicSection) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	for i, d := range s.entries(ctx) {
		utils.Write[Dyn](buf[i*DynSize:], d, order)
	}
	return region.Sync()
}
