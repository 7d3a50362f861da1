package linker

import (
	"debug/elf"
	"math"
	"sort"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

const ImageBase uint64 = 0x10000

// CommonSection collects common-block symbols into BSS storage.
type CommonSection struct {
	Chunk
}

func NewCommonSection() *CommonSection {
	c := &CommonSection{Chunk: NewChunk()}
	c.Name = ".bss"
	c.Shdr.Type = uint32(elf.SHT_NOBITS)
	c.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	c.Shdr.Kind = KindBSS
	c.Shdr.AddrAlign = 4
	return c
}

// StubSection holds branch-range veneers: an absolute jump per
// out-of-range target.
type StubSection struct {
	Chunk
	Syms []*Symbol
}

const stubEntrySize = 8

func NewStubSection() *StubSection {
	s := &StubSection{Chunk: NewChunk()}
	s.Name = ".text.stub"
	s.Shdr.Type = uint32(elf.SHT_PROGBITS)
	s.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	s.Shdr.Kind = KindRegular
	s.Shdr.AddrAlign = 4
	return s
}

func (s *StubSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.Syms)) * stubEntrySize
}

func (s *StubSection) CopyBuf(ctx *Context) error {
	if s.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	buf := region.Start()
	for i, sym := range s.Syms {
		// ldr pc, [pc, #-4]; .word target
		order.PutUint32(buf[i*stubEntrySize:], 0xe51ff004)
		order.PutUint32(buf[i*stubEntrySize+4:], uint32(sym.GetAddr()))
	}
	return region.Sync()
}

func (ctx *Context) stubAddrFor(sym *Symbol) uint64 {
	if ctx.Stubs == nil {
		return 0
	}
	if idx, ok := ctx.stubMap[sym]; ok {
		return ctx.Stubs.Shdr.Addr + uint64(idx)*stubEntrySize
	}
	return 0
}

// CreateSyntheticSections builds every synthetic chunk up front; the
// scanner reserves into them and collection later drops the empty ones.
func CreateSyntheticSections(ctx *Context) {
	ctx.Ehdr = NewOutputEhdr()
	ctx.Phdr = NewOutputPhdr()
	ctx.Shdr = NewOutputShdr()
	ctx.Got = NewGotSection()
	ctx.GotPlt = NewGotPltSection()
	ctx.Plt = NewPltSection()
	ctx.RelDyn = NewDynRelSection(".rel.dyn", ctx.Backend.UseRela)
	ctx.RelPlt = NewDynRelSection(".rel.plt", ctx.Backend.UseRela)
	ctx.Dynsym = NewDynsymSection()
	ctx.Dynstr = NewStrtabSection(".dynstr", true)
	ctx.Hash = NewHashSection()
	ctx.Dynamic = NewDynamicSection()
	ctx.Symtab = NewSymtabSection()
	ctx.Strtab = NewStrtabSection(".strtab", false)
	ctx.Shstrtab = NewStrtabSection(".shstrtab", false)
	ctx.Common = NewCommonSection()
	ctx.Stubs = NewStubSection()
	ctx.stubMap = make(map[*Symbol]int)

	if ctx.needsInterp() {
		ctx.Interp = NewInterpSection(ctx.Backend.InterpPath)
	}

	ctx.Backend.InitTargetSections(ctx)
}

func (ctx *Context) needsDynamic() bool {
	return len(ctx.Shareds) > 0 || ctx.Cfg.IsDynObj()
}

func (ctx *Context) needsInterp() bool {
	return ctx.Cfg.OutputType == OutputExec && len(ctx.Shareds) > 0
}

// ConvertCommonSymbols turns surviving common blocks into BSS
// definitions with the merged size and alignment.
func ConvertCommonSymbols(ctx *Context) {
	names := sortedSymbolNames(ctx)
	size := uint64(0)
	maxAlign := uint64(4)
	for _, name := range names {
		sym := ctx.SymbolMap[name]
		if !sym.IsCommon() || sym.File == nil {
			continue
		}
		align := sym.Value
		if align == 0 {
			align = 1
		}
		if align > maxAlign {
			maxAlign = align
		}
		size = utils.AlignTo(size, align)
		sym.Value = size
		sym.Desc = SymDefine
		sym.SetChunk(ctx.Common)
		size += sym.Size
	}
	ctx.Common.Shdr.Size = size
	if size > 0 {
		ctx.Common.Shdr.AddrAlign = maxAlign
	}
}

func sortedSymbolNames(ctx *Context) []string {
	names := make([]string, 0, len(ctx.SymbolMap))
	for name := range ctx.SymbolMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FinalizeDynsym fixes the dynamic symbol table membership: everything
// with a dynamic relocation or PLT entry, every referenced shared
// definition, and, for shared-object output, every exportable global.
func FinalizeDynsym(ctx *Context) {
	if !ctx.needsDynamic() {
		return
	}
	for _, name := range sortedSymbolNames(ctx) {
		sym := ctx.SymbolMap[name]
		switch {
		case sym.Reserved&(ReservePlt|ReserveGotRel) != 0:
			ctx.Dynsym.Add(ctx, sym)
		case sym.IsDyn() && sym.Referenced:
			ctx.Dynsym.Add(ctx, sym)
		case sym.Referenced && sym.IsUndef():
			ctx.Dynsym.Add(ctx, sym)
		case ctx.Cfg.IsDynObj() && sym.IsDefined() && !sym.IsDyn() &&
			!sym.IsLocal() &&
			sym.Visibility == uint8(elf.STV_DEFAULT):
			ctx.Dynsym.Add(ctx, sym)
		}
	}
	for _, pend := range ctx.pendingRels {
		if pend.sym != nil && pend.typ != R_ARM_RELATIVE {
			ctx.Dynsym.Add(ctx, pend.sym)
		}
	}
}

func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterSectionPieces()
	}
}

func BinSections(ctx *Context) {
	group := make([][]*InputSection, len(ctx.OutputSections))
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			idx := isec.OutputSection.Idx
			group[idx] = append(group[idx], isec)
		}
	}
	for idx, osec := range ctx.OutputSections {
		osec.Members = group[idx]
	}
}

func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		offset := uint64(0)
		p2align := int64(0)
		for _, isec := range osec.Members {
			offset = utils.AlignTo(offset, 1<<isec.P2Align)
			isec.Offset = uint32(offset)
			offset += uint64(isec.ShSize)
			if int64(isec.P2Align) > p2align {
				p2align = int64(isec.P2Align)
			}
		}
		osec.Shdr.Size = offset
		osec.Shdr.AddrAlign = 1 << p2align
	}
}

func ComputeMergedSectionSizes(ctx *Context) {
	for _, osec := range ctx.MergedSections {
		osec.AssignOffsets()
	}
}

// CollectChunks assembles the final chunk list: headers, content
// sections that have anything in them, and the synthetic tail.
func CollectChunks(ctx *Context) {
	chunks := []Chunker{ctx.Ehdr, ctx.Phdr}

	if ctx.Interp != nil {
		chunks = append(chunks, ctx.Interp)
	}
	if ctx.needsDynamic() {
		chunks = append(chunks, ctx.Hash, ctx.Dynsym, ctx.Dynstr,
			ctx.Dynamic)
	}
	if ctx.RelDyn.Count() > 0 {
		chunks = append(chunks, ctx.RelDyn)
	}
	if ctx.RelPlt.Count() > 0 {
		chunks = append(chunks, ctx.RelPlt)
	}
	if len(ctx.Plt.Syms) > 0 {
		chunks = append(chunks, ctx.Plt)
	}
	if ctx.Got.Required || len(ctx.Got.Syms) > 0 {
		chunks = append(chunks, ctx.Got)
	}
	if len(ctx.Plt.Syms) > 0 || ctx.needsDynamic() && ctx.Got.Required {
		chunks = append(chunks, ctx.GotPlt)
	}
	if len(ctx.Stubs.Syms) > 0 {
		chunks = append(chunks, ctx.Stubs)
	}
	if ctx.Common.Shdr.Size > 0 {
		chunks = append(chunks, ctx.Common)
	}

	for _, osec := range ctx.OutputSections {
		if len(osec.Members) > 0 {
			chunks = append(chunks, osec)
		}
	}
	for _, osec := range ctx.MergedSections {
		if osec.Shdr.Size > 0 {
			chunks = append(chunks, osec)
		}
	}
	chunks = append(chunks, ctx.extraChunks...)

	chunks = append(chunks, ctx.Symtab, ctx.Strtab, ctx.Shstrtab, ctx.Shdr)
	ctx.Chunks = chunks
}

// SortOutputSections orders chunks by the backend's hint, then by
// permission class: read-only before writable, executable before
// non-executable, TLS before non-TLS, progbits before bss, the section
// header table last.
func SortOutputSections(ctx *Context) {
	rank := func(chunk Chunker) int32 {
		typ := chunk.GetShdr().Type
		flags := chunk.GetShdr().Flags

		if chunk == ctx.Shdr {
			return math.MaxInt32
		}
		if chunk == ctx.Ehdr {
			return 0
		}
		if chunk == ctx.Phdr {
			return 1
		}
		if flags&uint64(elf.SHF_ALLOC) == 0 {
			return math.MaxInt32 - 2
		}

		hint := int32(ctx.Backend.SectionOrder(ctx, chunk))

		b2i := func(b bool) int32 {
			if b {
				return 1
			}
			return 0
		}
		writeable := b2i(flags&uint64(elf.SHF_WRITE) != 0)
		notExec := b2i(flags&uint64(elf.SHF_EXECINSTR) == 0)
		notTls := b2i(flags&uint64(elf.SHF_TLS) == 0)
		isBss := b2i(typ == uint32(elf.SHT_NOBITS))

		return hint<<8 | writeable<<7 | notExec<<6 | notTls<<5 | isBss<<4
	}

	sort.SliceStable(ctx.Chunks, func(i, j int) bool {
		return rank(ctx.Chunks[i]) < rank(ctx.Chunks[j])
	})
}

// AssignSectionIndices numbers the real sections and fixes the header
// cross references.
func AssignSectionIndices(ctx *Context) {
	shndx := int64(1)
	for _, chunk := range ctx.Chunks {
		if chunk == ctx.Ehdr || chunk == ctx.Phdr || chunk == ctx.Shdr {
			continue
		}
		chunk.SetShndx(shndx)
		chunk.GetShdr().NameIdx = ctx.Shstrtab.Add(chunk.GetName())
		shndx++
	}

	if ctx.needsDynamic() {
		ctx.Dynsym.Shdr.Link = uint32(ctx.Dynstr.Shndx)
		ctx.Hash.Shdr.Link = uint32(ctx.Dynsym.Shndx)
		ctx.Dynamic.Shdr.Link = uint32(ctx.Dynstr.Shndx)
		ctx.RelDyn.Shdr.Link = uint32(ctx.Dynsym.Shndx)
		ctx.RelPlt.Shdr.Link = uint32(ctx.Dynsym.Shndx)
		ctx.RelPlt.Shdr.Info = uint32(ctx.Plt.Shndx)
	}
	ctx.Symtab.Shdr.Link = uint32(ctx.Strtab.Shndx)
}

func isTbss(chunk Chunker) bool {
	shdr := chunk.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) &&
		shdr.Flags&uint64(elf.SHF_TLS) != 0
}

// SetOutputSectionOffsets assigns virtual addresses and file offsets.
// Allocated chunks keep address/offset congruence; a page break is
// inserted whenever the segment permissions change. Returns the total
// file size.
func SetOutputSectionOffsets(ctx *Context) uint64 {
	base := ImageBase
	if ctx.Cfg.IsDynObj() {
		base = 0
	}

	addr := base
	prevFlags := uint32(math.MaxUint32)
	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		if flags := toPhdrFlags(chunk); flags != prevFlags {
			if prevFlags != math.MaxUint32 {
				addr = utils.AlignTo(addr, PageSize)
			}
			prevFlags = flags
		}
		align := shdr.AddrAlign
		if align == 0 {
			align = 1
		}
		addr = utils.AlignTo(addr, align)
		shdr.Addr = addr
		shdr.Offset = addr - base
		if !isTbss(chunk) {
			addr += shdr.Size
		}
	}

	fileoff := uint64(0)
	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		if shdr.Type == uint32(elf.SHT_NOBITS) {
			shdr.Offset = fileoff
			continue
		}
		if end := shdr.Offset + shdr.Size; end > fileoff {
			fileoff = end
		}
	}

	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_ALLOC) != 0 {
			continue
		}
		align := shdr.AddrAlign
		if align == 0 {
			align = 1
		}
		fileoff = utils.AlignTo(fileoff, align)
		shdr.Offset = fileoff
		fileoff += shdr.Size
	}

	ctx.Phdr.UpdateShdr(ctx)
	return fileoff
}

// CreateRangeStubs inserts veneers for ARM branches whose target lies
// outside the ±32 MiB displacement range. Returns true when a veneer
// was added, in which case layout must run again.
func CreateRangeStubs(ctx *Context) bool {
	added := false
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive ||
				isec.Shdr().Flags&uint32(elf.SHF_EXECINSTR) == 0 {
				continue
			}
			for a := range isec.GetRels(ctx) {
				rel := &isec.rels[a]
				switch rel.Type {
				case R_ARM_CALL, R_ARM_JUMP24, R_ARM_PLT32, R_ARM_PC24:
				default:
					continue
				}
				sym := rel.Sym
				if sym == nil || sym.PltIdx >= 0 || !sym.IsDefined() ||
					sym.IsDyn() {
					continue
				}
				if _, ok := ctx.stubMap[sym]; ok {
					continue
				}
				dist := int64(sym.GetAddr()) -
					int64(isec.GetAddr()+rel.Offset)
				if dist >= armBranchMin && dist <= armBranchMax {
					continue
				}
				ctx.stubMap[sym] = len(ctx.Stubs.Syms)
				ctx.Stubs.Syms = append(ctx.Stubs.Syms, sym)
				added = true
			}
		}
	}
	if added {
		if len(ctx.Stubs.Syms) > 0 && !chunkListed(ctx, ctx.Stubs) {
			ctx.Chunks = append(ctx.Chunks, ctx.Stubs)
			SortOutputSections(ctx)
			AssignSectionIndices(ctx)
		}
		ctx.Stubs.UpdateShdr(ctx)
		ctx.Shstrtab.UpdateShdr(ctx)
		ctx.Shdr.UpdateShdr(ctx)
	}
	return added
}

func chunkListed(ctx *Context, target Chunker) bool {
	for _, chunk := range ctx.Chunks {
		if chunk == target {
			return true
		}
	}
	return false
}

// FinalizeDynRels materialises the reserved dynamic relocation records
// now that every address is known.
func FinalizeDynRels(ctx *Context) {
	for _, pend := range ctx.pendingRels {
		var addr uint64
		if pend.isec != nil {
			addr = pend.isec.GetAddr() + pend.offset
		} else if pend.sym != nil {
			addr = pend.sym.GotEntryAddr(ctx)
		}
		outSym := pend.sym
		if pend.typ == R_ARM_RELATIVE {
			outSym = nil
		}
		ctx.RelDyn.AddReloc(OutputRel{
			Offset: addr, Type: pend.typ, Sym: outSym,
		})
	}

	for _, sym := range ctx.Plt.Syms {
		ctx.RelPlt.AddReloc(OutputRel{
			Offset: sym.GotPltEntryAddr(ctx),
			Type:   R_ARM_JUMP_SLOT,
			Sym:    sym,
		})
	}
}

// FinalizeSymbols gives the backend its per-symbol hook; ARM reports
// nothing to finalize.
func FinalizeSymbols(ctx *Context) {
	for _, name := range sortedSymbolNames(ctx) {
		sym := ctx.SymbolMap[name]
		if sym.Reserved != 0 {
			ctx.Backend.FinalizeSymbol(sym)
		}
	}
}
