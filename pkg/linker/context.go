package linker

// Context carries all link-wide state: configuration, the input graph,
// the symbol map, and every output chunk. It is created by the driver and
// threaded through each phase; nothing in the core is global.
type Context struct {
	Cfg   *Config
	Diags *Diagnostics

	Tree    *InputTree
	Backend *Backend

	Objs    []*ObjectFile
	Shareds []*SharedObject

	SymbolMap map[string]*Symbol

	OutputSections []*OutputSection
	MergedSections []*MergedSection
	Chunks         []Chunker

	Ehdr     *OutputEhdr
	Phdr     *OutputPhdr
	Shdr     *OutputShdr
	Got      *GotSection
	GotPlt   *GotPltSection
	Plt      *PltSection
	RelDyn   *DynRelSection
	RelPlt   *DynRelSection
	Dynamic  *DynamicSection
	Dynsym   *DynsymSection
	Dynstr   *StrtabSection
	Hash     *HashSection
	Interp   *InterpSection
	Symtab   *SymtabSection
	Strtab   *StrtabSection
	Shstrtab *StrtabSection
	Common   *CommonSection
	Stubs    *StubSection

	stubMap map[*Symbol]int

	// Output image.
	Buf     []byte
	OutArea *MemoryArea

	pendingRels []pendingRel
	extraChunks []Chunker

	errors []error
}

func NewContext(cfg *Config) *Context {
	return &Context{
		Cfg:       cfg,
		Diags:     NewDiagnostics(),
		Tree:      NewInputTree(),
		SymbolMap: make(map[string]*Symbol),
	}
}

// Fail records a fatal condition. The pipeline checks after each phase
// and aborts on the first one.
func (ctx *Context) Fail(err error) {
	ctx.errors = append(ctx.errors, err)
}

func (ctx *Context) FirstError() error {
	if len(ctx.errors) == 0 {
		return nil
	}
	return ctx.errors[0]
}
