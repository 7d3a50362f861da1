package linker

// SectionKind is the semantic class of a section, independent of its
// format-specific type code.
type SectionKind uint8

const (
	KindNull SectionKind = iota
	KindRegular
	KindBSS
	KindNamePool
	KindRelocation
	KindTarget
	KindDebug
	KindGCCExceptTable
	KindVersion
	KindNote
	KindMetaData
	KindGroup
	KindStackNote
	KindSymbolTable
	KindStringTable
	KindGOT
	KindPLT
	KindData
	KindReadOnly
)

// SectionHeader is the class-agnostic header carried by every output
// chunk. The writer narrows it to the ELF32 wire form at emission.
type SectionHeader struct {
	NameIdx   uint32
	Kind      SectionKind
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Chunker is implemented by everything that occupies space in the output
// image: concatenated input sections, merged pools, and the synthetic
// sections (headers, GOT, PLT, dynamic tables).
type Chunker interface {
	GetName() string
	GetShdr() *SectionHeader
	GetShndx() int64
	SetShndx(int64)
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context) error
}

type Chunk struct {
	Name  string
	Shdr  SectionHeader
	Shndx int64
}

func NewChunk() Chunk {
	return Chunk{Shdr: SectionHeader{AddrAlign: 1}}
}

func (c *Chunk) GetName() string {
	return c.Name
}

func (c *Chunk) GetShdr() *SectionHeader {
	return &c.Shdr
}

func (c *Chunk) GetShndx() int64 {
	return c.Shndx
}

func (c *Chunk) SetShndx(idx int64) {
	c.Shndx = idx
}

func (c *Chunk) UpdateShdr(ctx *Context) {}

func (c *Chunk) CopyBuf(ctx *Context) error { return nil }
