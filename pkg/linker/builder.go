package linker

// BuiltSection is a section assembled through the IRBuilder out of raw
// fragments, for callers that synthesise content instead of reading it
// from object files.
type BuiltSection struct {
	Chunk
	Data *SectionData
}

func NewBuiltSection(name string, typ uint32, flags uint64, align uint64) *BuiltSection {
	s := &BuiltSection{Chunk: NewChunk()}
	s.Name = name
	s.Shdr.Type = typ
	s.Shdr.Flags = flags
	s.Shdr.Kind = sectionKindFor(name, typ, flags)
	if align > 0 {
		s.Shdr.AddrAlign = align
	}
	s.Data = NewSectionData(s)
	return s
}

func (s *BuiltSection) CopyBuf(ctx *Context) error {
	if s.Shdr.Size == 0 {
		return nil
	}
	region, err := ctx.OutArea.Request(s.Shdr.Offset, s.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)
	s.Data.WriteTo(region.Start())
	return region.Sync()
}

// IRBuilder is the embedding surface: a compiler driver uses it to feed
// inputs, bracket groups, and synthesise extra sections before calling
// Link.
type IRBuilder struct {
	ctx    *Context
	inputs *InputBuilder
}

func NewIRBuilder(ctx *Context) *IRBuilder {
	return &IRBuilder{
		ctx:    ctx,
		inputs: NewInputBuilder(ctx.Cfg, ctx.Tree),
	}
}

func (b *IRBuilder) ReadInput(path string) error {
	return b.inputs.AddFile(path)
}

func (b *IRBuilder) ReadNamespec(name string) error {
	return b.inputs.AddNamespec(name)
}

func (b *IRBuilder) StartGroup() error { return b.inputs.StartGroup() }
func (b *IRBuilder) EndGroup() error   { return b.inputs.EndGroup() }

func (b *IRBuilder) WholeArchive()   { b.inputs.WholeArchive() }
func (b *IRBuilder) NoWholeArchive() { b.inputs.NoWholeArchive() }
func (b *IRBuilder) AsNeeded()       { b.inputs.AsNeeded() }
func (b *IRBuilder) NoAsNeeded()     { b.inputs.NoAsNeeded() }
func (b *IRBuilder) CopyDTNeeded()   { b.inputs.CopyDTNeeded() }
func (b *IRBuilder) NoCopyDTNeeded() { b.inputs.NoCopyDTNeeded() }
func (b *IRBuilder) AgainstShared()  { b.inputs.AgainstShared() }
func (b *IRBuilder) AgainstStatic()  { b.inputs.AgainstStatic() }

// CreateSection synthesises an output section the layout engine treats
// like any other chunk.
func (b *IRBuilder) CreateSection(name string, typ uint32, flags uint64, align uint64) *BuiltSection {
	s := NewBuiltSection(name, typ, flags, align)
	b.ctx.extraChunks = append(b.ctx.extraChunks, s)
	return s
}

// CreateRegion wraps a span of memory as a region fragment.
func (b *IRBuilder) CreateRegion(data []byte, offset, length uint64) (*Fragment, error) {
	if offset+length > uint64(len(data)) {
		return nil, errorf(ErrIORead,
			"region [%d, %d) is out of range (size %d)",
			offset, offset+length, len(data))
	}
	return NewRegionFragment(data[offset : offset+length]), nil
}

// AppendFragment places a fragment at the end of a built section.
func (b *IRBuilder) AppendFragment(frag *Fragment, s *BuiltSection) uint64 {
	s.Data.AppendBack(frag)
	return s.Shdr.Size
}
