package linker

// Relocation is one input-side relocation record. TargetData is the
// datum read from the patched location at construction time, already in
// host byte order: the conversion from target bytes happens exactly once
// here, and the matching conversion back exactly once at write-back.
type Relocation struct {
	Type       uint32
	Offset     uint64
	Sym        *Symbol
	SymIdx     uint32
	Addend     int64
	TargetData uint64

	scanned bool
}

// RelocFactory builds relocation records. It refuses to operate without
// a configuration, since the pre-read depends on byte order and bit
// class.
type RelocFactory struct {
	cfg *Config
}

func NewRelocFactory(cfg *Config) (*RelocFactory, error) {
	if cfg == nil {
		return nil, errorf(ErrConfig, "relocation factory used before configuration")
	}
	switch cfg.BitClass {
	case 32, 64:
	default:
		return nil, errorf(ErrConfig, "unsupported bit class %d", cfg.BitClass)
	}
	return &RelocFactory{cfg: cfg}, nil
}

func (f *RelocFactory) Produce(isec *InputSection, offset uint64,
	typ uint32, symIdx uint32, addend int64) Relocation {

	rel := Relocation{
		Type:   typ,
		Offset: offset,
		SymIdx: symIdx,
		Addend: addend,
	}
	if int(symIdx) < len(isec.File.Symbols) {
		rel.Sym = isec.File.Symbols[symIdx]
	}

	// Pre-read the target datum, converting to host order once.
	order := f.cfg.ByteOrder()
	data := isec.Contents
	switch {
	case f.cfg.BitClass == 64 && offset+8 <= uint64(len(data)):
		rel.TargetData = order.Uint64(data[offset:])
	case offset+4 <= uint64(len(data)):
		rel.TargetData = uint64(order.Uint32(data[offset:]))
	}
	return rel
}
