package linker

import "debug/elf"

// SectionOrderHint steers output section ordering. The backend maps each
// chunk to one of these; layout sorts by hint first.
type SectionOrderHint uint8

const (
	SHONull SectionOrderHint = iota
	SHOInit
	SHORel
	SHOPlt
	SHOText
	SHORelro
	SHOData
	SHOBss
	SHODebug
	SHOUndefined
)

// Backend carries everything target-specific as plain values and
// function pointers, so the core stays free of dynamic dispatch on hot
// paths.
type Backend struct {
	Machine      uint16
	UseRela      bool
	InterpPath   string
	RelocFactory *RelocFactory

	ApplyReloc         func(ctx *Context, isec *InputSection, rel *Relocation, loc []byte) ApplyResult
	SectionOrder       func(ctx *Context, chunk Chunker) SectionOrderHint
	InitTargetSections func(ctx *Context)
	FinalizeSymbol     func(sym *Symbol) bool
	WritePLT0          func(ctx *Context, buf []byte, gotPltAddr, pltAddr uint64)
	WritePLT1          func(ctx *Context, buf []byte, gotEntryAddr, pltEntryAddr uint64)
}

func NewARMBackend(cfg *Config) (*Backend, error) {
	factory, err := NewRelocFactory(cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Machine:            EM_ARM,
		UseRela:            false,
		InterpPath:         "/lib/ld-linux.so.3",
		RelocFactory:       factory,
		ApplyReloc:         armApplyReloc,
		SectionOrder:       armSectionOrder,
		InitTargetSections: armInitTargetSections,
		FinalizeSymbol:     armFinalizeSymbol,
		WritePLT0:          armWritePLT0,
		WritePLT1:          armWritePLT1,
	}, nil
}

// armInitTargetSections registers the ARM unwind and attribute sections
// so input sections of those types have an output home.
func armInitTargetSections(ctx *Context) {
	GetOutputSection(ctx, ".ARM.exidx", uint64(SHT_ARM_EXIDX),
		uint64(elf.SHF_ALLOC|elf.SHF_LINK_ORDER))
	GetOutputSection(ctx, ".ARM.extab", uint64(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC))
	GetOutputSection(ctx, ".ARM.attributes", uint64(SHT_ARM_ATTRIBUTES), 0)
}

// armFinalizeSymbol: no target-specific symbol finalization on ARM.
func armFinalizeSymbol(sym *Symbol) bool {
	return false
}

func armSectionOrder(ctx *Context, chunk Chunker) SectionOrderHint {
	shdr := chunk.GetShdr()
	name := chunk.GetName()

	if chunk == ctx.Ehdr || chunk == ctx.Phdr {
		return SHONull
	}
	if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
		if shdr.Kind == KindDebug {
			return SHODebug
		}
		return SHOUndefined
	}

	switch name {
	case ".interp", ".hash", ".dynsym", ".dynstr":
		return SHOInit
	case ".rel.dyn", ".rela.dyn", ".rel.plt", ".rela.plt":
		return SHORel
	case ".plt":
		return SHOPlt
	case ".dynamic", ".got", ".init_array", ".fini_array",
		".preinit_array", ".ctors", ".dtors", ".data.rel.ro":
		return SHORelro
	case ".got.plt":
		return SHOData
	}

	switch {
	case shdr.Type == uint32(elf.SHT_NOTE):
		return SHOInit
	case shdr.Type == uint32(elf.SHT_NOBITS):
		return SHOBss
	case shdr.Flags&uint64(elf.SHF_WRITE) != 0:
		return SHOData
	}
	return SHOText
}

// armWritePLT0 emits the resolver stub:
//
//	str   lr, [sp, #-4]!
//	ldr   lr, [pc, #4]
//	add   lr, pc, lr
//	ldr   pc, [lr, #8]!
//	.word .got.plt - (.plt + 16)
func armWritePLT0(ctx *Context, buf []byte, gotPltAddr, pltAddr uint64) {
	order := ctx.Cfg.ByteOrder()
	order.PutUint32(buf[0:], 0xe52de004)
	order.PutUint32(buf[4:], 0xe59fe004)
	order.PutUint32(buf[8:], 0xe08fe00e)
	order.PutUint32(buf[12:], 0xe5bef008)
	order.PutUint32(buf[16:], uint32(gotPltAddr-(pltAddr+16)))
}

// armWritePLT1 emits one lazy-binding entry:
//
//	add ip, pc, #G0
//	add ip, ip, #G1
//	ldr pc, [ip, #G2]!
//
// where G0:G1:G2 split the displacement from the entry to its .got.plt
// slot.
func armWritePLT1(ctx *Context, buf []byte, gotEntryAddr, pltEntryAddr uint64) {
	order := ctx.Cfg.ByteOrder()
	offset := uint32(gotEntryAddr - (pltEntryAddr + 8))
	order.PutUint32(buf[0:], 0xe28fc600|(offset>>20)&0xff)
	order.PutUint32(buf[4:], 0xe28cca00|(offset>>12)&0xff)
	order.PutUint32(buf[8:], 0xe5bcf000|offset&0xfff)
}
