package linker

import (
	"debug/elf"
	"strings"
)

var outputPrefixes = []string{
	".text.", ".data.rel.ro.", ".data.", ".rodata.", ".bss.rel.ro.", ".bss.",
	".init_array.", ".fini_array.", ".preinit_array.", ".tbss.", ".tdata.",
	".gcc_except_table.",
	".ctors.", ".dtors.", ".ARM.exidx.", ".ARM.extab.",
}

// GetOutputName maps an input section name onto its output section stem.
func GetOutputName(name string, flags uint64) string {
	if (name == ".rodata" || strings.HasPrefix(name, ".rodata.")) &&
		flags&uint64(elf.SHF_MERGE) != 0 {
		if flags&uint64(elf.SHF_STRINGS) != 0 {
			return ".rodata.str"
		}
		return ".rodata.cst"
	}

	for _, prefix := range outputPrefixes {
		stem := prefix[:len(prefix)-1]
		if name == stem || strings.HasPrefix(name, prefix) {
			return stem
		}
	}
	return name
}

// OutputSection concatenates same-named alive input sections.
type OutputSection struct {
	Chunk
	Members []*InputSection
	Idx     uint32
}

func NewOutputSection(
	name string, typ uint32, flags uint64, idx uint32) *OutputSection {
	o := &OutputSection{Chunk: NewChunk()}
	o.Name = name
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	o.Shdr.Kind = sectionKindFor(name, typ, flags)
	o.Idx = idx
	return o
}

func sectionKindFor(name string, typ uint32, flags uint64) SectionKind {
	switch typ {
	case uint32(elf.SHT_NULL):
		return KindNull
	case uint32(elf.SHT_NOBITS):
		return KindBSS
	case uint32(elf.SHT_NOTE):
		return KindNote
	case uint32(elf.SHT_REL), uint32(elf.SHT_RELA):
		return KindRelocation
	case uint32(elf.SHT_SYMTAB), uint32(elf.SHT_DYNSYM):
		return KindSymbolTable
	case uint32(elf.SHT_STRTAB):
		return KindStringTable
	case uint32(elf.SHT_GROUP):
		return KindGroup
	case SHT_ARM_EXIDX, SHT_ARM_ATTRIBUTES:
		return KindTarget
	}
	switch {
	case strings.HasPrefix(name, ".debug"):
		return KindDebug
	case strings.HasPrefix(name, ".gcc_except_table"):
		return KindGCCExceptTable
	case name == ".note.GNU-stack":
		return KindStackNote
	case flags&uint64(elf.SHF_ALLOC) == 0:
		return KindMetaData
	case flags&uint64(elf.SHF_WRITE) != 0:
		return KindData
	case flags&uint64(elf.SHF_EXECINSTR) != 0:
		return KindRegular
	}
	return KindReadOnly
}

func (o *OutputSection) CopyBuf(ctx *Context) error {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return nil
	}

	region, err := ctx.OutArea.Request(o.Shdr.Offset, o.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	base := region.Start()
	for _, isec := range o.Members {
		if err := isec.WriteTo(ctx, base[isec.Offset:]); err != nil {
			return err
		}
	}
	return region.Sync()
}

// GetOutputSection interns the output section an input section of this
// name/type/flags lands in, creating it on first sight.
func GetOutputSection(
	ctx *Context, name string, typ, flags uint64) *OutputSection {
	name = GetOutputName(name, flags)
	flags = flags &^ uint64(elf.SHF_GROUP) &^
		uint64(elf.SHF_COMPRESSED) &^ uint64(elf.SHF_LINK_ORDER)

	for _, osec := range ctx.OutputSections {
		if name == osec.Name && typ == uint64(osec.Shdr.Type) &&
			flags == osec.Shdr.Flags {
			return osec
		}
	}

	osec := NewOutputSection(name, uint32(typ), flags,
		uint32(len(ctx.OutputSections)))
	ctx.OutputSections = append(ctx.OutputSections, osec)
	return osec
}
