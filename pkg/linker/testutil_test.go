package linker

import (
	"debug/elf"
	"math"
	"testing"
)

func testConfig(outputType OutputType) *Config {
	cfg := NewConfig()
	cfg.OutputType = outputType
	cfg.Emulation = MachineTypeARM
	return cfg
}

func testContext(t *testing.T, outputType OutputType) *Context {
	t.Helper()
	ctx := NewContext(testConfig(outputType))
	backend, err := NewARMBackend(ctx.Cfg)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	ctx.Backend = backend
	CreateSyntheticSections(ctx)
	return ctx
}

// testObject builds an object with a null section plus one .text-like
// section, bypassing the ELF parser.
func testObject(ctx *Context, name string, alive bool) (*ObjectFile, *InputSection) {
	obj := &ObjectFile{
		InputFile: InputFile{
			File:    &File{Name: name},
			IsAlive: alive,
		},
	}
	obj.ElfSections = []Shdr{
		{},
		{
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Size:      32,
			AddrAlign: 4,
		},
	}
	obj.ShStrtab = []byte("\x00.text\x00")
	obj.ElfSections[1].Name = 1

	isec := &InputSection{
		File:      obj,
		Contents:  make([]byte, 32),
		Shndx:     1,
		ShSize:    32,
		IsAlive:   true,
		P2Align:   2,
		Offset:    0,
		RelsecIdx: math.MaxUint32,
	}
	isec.OutputSection = GetOutputSection(ctx, ".text",
		uint64(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR))
	obj.Sections = []*InputSection{nil, isec}
	obj.FirstGlobal = 1
	obj.ElfSyms = []Sym{{}}
	obj.Symbols = []*Symbol{NewSymbol("")}
	obj.LocalSymbols = []Symbol{*NewSymbol("")}
	ctx.Objs = append(ctx.Objs, obj)
	return obj, isec
}

// addGlobal appends one global symbol table entry to a test object.
func addGlobal(ctx *Context, obj *ObjectFile, name string, esym Sym) *Symbol {
	obj.ElfSyms = append(obj.ElfSyms, esym)
	sym := GetSymbolByName(ctx, name)
	obj.Symbols = append(obj.Symbols, sym)
	return sym
}

func defineGlobal(ctx *Context, obj *ObjectFile, name string, bind uint8) *Symbol {
	return addGlobal(ctx, obj, name, Sym{
		Info:  SymInfo(bind, uint8(elf.STT_FUNC)),
		Shndx: 1,
	})
}

func referGlobal(ctx *Context, obj *ObjectFile, name string) *Symbol {
	return addGlobal(ctx, obj, name, Sym{
		Info:  SymInfo(uint8(elf.STB_GLOBAL), uint8(elf.STT_NOTYPE)),
		Shndx: uint16(elf.SHN_UNDEF),
	})
}

// definedSym makes a resolved function symbol living in isec.
func definedSym(ctx *Context, name string, isec *InputSection, value uint64) *Symbol {
	sym := GetSymbolByName(ctx, name)
	sym.Desc = SymDefine
	sym.SymType = uint8(elf.STT_FUNC)
	sym.Binding = uint8(elf.STB_GLOBAL)
	sym.Visibility = uint8(elf.STV_DEFAULT)
	sym.Value = value
	sym.File = isec.File
	sym.SetInputSection(isec)
	return sym
}

// undefSym makes an unresolved global function reference.
func undefSym(ctx *Context, name string) *Symbol {
	sym := GetSymbolByName(ctx, name)
	sym.SymType = uint8(elf.STT_FUNC)
	sym.Binding = uint8(elf.STB_GLOBAL)
	sym.Visibility = uint8(elf.STV_DEFAULT)
	sym.Referenced = true
	return sym
}
