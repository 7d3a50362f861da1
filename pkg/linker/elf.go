package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/ZhangLang001/mclinker/pkg/utils"
)

const EhdrSize = 52
const ShdrSize = 40
const PhdrSize = 32
const SymSize = 16
const RelSize = 8
const RelaSize = 12

const PageSize = 4096

// ELF32 file header.
type Ehdr struct {
	Ident     [16]uint8
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	PhOff     uint32
	ShOff     uint32
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrndx  uint16
}

// ELF32 section header.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	AddrAlign uint32
	EntSize   uint32
}

// ELF32 program header.
type Phdr struct {
	Type     uint32
	Offset   uint32
	VAddr    uint32
	PAddr    uint32
	FileSize uint32
	MemSize  uint32
	Flags    uint32
	Align    uint32
}

// ELF32 symbol table entry.
type Sym struct {
	Name  uint32
	Val   uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

// ELF32 REL entry. ARM uses implicit addends.
type Rel struct {
	Offset uint32
	Info   uint32
}

// ELF32 RELA entry.
type Rela struct {
	Offset uint32
	Info   uint32
	Addend int32
}

// ELF32 dynamic table entry.
type Dyn struct {
	Tag uint32
	Val uint32
}

const DynSize = 8

func (r *Rel) SymIdx() uint32  { return r.Info >> 8 }
func (r *Rel) RelType() uint32 { return r.Info & 0xff }

func (r *Rela) SymIdx() uint32  { return r.Info >> 8 }
func (r *Rela) RelType() uint32 { return r.Info & 0xff }

func RelInfo(symIdx uint32, typ uint32) uint32 {
	return symIdx<<8 | typ&0xff
}

func (s *Sym) IsUndef() bool {
	return s.Shndx == uint16(elf.SHN_UNDEF)
}

func (s *Sym) IsDefined() bool {
	return !s.IsUndef()
}

func (s *Sym) IsCommon() bool {
	return s.Shndx == uint16(elf.SHN_COMMON)
}

func (s *Sym) IsAbs() bool {
	return s.Shndx == uint16(elf.SHN_ABS)
}

func (s *Sym) IsWeak() bool {
	return s.Bind() == uint8(elf.STB_WEAK)
}

func (s *Sym) IsUndefWeak() bool {
	return s.IsUndef() && s.IsWeak()
}

func (s *Sym) Type() uint8 {
	return s.Info & 0xf
}

func (s *Sym) Bind() uint8 {
	return s.Info >> 4
}

func (s *Sym) StVisibility() uint8 {
	return s.Other & 0b11
}

func SymInfo(bind, typ uint8) uint8 {
	return bind<<4 | typ&0xf
}

func ElfGetName(strTab []byte, offset uint32) string {
	if offset >= uint32(len(strTab)) {
		return ""
	}
	length := bytes.Index(strTab[offset:], []byte{0})
	if length == -1 {
		return string(strTab[offset:])
	}
	return string(strTab[offset : offset+uint32(length)])
}

func CheckMagic(contents []byte) bool {
	return bytes.HasPrefix(contents, []byte("\177ELF"))
}

func WriteMagic(contents []byte) {
	copy(contents, "\177ELF")
}

func ReadEhdr(data []byte, order binary.ByteOrder) Ehdr {
	return utils.Read[Ehdr](data, order)
}

func ReadShdr(data []byte, order binary.ByteOrder) Shdr {
	return utils.Read[Shdr](data, order)
}

func ReadSyms(data []byte, order binary.ByteOrder) []Sym {
	return utils.ReadSlice[Sym](data, SymSize, order)
}

func ReadRels(data []byte, order binary.ByteOrder) []Rel {
	return utils.ReadSlice[Rel](data, RelSize, order)
}

func ReadRelas(data []byte, order binary.ByteOrder) []Rela {
	return utils.ReadSlice[Rela](data, RelaSize, order)
}

func ReadDyns(data []byte, order binary.ByteOrder) []Dyn {
	return utils.ReadSlice[Dyn](data, DynSize, order)
}
