package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type InputType uint8

const (
	InputUnknown InputType = iota
	InputObject
	InputDynObj
	InputArchive
	InputScript
	InputMemoryImage
)

func (t InputType) String() string {
	switch t {
	case InputObject:
		return "object"
	case InputDynObj:
		return "shared object"
	case InputArchive:
		return "archive"
	case InputScript:
		return "linker script"
	case InputMemoryImage:
		return "memory image"
	}
	return "unknown"
}

// GetInputType probes the first bytes of an input to classify it.
func GetInputType(contents []byte) InputType {
	if CheckMagic(contents) {
		if len(contents) < EhdrSize {
			return InputUnknown
		}
		var order binary.ByteOrder = binary.LittleEndian
		if contents[elf.EI_DATA] == uint8(elf.ELFDATA2MSB) {
			order = binary.BigEndian
		}
		et := order.Uint16(contents[16:])
		switch elf.Type(et) {
		case elf.ET_REL:
			return InputObject
		case elf.ET_DYN:
			return InputDynObj
		}
		return InputUnknown
	}
	if bytes.HasPrefix(contents, []byte("!<arch>\n")) {
		return InputArchive
	}
	if looksLikeScript(contents) {
		return InputScript
	}
	return InputUnknown
}

func looksLikeScript(contents []byte) bool {
	head := contents
	if len(head) > 256 {
		head = head[:256]
	}
	for _, tok := range []string{"GROUP", "INPUT", "OUTPUT_FORMAT", "SECTIONS"} {
		if bytes.Contains(head, []byte(tok)) {
			return true
		}
	}
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\n"), []byte("/*"))
}

// GetMachineType inspects an ELF input's e_machine field.
func GetMachineType(contents []byte) MachineType {
	ft := GetInputType(contents)
	if ft != InputObject && ft != InputDynObj {
		return MachineTypeNone
	}

	var order binary.ByteOrder = binary.LittleEndian
	if contents[elf.EI_DATA] == uint8(elf.ELFDATA2MSB) {
		order = binary.BigEndian
	}
	machine := order.Uint16(contents[18:])
	if machine == EM_ARM && contents[elf.EI_CLASS] == uint8(elf.ELFCLASS32) {
		return MachineTypeARM
	}
	return MachineTypeNone
}

func CheckFileCompatibility(cfg *Config, file *File) error {
	mt := GetMachineType(file.Contents)
	if mt != cfg.Emulation {
		return errorf(ErrInvalidInput, "%s: incompatible file type", file.Name)
	}
	return nil
}
