package linker

import "encoding/binary"

type OutputType uint8

const (
	OutputExec OutputType = iota
	OutputDynObj
	OutputRelocatable
)

type MachineType uint8

const (
	MachineTypeNone MachineType = iota
	MachineTypeARM
)

func (m MachineType) String() string {
	switch m {
	case MachineTypeARM:
		return "armelf"
	}
	return "none"
}

// Config is prepared by the front-end and passed by reference everywhere.
// The core never mutates it.
type Config struct {
	Output       string
	OutputType   OutputType
	Emulation    MachineType
	LittleEndian bool
	BitClass     uint8 // 32 or 64
	PIC          bool
	Bsymbolic    bool
	AllowMulDefs bool
	NoUndefined  bool
	SOName       string
	Entry        string
	Sysroot      string
	LibraryPaths []string
}

func NewConfig() *Config {
	return &Config{
		Output:       "a.out",
		OutputType:   OutputExec,
		Emulation:    MachineTypeNone,
		LittleEndian: true,
		BitClass:     32,
		Entry:        "_start",
	}
}

func (c *Config) ByteOrder() binary.ByteOrder {
	if c.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (c *Config) WordSize() uint64 {
	return uint64(c.BitClass) / 8
}

func (c *Config) IsDynObj() bool {
	return c.OutputType == OutputDynObj
}
