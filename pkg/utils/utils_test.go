package utils

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteRoundTrip(t *testing.T) {
	type rec struct {
		A uint32
		B uint16
		C uint16
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		buf := make([]byte, 8)
		in := rec{A: 0xdeadbeef, B: 0x1234, C: 0x5678}
		Write[rec](buf, in, order)
		out := Read[rec](buf, order)
		assert.Equal(t, in, out)
	}
}

func TestReadSlice(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], 1)
	binary.LittleEndian.PutUint32(buf[4:], 2)
	binary.LittleEndian.PutUint32(buf[8:], 3)

	vals := ReadSlice[uint32](buf, 4, binary.LittleEndian)
	assert.Equal(t, []uint32{1, 2, 3}, vals)
}

func TestAlignTo(t *testing.T) {
	assert.Equal(t, uint64(0), AlignTo(0, 8))
	assert.Equal(t, uint64(8), AlignTo(1, 8))
	assert.Equal(t, uint64(8), AlignTo(8, 8))
	assert.Equal(t, uint64(16), AlignTo(9, 8))
	assert.Equal(t, uint64(7), AlignTo(7, 0))
	assert.Equal(t, uint64(5), AlignTo(5, 1))
}

func TestBitsAndSignExtend(t *testing.T) {
	assert.Equal(t, uint32(1), Bit(uint32(0x10), 4))
	assert.Equal(t, uint32(0), Bit(uint32(0x10), 3))
	assert.Equal(t, uint32(0b101), Bits(uint32(0b10100), 4, 2))

	assert.Equal(t, uint64(0xffffffffffffffff), SignExtend(1, 0))
	assert.Equal(t, uint64(0xfffffffffffffffe), SignExtend(0b10, 1))
	assert.Equal(t, uint64(2), SignExtend(0b10, 2))
}

func TestRemoveIf(t *testing.T) {
	vals := []int{1, 2, 3, 4, 5, 6}
	odd := RemoveIf(vals, func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{1, 3, 5}, odd)

	same := RemoveIf([]int{1, 3}, func(v int) bool { return v > 10 })
	assert.Equal(t, []int{1, 3}, same)
}

func TestRemovePrefix(t *testing.T) {
	rest, ok := RemovePrefix("-lm", "-l")
	assert.True(t, ok)
	assert.Equal(t, "m", rest)

	rest, ok = RemovePrefix("foo", "-l")
	assert.False(t, ok)
	assert.Equal(t, "foo", rest)
}

func TestAllZeros(t *testing.T) {
	assert.True(t, AllZeros([]byte{0, 0, 0}))
	assert.True(t, AllZeros(nil))
	assert.False(t, AllZeros([]byte{0, 1, 0}))
}
