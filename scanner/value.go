package scanner

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// ValueSize is the width of the scanned integer and the alignment of
// every reported match.
const ValueSize = 4

var byteOrder = binary.LittleEndian

// Value is the signed 32-bit integer being searched for.
type Value struct {
	i    int32
	data [ValueSize]byte
}

func NewInt32(i int32) *Value {
	v := &Value{i: i}
	byteOrder.PutUint32(v.data[:], uint32(i))
	return v
}

// ParseInt32 parses a decimal, optionally signed, 32-bit integer.
func ParseInt32(s string) (*Value, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return NewInt32(int32(i)), nil
}

func (v *Value) Int32() int32 {
	return v.i
}

// Bytes is the little-endian encoding as it appears in memory.
func (v *Value) Bytes() []byte {
	return v.data[:]
}

func (v *Value) String() string {
	return strconv.FormatInt(int64(v.i), 10)
}

// Hex returns the in-memory byte pattern, e.g. "2A 00 00 00".
func (v *Value) Hex() string {
	return fmt.Sprintf("% 02X", v.data[:])
}

// EqualBytes compares the first ValueSize bytes of b. A shorter b never
// matches.
func (v *Value) EqualBytes(b []byte) bool {
	if len(b) < ValueSize {
		return false
	}
	return int32(byteOrder.Uint32(b)) == v.i
}
