package fitdecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// baseType is a base type number with the endian-ability bit masked off.
type baseType uint8

const baseTypeNumMask = 0x1F

const (
	baseEnum baseType = iota
	baseSint8
	baseUint8
	baseSint16
	baseUint16
	baseSint32
	baseUint32
	baseString
	baseFloat32
	baseFloat64
	baseUint8z
	baseUint16z
	baseUint32z
	baseByte
	baseSint64
	baseUint64
	baseUint64z
)

// scalar describes how one element of a numeric base type is laid out.
// invalid is the raw bit pattern that stands for "no value".
type scalar struct {
	size    int
	invalid uint64
	typed   func(bits uint64) any
}

var scalars = [...]scalar{
	baseEnum:    {1, 0xFF, func(b uint64) any { return uint8(b) }},
	baseSint8:   {1, 0x7F, func(b uint64) any { return int8(b) }},
	baseUint8:   {1, 0xFF, func(b uint64) any { return uint8(b) }},
	baseSint16:  {2, 0x7FFF, func(b uint64) any { return int16(b) }},
	baseUint16:  {2, 0xFFFF, func(b uint64) any { return uint16(b) }},
	baseSint32:  {4, 0x7FFFFFFF, func(b uint64) any { return int32(b) }},
	baseUint32:  {4, 0xFFFFFFFF, func(b uint64) any { return uint32(b) }},
	baseFloat32: {4, 0xFFFFFFFF, func(b uint64) any { return float64(math.Float32frombits(uint32(b))) }},
	baseFloat64: {8, math.MaxUint64, func(b uint64) any { return math.Float64frombits(b) }},
	baseUint8z:  {1, 0, func(b uint64) any { return uint8(b) }},
	baseUint16z: {2, 0, func(b uint64) any { return uint16(b) }},
	baseUint32z: {4, 0, func(b uint64) any { return uint32(b) }},
	baseSint64:  {8, math.MaxInt64, func(b uint64) any { return int64(b) }},
	baseUint64:  {8, math.MaxUint64, func(b uint64) any { return b }},
	baseUint64z: {8, 0, func(b uint64) any { return b }},
}

func parseBaseType(b byte) baseType {
	return baseType(b & baseTypeNumMask)
}

// bits widens one element to 64 bits in the definition's byte order.
func (s scalar) bits(raw []byte, arch binary.ByteOrder) uint64 {
	switch s.size {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(arch.Uint16(raw))
	case 4:
		return uint64(arch.Uint32(raw))
	default:
		return arch.Uint64(raw)
	}
}

func (s scalar) value(raw []byte, arch binary.ByteOrder) (any, bool) {
	b := s.bits(raw, arch)
	return s.typed(b), b != s.invalid
}

// decodeField returns the decoded value, whether it is valid, and a
// description of any decode problem. Multi-element fields come back as
// []any and are valid when any element is.
func decodeField(raw []byte, bt baseType, arch binary.ByteOrder) (any, bool, string) {
	switch bt {
	case baseString:
		s, _, _ := bytes.Cut(raw, []byte{0})
		return string(s), len(s) > 0, ""
	case baseByte:
		return bytes.Clone(raw), len(bytes.Trim(raw, "\xff")) > 0, ""
	}
	if int(bt) >= len(scalars) || scalars[bt].typed == nil {
		return nil, false, fmt.Sprintf("unknown base type %d", bt)
	}

	s := scalars[bt]
	if len(raw) == 0 || len(raw)%s.size != 0 {
		return nil, false, fmt.Sprintf("field size %d not divisible by base size %d", len(raw), s.size)
	}
	if len(raw) == s.size {
		v, ok := s.value(raw, arch)
		return v, ok, ""
	}

	values := make([]any, 0, len(raw)/s.size)
	anyValid := false
	for off := 0; off < len(raw); off += s.size {
		v, ok := s.value(raw[off:off+s.size], arch)
		values = append(values, v)
		anyValid = anyValid || ok
	}
	return values, anyValid, ""
}
