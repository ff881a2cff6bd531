package pager

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Codec encodes and decodes a value of type T to and from the compact
// binary representation stored in a slot's entry bytes. The format must be
// deterministic and self-describing enough that the slot's own
// (key_length, value_length) suffice to recover the bytes — Codec never
// needs a length prefix of its own for that reason, and none of the codecs
// in this file writes one: StringCodec and BytesCodec store the raw bytes.
type Codec[T any] interface {
	Marshal(v T) []byte
	Unmarshal(data []byte) (T, error)
}

// Int64Codec encodes a signed 64-bit integer as 8 little-endian bytes. This
// mirrors the fixed-width integer tags of the row codec this package's
// teacher used for table rows, narrowed to a single scalar type.
type Int64Codec struct{}

func (Int64Codec) Marshal(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}

func (Int64Codec) Unmarshal(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, &InvalidBufferSizeError{Expected: 8, Got: len(data)}
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

// Uint64Codec encodes an unsigned 64-bit integer as 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Marshal(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func (Uint64Codec) Unmarshal(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, &InvalidBufferSizeError{Expected: 8, Got: len(data)}
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Float64Codec encodes a float64 as 8 little-endian bytes via its bit
// pattern.
type Float64Codec struct{}

func (Float64Codec) Marshal(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func (Float64Codec) Unmarshal(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, &InvalidBufferSizeError{Expected: 8, Got: len(data)}
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

// StringCodec encodes a string as raw UTF-8 bytes — the slot's
// value_length already records the byte count, so no further
// length-prefixing is needed.
type StringCodec struct{}

func (StringCodec) Marshal(v string) []byte {
	return []byte(v)
}

func (StringCodec) Unmarshal(data []byte) (string, error) {
	return string(data), nil
}

// BytesCodec is the identity codec for opaque []byte values.
type BytesCodec struct{}

func (BytesCodec) Marshal(v []byte) []byte {
	return v
}

func (BytesCodec) Unmarshal(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// DynamicValue is a small tagged union for storing heterogeneous scalar
// values under one codec (the CLI demo itself stores plain strings with
// StringCodec), generalizing the tag scheme
// the teacher uses to encode table rows down to a single-value case.
type DynamicValue struct {
	Tag  DynamicTag
	I    int64
	F    float64
	S    string
	B    []byte
	Bool bool
}

// DynamicTag identifies which field of a DynamicValue is populated.
type DynamicTag byte

const (
	TagNil DynamicTag = iota
	TagBool
	TagInt64
	TagFloat64
	TagString
	TagBytes
)

// DynamicValueCodec marshals a DynamicValue using a one-byte type tag
// followed by the fixed- or variable-width payload, directly grounded on
// the teacher's per-column row tag scheme.
type DynamicValueCodec struct{}

func (DynamicValueCodec) Marshal(v DynamicValue) []byte {
	switch v.Tag {
	case TagNil:
		return []byte{byte(TagNil)}
	case TagBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return []byte{byte(TagBool), b}
	case TagInt64:
		buf := make([]byte, 9)
		buf[0] = byte(TagInt64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.I))
		return buf
	case TagFloat64:
		buf := make([]byte, 9)
		buf[0] = byte(TagFloat64)
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.F))
		return buf
	case TagString:
		sb := []byte(v.S)
		buf := make([]byte, 1+len(sb))
		buf[0] = byte(TagString)
		copy(buf[1:], sb)
		return buf
	case TagBytes:
		buf := make([]byte, 1+len(v.B))
		buf[0] = byte(TagBytes)
		copy(buf[1:], v.B)
		return buf
	default:
		return []byte{byte(TagNil)}
	}
}

func (DynamicValueCodec) Unmarshal(data []byte) (DynamicValue, error) {
	if len(data) == 0 {
		return DynamicValue{}, &InvalidBufferSizeError{Expected: 1, Got: 0}
	}
	tag := DynamicTag(data[0])
	switch tag {
	case TagNil:
		return DynamicValue{Tag: TagNil}, nil
	case TagBool:
		if len(data) != 2 {
			return DynamicValue{}, &InvalidBufferSizeError{Expected: 2, Got: len(data)}
		}
		return DynamicValue{Tag: TagBool, Bool: data[1] != 0}, nil
	case TagInt64:
		if len(data) != 9 {
			return DynamicValue{}, &InvalidBufferSizeError{Expected: 9, Got: len(data)}
		}
		return DynamicValue{Tag: TagInt64, I: int64(binary.LittleEndian.Uint64(data[1:]))}, nil
	case TagFloat64:
		if len(data) != 9 {
			return DynamicValue{}, &InvalidBufferSizeError{Expected: 9, Got: len(data)}
		}
		return DynamicValue{Tag: TagFloat64, F: math.Float64frombits(binary.LittleEndian.Uint64(data[1:]))}, nil
	case TagString:
		return DynamicValue{Tag: TagString, S: string(data[1:])}, nil
	case TagBytes:
		b := make([]byte, len(data)-1)
		copy(b, data[1:])
		return DynamicValue{Tag: TagBytes, B: b}, nil
	default:
		return DynamicValue{}, fmt.Errorf("pager: unknown value tag %d", tag)
	}
}
