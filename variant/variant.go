// Package variant defines the contract a GVariant serialization
// library must satisfy to back the gvdb codec's opaque variant
// leaves, and provides one concrete, dependency-free implementation
// covering the primitive type characters dconf schemas use most:
// string, int32, int64, bool, float64.
//
// The codec in package gvdb never constructs a Scalar directly outside
// of tests; it only ever holds a Variant interface value, so a real
// deployment can swap this package for a cgo/gvariant binding without
// touching gvdb.
package variant

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Variant is an opaque, typed leaf value the codec stores and
// retrieves as a byte run but never interprets itself.
type Variant interface {
	// NormalForm returns the canonical byte-level form of the value,
	// the form actually written to disk.
	NormalForm() Variant
	// Size returns the length in bytes of the value's normal form.
	Size() int
	// Store writes the value's normal form into buf, which must be
	// at least Size() bytes long.
	Store(buf []byte)
	// Byteswap returns a copy of the value with all multi-byte fields
	// byte-order reversed, for files whose signature marks payloads
	// as stored in non-host endianness.
	Byteswap() Variant
	// Print renders the value the way a GVariant pretty-printer
	// would: a single line, strings single-quoted.
	Print() string
	// Equal reports structural equality with another Variant,
	// backing gvdb.Tree.Equal's round-trip comparisons.
	Equal(other Variant) bool
}

// Type characters this package's Scalar understands.
const (
	KindString  = 's'
	KindInt32   = 'i'
	KindInt64   = 'x'
	KindBool    = 'b'
	KindFloat64 = 'd'
)

// Scalar is a self-contained Variant covering the primitive GVariant
// type characters used by dconf schemas. Its normal form is a single
// kind byte followed by the type's fixed- or variable-length payload,
// so FromBytes can decode it without any side-channel type
// information — a deliberate simplification of the real GVariant
// framing, justified in this repository's design notes.
type Scalar struct {
	Kind byte

	Str string
	I32 int32
	I64 int64
	Bool bool
	F64 float64
}

// NewString builds a string-typed Scalar.
func NewString(s string) *Scalar { return &Scalar{Kind: KindString, Str: s} }

// NewInt32 builds an int32-typed Scalar.
func NewInt32(v int32) *Scalar { return &Scalar{Kind: KindInt32, I32: v} }

// NewInt64 builds an int64-typed Scalar.
func NewInt64(v int64) *Scalar { return &Scalar{Kind: KindInt64, I64: v} }

// NewBool builds a bool-typed Scalar.
func NewBool(v bool) *Scalar { return &Scalar{Kind: KindBool, Bool: v} }

// NewFloat64 builds a float64-typed Scalar.
func NewFloat64(v float64) *Scalar { return &Scalar{Kind: KindFloat64, F64: v} }

// NormalForm returns the value unchanged: every Scalar is already in
// normal form by construction.
func (s *Scalar) NormalForm() Variant { return s }

// Size returns the byte length of Store's output.
func (s *Scalar) Size() int {
	switch s.Kind {
	case KindString:
		return 1 + len(s.Str) + 1 // kind byte, bytes, NUL terminator
	case KindInt32:
		return 1 + 4
	case KindInt64:
		return 1 + 8
	case KindBool:
		return 1 + 1
	case KindFloat64:
		return 1 + 8
	default:
		return 1
	}
}

// Store writes the value's normal form into buf.
func (s *Scalar) Store(buf []byte) {
	buf[0] = s.Kind
	body := buf[1:]
	switch s.Kind {
	case KindString:
		copy(body, s.Str)
		body[len(s.Str)] = 0
	case KindInt32:
		binary.LittleEndian.PutUint32(body, uint32(s.I32))
	case KindInt64:
		binary.LittleEndian.PutUint64(body, uint64(s.I64))
	case KindBool:
		if s.Bool {
			body[0] = 1
		} else {
			body[0] = 0
		}
	case KindFloat64:
		binary.LittleEndian.PutUint64(body, math.Float64bits(s.F64))
	}
}

// Byteswap returns a copy with multi-byte numeric fields reversed.
// Strings and single bytes (bool) are endianness-agnostic and pass
// through unchanged.
func (s *Scalar) Byteswap() Variant {
	out := *s
	switch s.Kind {
	case KindInt32:
		out.I32 = int32(swap32(uint32(s.I32)))
	case KindInt64:
		out.I64 = int64(swap64(uint64(s.I64)))
	case KindFloat64:
		out.F64 = math.Float64frombits(swap64(math.Float64bits(s.F64)))
	}
	return &out
}

// Print renders the value as a GVariant pretty-printer would.
func (s *Scalar) Print() string {
	switch s.Kind {
	case KindString:
		return "'" + strings.ReplaceAll(s.Str, "'", "\\'") + "'"
	case KindInt32:
		return strconv.FormatInt(int64(s.I32), 10)
	case KindInt64:
		return strconv.FormatInt(s.I64, 10)
	case KindBool:
		if s.Bool {
			return "true"
		}
		return "false"
	case KindFloat64:
		return strconv.FormatFloat(s.F64, 'g', -1, 64)
	default:
		return fmt.Sprintf("<unknown type %q>", s.Kind)
	}
}

// Equal reports whether other is a *Scalar with the same kind and
// value.
func (s *Scalar) Equal(other Variant) bool {
	o, ok := other.(*Scalar)
	if !ok || o.Kind != s.Kind {
		return false
	}
	switch s.Kind {
	case KindString:
		return s.Str == o.Str
	case KindInt32:
		return s.I32 == o.I32
	case KindInt64:
		return s.I64 == o.I64
	case KindBool:
		return s.Bool == o.Bool
	case KindFloat64:
		return s.F64 == o.F64
	default:
		return false
	}
}

// FromBytes decodes a Scalar from its normal-form encoding, as
// produced by Store. Fixed-size payload lengths are always checked;
// trusted only governs a string payload without its NUL terminator,
// which is accepted as-is when trusted is true and rejected otherwise.
func FromBytes(data []byte, trusted bool) (Variant, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("variant: empty payload")
	}
	kind := data[0]
	body := data[1:]

	switch kind {
	case KindString:
		if len(body) == 0 || body[len(body)-1] != 0 {
			if !trusted {
				return nil, fmt.Errorf("variant: string payload missing NUL terminator")
			}
			return &Scalar{Kind: KindString, Str: string(body)}, nil
		}
		return &Scalar{Kind: KindString, Str: string(body[:len(body)-1])}, nil
	case KindInt32:
		if len(body) != 4 {
			return nil, fmt.Errorf("variant: int32 payload has wrong size %d", len(body))
		}
		return &Scalar{Kind: KindInt32, I32: int32(binary.LittleEndian.Uint32(body))}, nil
	case KindInt64:
		if len(body) != 8 {
			return nil, fmt.Errorf("variant: int64 payload has wrong size %d", len(body))
		}
		return &Scalar{Kind: KindInt64, I64: int64(binary.LittleEndian.Uint64(body))}, nil
	case KindBool:
		if len(body) != 1 {
			return nil, fmt.Errorf("variant: bool payload has wrong size %d", len(body))
		}
		return &Scalar{Kind: KindBool, Bool: body[0] != 0}, nil
	case KindFloat64:
		if len(body) != 8 {
			return nil, fmt.Errorf("variant: float64 payload has wrong size %d", len(body))
		}
		return &Scalar{Kind: KindFloat64, F64: math.Float64frombits(binary.LittleEndian.Uint64(body))}, nil
	default:
		return nil, fmt.Errorf("variant: unrecognized type character %q", kind)
	}
}

func swap32(v uint32) uint32 {
	return (v>>24)&0xff | (v>>8)&0xff00 | (v<<8)&0xff0000 | (v<<24)&0xff000000
}

func swap64(v uint64) uint64 {
	return (v>>56)&0xff | (v>>40)&0xff00 | (v>>24)&0xff0000 | (v>>8)&0xff000000 |
		(v<<8)&0xff00000000 | (v<<24)&0xff0000000000 | (v<<40)&0xff000000000000 | (v<<56)&0xff00000000000000
}
