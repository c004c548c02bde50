// Package codec implements component A of the GVDB format: the
// alignment-checked byte view into a mapped file, the little-endian
// primitives used to decode its fixed-size records, and the djb2 hash
// that indexes a table's hash-item array.
//
// Everything here is pure and allocation-free where possible; it knows
// nothing about the tree model in package gvdb, only about the raw
// on-disk byte layout.
package codec

// Signature words identifying a GVDB file, and their byte-swapped
// counterparts used when the stored variant payloads are in
// non-host endianness. Values match the reference dconf/GLib format.
const (
	Signature0        uint32 = 1918981703
	Signature1        uint32 = 1953390953
	SwappedSignature0 uint32 = 0x47566172
	SwappedSignature1 uint32 = 0x69616e74
)

// Structural sizes, in bytes, of the fixed-size records making up a
// GVDB file (an empty root table serializes to exactly 44 bytes:
// header, bloom header, bucket count):
//   - HeaderSize is 32: two 4-byte signature words, a 4-byte version
//     word, a 4-byte options word, and an 8-byte root pointer sum to
//     24; the remaining 8 bytes are reserved padding this
//     implementation always zero-fills.
//   - A hash-table block's fixed overhead is BloomHeaderSize (8, the
//     packed shift/n_bloom_words word in its low 32 bits, the high 32
//     bits reserved) plus BucketCountSize (4, the bucket count word).
const (
	HeaderSize       = 32
	PointerSize      = 8
	BloomHeaderSize  = 8
	BucketCountSize  = 4
	HashTableHdrSize = BloomHeaderSize + BucketCountSize
	HashItemSize     = 24
)

// Pointer is an on-disk (start, end) byte-offset pair referencing a
// chunk in the file. Both fields are little-endian 32-bit.
type Pointer struct {
	Start uint32
	End   uint32
}

// Size returns the byte length a Pointer addresses.
func (p Pointer) Size() uint32 {
	if p.End < p.Start {
		return 0
	}
	return p.End - p.Start
}

// Header is the fixed 32-byte record at the start of a GVDB file.
type Header struct {
	Signature0 uint32
	Signature1 uint32
	Version    uint32
	Options    uint32
	Root       Pointer
}

// HashTableHeader is the 12-byte record at the start of a hash-table
// block: an 8-byte bloom-filter header followed by a 4-byte bucket
// count.
type HashTableHeader struct {
	// BloomWordAndShift packs (shift << 27) | n_bloom_words. This
	// implementation always writes shift=5, n_bloom_words=0 and
	// tolerates any value when reading, since other writers may emit
	// non-zero bloom headers.
	BloomWordAndShift uint32
	NBuckets          uint32
}

// NBloomWords extracts the low 27 bits of the bloom header word.
func (h HashTableHeader) NBloomWords() uint32 {
	return h.BloomWordAndShift & ((1 << 27) - 1)
}

// BloomShift extracts the high 5 bits of the bloom header word.
func (h HashTableHeader) BloomShift() uint32 {
	return h.BloomWordAndShift >> 27
}

// HashItem is the 24-byte fixed record describing one child of a
// table's hash-item array.
type HashItem struct {
	HashValue   uint32
	ParentIndex uint32
	KeyStart    uint32
	KeySize     uint16
	TypeChar    byte
	Unused      byte
	Value       [8]byte // either a Pointer or 8 direct bytes, by TypeChar
}

// NoParent marks a hash item as a direct (top-level) child of the
// table that owns its hash-item array.
const NoParent uint32 = 0xFFFFFFFF

// Tag is the in-memory tagged-union discriminant for a tree node,
// mirroring the on-disk TypeChar but including the non-serializable
// None tag.
type Tag int

const (
	TagNone Tag = iota
	TagVariant
	TagTable
	TagList
)

// TypeCharFromTag maps a serializable tag to its on-disk character.
// Returns 0 for TagNone, which never appears on disk.
func TypeCharFromTag(t Tag) byte {
	switch t {
	case TagVariant:
		return 'v'
	case TagTable:
		return 'H'
	case TagList:
		return 'L'
	default:
		return 0
	}
}

// TagFromTypeChar is the inverse of TypeCharFromTag; an unrecognized
// character maps to TagNone.
func TagFromTypeChar(c byte) Tag {
	switch c {
	case 'v':
		return TagVariant
	case 'H':
		return TagTable
	case 'L':
		return TagList
	default:
		return TagNone
	}
}
