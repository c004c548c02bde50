package codec

import "encoding/binary"

// View is a read-only window onto a mapped (or in-memory) GVDB byte
// blob. Every structural read against it is bounds- and
// alignment-checked; nothing here trusts the pointers it is asked to
// dereference.
type View []byte

// Deref returns the byte range [pointer.Start, pointer.End) of the
// view, or an error if the range is malformed: start past end, end
// past the view's size, start not aligned to alignment, or alignment
// not a power of two. This is the only gate between an untrusted
// on-disk pointer and a usable Go slice; trusted-parse mode never
// bypasses it — only variant-payload structural validation is ever
// skipped.
func (v View) Deref(p Pointer, alignment uint32) ([]byte, error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return nil, errAlignment(alignment)
	}
	if p.Start > p.End {
		return nil, errTruncated("pointer start exceeds end")
	}
	if uint64(p.End) > uint64(len(v)) {
		return nil, errTruncated("pointer end exceeds blob size")
	}
	if p.Start&(alignment-1) != 0 {
		return nil, errTruncated("pointer start is not aligned")
	}
	return v[p.Start:p.End], nil
}

// ReadU32LE decodes a little-endian uint32 from the first 4 bytes of b.
func ReadU32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, errTruncated("not enough bytes for a u32")
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU16LE decodes a little-endian uint16 from the first 2 bytes of b.
func ReadU16LE(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, errTruncated("not enough bytes for a u16")
	}
	return binary.LittleEndian.Uint16(b), nil
}

// PutU32LE encodes v as little-endian into the first 4 bytes of b.
func PutU32LE(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

// PutU16LE encodes v as little-endian into the first 2 bytes of b.
func PutU16LE(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

// DecodePointer reads a (start, end) pair from the first 8 bytes of b.
func DecodePointer(b []byte) (Pointer, error) {
	if len(b) < PointerSize {
		return Pointer{}, errTruncated("not enough bytes for a pointer")
	}
	return Pointer{
		Start: binary.LittleEndian.Uint32(b[0:4]),
		End:   binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// EncodePointer writes p as a (start, end) pair into the first 8 bytes
// of b.
func EncodePointer(b []byte, p Pointer) {
	binary.LittleEndian.PutUint32(b[0:4], p.Start)
	binary.LittleEndian.PutUint32(b[4:8], p.End)
}

// DecodeHashTableHeader reads a 12-byte hash-table block header from
// b: an 8-byte bloom header (packed value in its low 4 bytes, 4
// reserved bytes) followed by a 4-byte bucket count.
func DecodeHashTableHeader(b []byte) (HashTableHeader, error) {
	if len(b) < HashTableHdrSize {
		return HashTableHeader{}, errTruncated("not enough bytes for a hash-table header")
	}
	return HashTableHeader{
		BloomWordAndShift: binary.LittleEndian.Uint32(b[0:4]),
		NBuckets:          binary.LittleEndian.Uint32(b[BloomHeaderSize : BloomHeaderSize+4]),
	}, nil
}

// EncodeHashTableHeader writes h as a 12-byte record into b.
func EncodeHashTableHeader(b []byte, h HashTableHeader) {
	binary.LittleEndian.PutUint32(b[0:4], h.BloomWordAndShift)
	binary.LittleEndian.PutUint32(b[4:BloomHeaderSize], 0)
	binary.LittleEndian.PutUint32(b[BloomHeaderSize:BloomHeaderSize+4], h.NBuckets)
}

// DecodeHashItem reads a 24-byte hash-item record from b.
func DecodeHashItem(b []byte) (HashItem, error) {
	if len(b) < HashItemSize {
		return HashItem{}, errTruncated("not enough bytes for a hash item")
	}
	var item HashItem
	item.HashValue = binary.LittleEndian.Uint32(b[0:4])
	item.ParentIndex = binary.LittleEndian.Uint32(b[4:8])
	item.KeyStart = binary.LittleEndian.Uint32(b[8:12])
	item.KeySize = binary.LittleEndian.Uint16(b[12:14])
	item.TypeChar = b[14]
	item.Unused = b[15]
	copy(item.Value[:], b[16:24])
	return item, nil
}

// EncodeHashItem writes item as a 24-byte record into b.
func EncodeHashItem(b []byte, item HashItem) {
	binary.LittleEndian.PutUint32(b[0:4], item.HashValue)
	binary.LittleEndian.PutUint32(b[4:8], item.ParentIndex)
	binary.LittleEndian.PutUint32(b[8:12], item.KeyStart)
	binary.LittleEndian.PutUint16(b[12:14], item.KeySize)
	b[14] = item.TypeChar
	b[15] = item.Unused
	copy(b[16:24], item.Value[:])
}

// ValuePointer interprets a hash item's Value union as a Pointer.
func (item HashItem) ValuePointer() Pointer {
	return Pointer{
		Start: binary.LittleEndian.Uint32(item.Value[0:4]),
		End:   binary.LittleEndian.Uint32(item.Value[4:8]),
	}
}

// SetValuePointer stores p into a hash item's Value union.
func (item *HashItem) SetValuePointer(p Pointer) {
	binary.LittleEndian.PutUint32(item.Value[0:4], p.Start)
	binary.LittleEndian.PutUint32(item.Value[4:8], p.End)
}
