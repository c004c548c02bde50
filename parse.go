package gvdb

import (
	"github.com/dconf/gvdb/internal/codec"
	"github.com/dconf/gvdb/internal/utils"
	"github.com/dconf/gvdb/variant"
)

// parsedHeader is the decoded hash-table block header: the hash-item
// array plus everything needed to look one item up by index.
type parsedHeader struct {
	hashItems []codec.HashItem

	// visiting marks hash items currently (or already) materialized,
	// either as a top-level entry of the table or through a list index
	// array. An index seen twice means the file
	// references the same item from two places, which well-formed
	// input never does; the parser skips it instead of recursing into
	// a cycle.
	visiting []bool
}

// Parse decodes a GVDB byte blob into a Tree. When trusted is true,
// variant payload structural validation may be skipped by the variant
// library; the byte-view bounds and alignment checks are never
// skipped.
func Parse(data []byte, trusted bool) (*Tree, error) {
	if len(data) < codec.HeaderSize {
		return nil, newErr(Truncated, "file shorter than the gvdb header", nil)
	}

	sig0, _ := codec.ReadU32LE(data[0:4])
	sig1, _ := codec.ReadU32LE(data[4:8])
	version, _ := codec.ReadU32LE(data[8:12])

	var byteswap bool
	switch {
	case sig0 == codec.Signature0 && sig1 == codec.Signature1:
		byteswap = false
	case sig0 == codec.SwappedSignature0 && sig1 == codec.SwappedSignature1:
		byteswap = true
	default:
		return nil, newErr(InvalidHeader, "bad gvdb signature", nil)
	}
	if version != 0 {
		return nil, newErr(InvalidHeader, "unsupported gvdb version", nil)
	}

	root, err := codec.DecodePointer(data[16:24])
	if err != nil {
		return nil, newErr(Truncated, "reading root pointer", err)
	}

	view := codec.View(data)
	rootTable, err := parseTable(view, byteswap, trusted, root, make(map[uint32]bool))
	if err != nil {
		return nil, err
	}

	return &Tree{Root: rootTable, Byteswap: byteswap}, nil
}

// parseTable materializes the hash-table block at pointer as a
// Table-tagged node. visitedBlocks tracks the start offset of every
// hash-table block already entered on this walk: a malformed file whose sub-table pointer leads back to an
// enclosing block would otherwise recurse without bound.
func parseTable(view codec.View, byteswap, trusted bool, pointer codec.Pointer, visitedBlocks map[uint32]bool) (*Node, error) {
	if visitedBlocks[pointer.Start] {
		return nil, newErr(Truncated, "hash-table block references an already-visited block", nil)
	}
	visitedBlocks[pointer.Start] = true

	hdr, err := parseTableHeader(view, pointer)
	if err != nil {
		return nil, newErr(Truncated, "parsing hash table header", err)
	}

	result := NewTable()

	for i := range hdr.hashItems {
		item := hdr.hashItems[i]
		if item.ParentIndex != codec.NoParent {
			continue
		}
		hdr.visiting[i] = true

		key, err := itemKey(view, item)
		if err != nil {
			continue // a table child that fails dereference is dropped
		}

		child, err := materialize(view, byteswap, trusted, hdr, item, visitedBlocks)
		if err != nil || child == nil {
			continue
		}

		if err := insertTableChild(result, key, child); err != nil {
			continue
		}
	}

	return result, nil
}

// parseTableHeader decodes the bloom header, bucket array, and
// hash-item array bounds of the hash-table block at pointer.
func parseTableHeader(view codec.View, pointer codec.Pointer) (parsedHeader, error) {
	block, err := view.Deref(pointer, 4)
	if err != nil {
		return parsedHeader{}, err
	}
	if len(block) < codec.HashTableHdrSize {
		return parsedHeader{}, errShortBlock
	}

	hth, err := codec.DecodeHashTableHeader(block)
	if err != nil {
		return parsedHeader{}, err
	}

	remaining := block[codec.HashTableHdrSize:]
	nBloomWords := hth.NBloomWords()

	bloomBytes := uint64(nBloomWords) * 4
	if bloomBytes > uint64(len(remaining)) {
		return parsedHeader{}, errShortBlock
	}
	remaining = remaining[bloomBytes:]

	bucketBytes := uint64(hth.NBuckets) * 4
	if bucketBytes > uint64(len(remaining)) {
		return parsedHeader{}, errShortBlock
	}
	remaining = remaining[bucketBytes:]

	if len(remaining)%codec.HashItemSize != 0 {
		return parsedHeader{}, errShortBlock
	}
	nHashItems := len(remaining) / codec.HashItemSize

	// The byte-length checks above already bound nHashItems by the
	// block's size within the file; ValidateBufferSize additionally
	// caps it at MaxHashItems with a clear error.
	if err := utils.ValidateBufferSize(uint64(nHashItems), utils.MaxHashItems, "hash item count"); err != nil {
		return parsedHeader{}, err
	}

	items := make([]codec.HashItem, nHashItems)
	for i := 0; i < nHashItems; i++ {
		rec, err := codec.DecodeHashItem(remaining[i*codec.HashItemSize:])
		if err != nil {
			return parsedHeader{}, err
		}
		items[i] = rec
	}

	return parsedHeader{hashItems: items, visiting: make([]bool, nHashItems)}, nil
}

// itemKey dereferences item's key string against the whole file view:
// key_start/key_size are file-absolute offsets, not relative to the
// enclosing table block.
func itemKey(view codec.View, item codec.HashItem) (string, error) {
	start := item.KeyStart
	end := start + uint32(item.KeySize)
	if end < start || uint64(end) > uint64(len(view)) {
		return "", errShortBlock
	}
	return string(view[start:end]), nil
}

// materialize builds the node for item according to its TypeChar.
func materialize(view codec.View, byteswap, trusted bool, hdr parsedHeader, item codec.HashItem, visitedBlocks map[uint32]bool) (*Node, error) {
	switch codec.TagFromTypeChar(item.TypeChar) {
	case codec.TagVariant:
		return parseVariant(view, byteswap, trusted, item)
	case codec.TagList:
		return parseList(view, byteswap, trusted, hdr, item, visitedBlocks)
	case codec.TagTable:
		return parseTable(view, byteswap, trusted, item.ValuePointer(), visitedBlocks)
	default:
		return nil, newErr(BadType, "unrecognized hash item type character", nil)
	}
}

func parseVariant(view codec.View, byteswap, trusted bool, item codec.HashItem) (*Node, error) {
	data, err := view.Deref(item.ValuePointer(), 8)
	if err != nil {
		return nil, err
	}

	value, err := variant.FromBytes(data, trusted)
	if err != nil {
		return nil, err
	}
	if byteswap {
		value = value.Byteswap()
	}

	node := NewEmptyItem()
	if err := SetVariant(node, value); err != nil {
		return nil, err
	}
	return node, nil
}

func parseList(view codec.View, byteswap, trusted bool, hdr parsedHeader, item codec.HashItem, visitedBlocks map[uint32]bool) (*Node, error) {
	idxBytes, err := view.Deref(item.ValuePointer(), 4)
	if err != nil {
		return nil, err
	}
	if len(idxBytes)%4 != 0 {
		return nil, errShortBlock
	}

	node := NewEmptyItem()
	node.tag = codec.TagList

	count := len(idxBytes) / 4
	for i := 0; i < count; i++ {
		idx32, _ := codec.ReadU32LE(idxBytes[i*4:])
		idx := int(idx32)
		// Indices at or beyond n_hash_items are silently skipped, as
		// is an index already materialized through another list,
		// which in a malformed file could otherwise chain back into
		// this one.
		if idx < 0 || idx >= len(hdr.hashItems) || hdr.visiting[idx] {
			continue
		}
		hdr.visiting[idx] = true

		elemItem := hdr.hashItems[idx]
		key, err := itemKey(view, elemItem)
		if err != nil {
			continue
		}

		child, err := materialize(view, byteswap, trusted, hdr, elemItem, visitedBlocks)
		if err != nil || child == nil {
			continue
		}

		if err := appendListChild(node, key, child); err != nil {
			continue
		}
	}

	return node, nil
}

var errShortBlock = newErr(Truncated, "hash-table block too short for its declared layout", nil)
