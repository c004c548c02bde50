package gvdb

import (
	"github.com/dconf/gvdb/internal/codec"
	"github.com/dconf/gvdb/internal/utils"
	"github.com/dconf/gvdb/internal/writer"
)

// maxKeyLen is the largest key size a 16-bit key_size field can record.
const maxKeyLen = 65535

// bloomShift is the shift value this writer always stores; it never
// emits bloom words (n_bloom_words is always 0), matching
// internal/codec.HashTableHeader's doc comment.
const bloomShift = 5

// draftItem is one entry destined for some table's hash-item array,
// before bucket placement has assigned it a final index. parentDraft is
// the draft index of its enclosing list element, or -1 for a top-level
// table entry.
type draftItem struct {
	key         string
	node        *Node
	parentDraft int
}

// collectItems flattens table's top-level entries and, recursively,
// the members of any List entries (stopping at nested Table
// boundaries) into the draft item sequence that will become table's
// own hash-item array. children maps a list item's draft index to the draft indices of its
// direct elements, in list order, so the list's index-array payload can
// be built after final placement is known.
func collectItems(table *Node) (items []draftItem, children map[int][]int) {
	items = make([]draftItem, 0, table.ChildCount())
	children = make(map[int][]int)

	var walkList func(list *Node, parentDraft int)
	walkList = func(list *Node, parentDraft int) {
		for _, e := range list.list {
			idx := len(items)
			items = append(items, draftItem{key: e.key, node: e.item, parentDraft: parentDraft})
			children[parentDraft] = append(children[parentDraft], idx)
			if e.item.Tag() == codec.TagList {
				walkList(e.item, idx)
			}
		}
	}

	for _, key := range sortedTableKeys(table) {
		child := table.table[key]
		idx := len(items)
		items = append(items, draftItem{key: key, node: child, parentDraft: -1})
		if child.Tag() == codec.TagList {
			walkList(child, idx)
		}
	}

	return items, children
}

// Write serializes tree into a contiguous GVDB byte buffer.
func Write(tree *Tree) ([]byte, error) {
	if tree.Root.Tag() != codec.TagTable {
		return nil, newErr(BadType, "tree root must be a table", nil)
	}

	q := writer.NewChunkQueue(uint64(codec.HeaderSize))

	rootPtr, err := writeTable(q, tree.Byteswap, tree.Root)
	if err != nil {
		return nil, err
	}

	header := make([]byte, codec.HeaderSize)
	if tree.Byteswap {
		codec.PutU32LE(header[0:4], codec.SwappedSignature0)
		codec.PutU32LE(header[4:8], codec.SwappedSignature1)
	} else {
		codec.PutU32LE(header[0:4], codec.Signature0)
		codec.PutU32LE(header[4:8], codec.Signature1)
	}
	codec.EncodePointer(header[16:24], rootPtr)

	out, err := q.Serialize(header)
	if err != nil {
		return nil, newErr(InternalLayout, "serializing chunk queue", err)
	}
	return out, nil
}

// writeTable lays out table's hash-table block (header, bucket-start
// array, hash-item array) plus every key string and value payload the
// block's items reference, and returns the pointer to the block
// itself.
func writeTable(q *writer.ChunkQueue, byteswap bool, table *Node) (codec.Pointer, error) {
	items, children := collectItems(table)
	n := uint32(len(items))
	if uint64(n) != uint64(table.ChildCount()) {
		return codec.Pointer{}, newErr(InternalLayout, "collected item count does not match table child count", nil)
	}

	// n comes from an in-memory tree's own child-count bookkeeping, but
	// the multiplications below still go through overflow-checked
	// helpers: a tree built from untrusted input (e.g. re-serializing a
	// parsed-with-trusted=false file) should fail with InternalLayout
	// rather than silently wrap on a 32-bit platform.
	bucketBytes, err := utils.SafeMultiply(4, uint64(n))
	if err != nil {
		return codec.Pointer{}, newErr(InternalLayout, "sizing bucket-start array", err)
	}
	itemBytes, err := utils.SafeMultiply(uint64(codec.HashItemSize), uint64(n))
	if err != nil {
		return codec.Pointer{}, newErr(InternalLayout, "sizing hash-item array", err)
	}
	blockSize := uint64(codec.HashTableHdrSize) + bucketBytes + itemBytes
	offset, block, err := q.Reserve(blockSize, 4)
	if err != nil {
		return codec.Pointer{}, newErr(InternalLayout, "reserving hash-table block", err)
	}
	blockPtr := codec.Pointer{Start: uint32(offset), End: uint32(offset) + uint32(blockSize)}

	codec.EncodeHashTableHeader(block[:codec.HashTableHdrSize], codec.HashTableHeader{
		BloomWordAndShift: bloomShift << 27,
		NBuckets:          n,
	})

	if n == 0 {
		return blockPtr, nil
	}

	hashes := make([]uint32, n)
	for i, it := range items {
		hashes[i] = codec.Hash(it.key)
	}

	counts := make([]uint32, n)
	for _, h := range hashes {
		counts[h%n]++
	}
	bucketStarts := make([]uint32, n)
	var sum uint32
	for i := uint32(0); i < n; i++ {
		bucketStarts[i] = sum
		sum += counts[i]
	}

	bucketArray := block[codec.HashTableHdrSize : uint64(codec.HashTableHdrSize)+4*uint64(n)]
	for i := uint32(0); i < n; i++ {
		codec.PutU32LE(bucketArray[i*4:], bucketStarts[i])
	}
	itemsArray := block[uint64(codec.HashTableHdrSize)+4*uint64(n):]

	occupant := make([]uint32, n)
	finalIndex := make([]uint32, n)
	used := make([]bool, n)
	for i := range items {
		bucket := hashes[i] % n
		pos := bucketStarts[bucket] + occupant[bucket]
		occupant[bucket]++
		if pos >= n || used[pos] {
			return codec.Pointer{}, newErr(InternalLayout, "hash bucket collision while writing table", nil)
		}
		used[pos] = true
		finalIndex[i] = pos
	}

	for i, it := range items {
		if it.node.Tag() == codec.TagNone {
			return codec.Pointer{}, newErr(BadType, "cannot serialize an unset node", nil)
		}
		if len(it.key) > maxKeyLen {
			return codec.Pointer{}, newErr(KeyTooLong, "table key exceeds 65535 bytes", nil)
		}

		keyOffset, err := q.Add([]byte(it.key), 1)
		if err != nil {
			return codec.Pointer{}, newErr(InternalLayout, "writing key string", err)
		}

		valuePtr, err := writeValue(q, byteswap, it.node, i, children, finalIndex)
		if err != nil {
			return codec.Pointer{}, err
		}

		rec := codec.HashItem{
			HashValue: hashes[i],
			KeyStart:  uint32(keyOffset),
			KeySize:   uint16(len(it.key)),
			TypeChar:  codec.TypeCharFromTag(it.node.Tag()),
		}
		if it.parentDraft >= 0 {
			rec.ParentIndex = finalIndex[it.parentDraft]
		} else {
			rec.ParentIndex = codec.NoParent
		}
		rec.SetValuePointer(valuePtr)

		codec.EncodeHashItem(itemsArray[uint64(finalIndex[i])*codec.HashItemSize:], rec)
	}

	return blockPtr, nil
}

// writeValue lays out node's value payload and returns the pointer a
// hash item's value union should record for it: a normalized (and
// optionally byteswapped) variant payload, a list index-array, or a
// recursively written sub-table block.
func writeValue(q *writer.ChunkQueue, byteswap bool, node *Node, draftIdx int, children map[int][]int, finalIndex []uint32) (codec.Pointer, error) {
	switch node.Tag() {
	case codec.TagVariant:
		v, err := GetVariant(node)
		if err != nil {
			return codec.Pointer{}, err
		}
		norm := v.NormalForm()
		if byteswap {
			norm = norm.Byteswap()
		}
		buf := utils.GetBuffer(norm.Size())
		norm.Store(buf)
		offset, err := q.Add(buf, 8)
		if err != nil {
			return codec.Pointer{}, newErr(InternalLayout, "writing variant payload", err)
		}
		return codec.Pointer{Start: uint32(offset), End: uint32(offset) + uint32(len(buf))}, nil

	case codec.TagList:
		// finalIndex is fully populated for every draft item (including
		// this list's own elements) before any value is written, so the
		// index array can reference each element's final hash-item
		// position directly.
		elemDrafts := children[draftIdx]
		buf := utils.GetBuffer(4 * len(elemDrafts))
		for i, d := range elemDrafts {
			codec.PutU32LE(buf[i*4:], finalIndex[d])
		}
		offset, err := q.Add(buf, 4)
		if err != nil {
			return codec.Pointer{}, newErr(InternalLayout, "writing list index array", err)
		}
		return codec.Pointer{Start: uint32(offset), End: uint32(offset) + uint32(len(buf))}, nil

	case codec.TagTable:
		return writeTable(q, byteswap, node)

	default:
		return codec.Pointer{}, newErr(BadType, "unrecognized node tag during write", nil)
	}
}
