package gvdb

import (
	"sort"

	"github.com/dconf/gvdb/internal/codec"
)

// Tree pairs a root Table node with the byteswap flag it was parsed
// with (or will be written with), so a Parse/Write round trip doesn't
// require the caller to track that flag out of band: byteswap is a
// file-level, not node-level, property.
type Tree struct {
	Root     *Node
	Byteswap bool
}

// NewTree wraps root (which must be Table-tagged) into a Tree with the
// given byteswap flag.
func NewTree(root *Node, byteswap bool) (*Tree, error) {
	if root.Tag() != codec.TagTable {
		return nil, newErr(BadType, "tree root must be a table", nil)
	}
	return &Tree{Root: root, Byteswap: byteswap}, nil
}

// Equal reports structural equality between two trees: same tags, same
// keys in the same lists in the same order, equal variant values, and
// equal child counts per node. A conforming Write/Parse round trip
// preserves equality under this comparison.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return nodesEqual(t.Root, other.Root)
}

func nodesEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag() != b.Tag() || a.ChildCount() != b.ChildCount() {
		return false
	}

	switch a.Tag() {
	case codec.TagVariant:
		av, _ := GetVariant(a)
		bv, _ := GetVariant(b)
		return av.Equal(bv)

	case codec.TagList:
		al, _ := ListGet(a)
		bl, _ := ListGet(b)
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i].Key != bl[i].Key || !nodesEqual(al[i].Item, bl[i].Item) {
				return false
			}
		}
		return true

	case codec.TagTable:
		if len(a.table) != len(b.table) {
			return false
		}
		for key, av := range a.table {
			bv, ok := b.table[key]
			if !ok || !nodesEqual(av, bv) {
				return false
			}
		}
		return true

	default:
		return true
	}
}

// Validate walks the tree checking its structural invariants: single
// parent, variants childless, recursive child-count correctness, no
// duplicate/empty table keys. Useful as a builder-side sanity check
// before Write.
func (t *Tree) Validate() error {
	return validateNode(t.Root, nil)
}

func validateNode(n *Node, expectedParent *Node) error {
	if n.Parent() != expectedParent {
		return newErr(InternalLayout, "node has an unexpected parent pointer", nil)
	}

	switch n.Tag() {
	case codec.TagVariant:
		// invariant 2: a variant node has no children.

	case codec.TagTable:
		seen := make(map[string]bool, len(n.table))
		var sum int64
		for key, child := range n.table {
			if key == "" {
				return newErr(InternalLayout, "table contains an empty key", nil)
			}
			if seen[key] {
				return newErr(InternalLayout, "table contains a duplicate key", nil)
			}
			seen[key] = true
			if err := validateNode(child, n); err != nil {
				return err
			}
			sum += countContribution(child)
		}
		if sum != int64(n.ChildCount()) {
			return newErr(InternalLayout, "table child count does not match its recursive definition", nil)
		}

	case codec.TagList:
		var sum int64
		for _, e := range n.list {
			if err := validateNode(e.item, n); err != nil {
				return err
			}
			sum += countContribution(e.item)
		}
		if sum != int64(n.ChildCount()) {
			return newErr(InternalLayout, "list child count does not match its recursive definition", nil)
		}

	case codec.TagNone:
		return newErr(InternalLayout, "a None-tagged node appears in a materialized tree", nil)
	}

	return nil
}

// sortedTableKeys returns a table node's keys sorted byte-wise. Table
// iteration order is otherwise unspecified, so a stable order is used
// for dump/list rendering.
func sortedTableKeys(n *Node) []string {
	keys := make([]string, 0, len(n.table))
	for k := range n.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
