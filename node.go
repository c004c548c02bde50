package gvdb

import (
	"github.com/dconf/gvdb/internal/codec"
	"github.com/dconf/gvdb/variant"
)

// listElement is one (key, child) pair of a List node. Keys need not
// be unique within a list; lookups return the first match.
type listElement struct {
	key  string
	item *Node
}

// Node is the in-memory tagged-union tree node: None, Variant, Table,
// or List. The parent pointer is a weak, non-counted back-reference,
// so attaching a child to a parent never creates a reference cycle;
// only the parent-to-child direction is strong.
type Node struct {
	tag      codec.Tag
	refcount int
	parent   *Node

	// childCount is the recursive count a table's hash-item array is
	// sized by; it is meaningful only for Table and List tags.
	childCount uint32

	value variant.Variant

	table map[string]*Node
	// tableOrder preserves insertion order of table keys only so that
	// iteration is deterministic for internal bookkeeping; the public
	// dump ordering is sorted, not insertion order.
	tableOrder []string

	list []listElement
}

// NewEmptyItem returns a freshly allocated None-tagged node with
// refcount 1 and no parent.
func NewEmptyItem() *Node {
	return &Node{tag: codec.TagNone, refcount: 1}
}

// NewTable returns a Table-tagged node with an empty mapping and
// refcount 1.
func NewTable() *Node {
	return &Node{
		tag:      codec.TagTable,
		table:    make(map[string]*Node),
		refcount: 1,
	}
}

// Tag returns the node's current tagged-union discriminant.
func (n *Node) Tag() codec.Tag {
	if n == nil {
		return codec.TagNone
	}
	return n.tag
}

// ChildCount returns the recursive child count used to size a table's
// hash-item array. Zero for None and Variant nodes.
func (n *Node) ChildCount() uint32 {
	if n == nil || n.tag == codec.TagVariant || n.tag == codec.TagNone {
		return 0
	}
	return n.childCount
}

// Parent returns the node's weak back-reference, or nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Ref increments the node's reference count and returns it.
func (n *Node) Ref() *Node {
	n.refcount++
	return n
}

// Unref decrements the node's reference count; at zero it clears the
// node (cascading-releasing its children) and it becomes eligible for
// collection.
func (n *Node) Unref() {
	n.refcount--
	if n.refcount <= 0 {
		n.clear()
	}
}

// clear transitions the node to None, cascading-releasing any
// children, and propagates the resulting child-count delta to
// ancestors. A None node still occupies one slot while attached, so
// the delta is the drop in contribution, not the node's raw count: a
// cleared table was opaque to its ancestors and changes nothing.
func (n *Node) clear() {
	delta := 1 - countContribution(n)

	switch n.tag {
	case codec.TagTable:
		for _, child := range n.table {
			child.parent = nil
			child.Unref()
		}
		n.table = nil
		n.tableOrder = nil
	case codec.TagList:
		for i := len(n.list) - 1; i >= 0; i-- {
			n.list[i].item.parent = nil
			n.list[i].item.Unref()
		}
		n.list = nil
	}

	n.childCount = 0
	n.tag = codec.TagNone
	n.value = nil

	propagateDelta(n.parent, delta)
}

// propagateDelta walks from start through List-typed ancestors,
// applying delta to each, then applies it once more to the first
// non-List ancestor if one exists. The walk stops there because
// tables delimit hash-block boundaries: a nested table's members get
// their own hash-item array, so they never count toward an ancestor's.
func propagateDelta(start *Node, delta int64) {
	walk := start
	for walk != nil && walk.tag == codec.TagList {
		walk.childCount = addDelta(walk.childCount, delta)
		walk = walk.parent
	}
	if walk != nil {
		walk.childCount = addDelta(walk.childCount, delta)
	}
}

func addDelta(count uint32, delta int64) uint32 {
	result := int64(count) + delta
	if result < 0 {
		return 0
	}
	return uint32(result)
}

// countContribution is what child adds to its parent's recursive
// child count. A nested table is opaque — it gets its own hash-table
// block, so it occupies exactly one slot in its parent's hash-item
// array — while a list's members are flattened into the enclosing
// table's array, so a list contributes its own count plus one.
func countContribution(child *Node) int64 {
	if child.tag == codec.TagTable {
		return 1
	}
	return int64(child.ChildCount()) + 1
}

// attach makes parent the owner of child: sets child's parent
// back-reference and propagates child's contribution (see
// countContribution: count(child)+1, or 1 for a nested table) up
// through List ancestors to the first non-List ancestor. Returns an error if child
// already has a parent or parent is a Variant node.
func attach(child, parent *Node) error {
	if child.parent != nil {
		return newErr(DuplicateParent, "node already has a parent", nil)
	}
	if parent.tag == codec.TagVariant {
		return newErr(BadType, "cannot attach a child to a variant node", nil)
	}
	child.parent = parent
	propagateDelta(parent, countContribution(child))
	return nil
}

// detach is the symmetric inverse of attach: clears child's parent
// back-reference and propagates the negated contribution upward. It
// does not touch child's refcount; callers decide whether to Unref.
func detach(child *Node) {
	propagateDelta(child.parent, -countContribution(child))
	child.parent = nil
}

// SetVariant clears node and tags it Variant, taking a reference on
// v's underlying value. A nil v is an error; use clear semantics via
// Unref/table removal to blank a node.
func SetVariant(node *Node, v variant.Variant) error {
	if v == nil {
		return newErr(BadType, "cannot set a nil variant", nil)
	}
	node.clear()
	node.tag = codec.TagVariant
	node.value = v
	return nil
}

// insertTableChild attaches child into table at key without taking an
// extra reference, transferring child's existing creation-time
// reference to table's ownership. Used by the parser, which builds
// each node with its single owning reference already in hand — unlike
// the public TableSet, which must add a reference because its caller
// keeps its own handle.
func insertTableChild(table *Node, key string, child *Node) error {
	if err := attach(child, table); err != nil {
		return err
	}
	table.table[key] = child
	table.tableOrder = append(table.tableOrder, key)
	return nil
}

// appendListChild is insertTableChild's List-node counterpart.
func appendListChild(list *Node, key string, child *Node) error {
	if err := attach(child, list); err != nil {
		return err
	}
	list.list = append(list.list, listElement{key: key, item: child})
	return nil
}

// GetVariant returns the node's variant value, or an error if node is
// not Variant-tagged.
func GetVariant(node *Node) (variant.Variant, error) {
	if node.tag != codec.TagVariant {
		return nil, newErr(BadType, "node is not a variant", nil)
	}
	return node.value, nil
}

// SetList transitions node to List (clearing any prior content) and
// appends elements, reparenting each child. Fails without partial
// mutation if any element already has a parent.
func SetList(node *Node, elements []ListElement) error {
	if err := validateListElements(elements); err != nil {
		return err
	}
	node.clear()
	node.tag = codec.TagList
	return appendListElements(node, elements)
}

// ListAppend transitions node to List if it isn't already (clearing
// prior content) and appends elements to the end.
func ListAppend(node *Node, elements []ListElement) error {
	if err := validateListElements(elements); err != nil {
		return err
	}
	if node.tag != codec.TagList {
		node.clear()
		node.tag = codec.TagList
	}
	return appendListElements(node, elements)
}

// ListAppendOne appends a single (key, child) pair.
func ListAppendOne(node *Node, key string, child *Node) error {
	return ListAppend(node, []ListElement{{Key: key, Item: child}})
}

func validateListElements(elements []ListElement) error {
	for _, e := range elements {
		if e.Item.parent != nil {
			return newErr(DuplicateParent, "list element already has a parent", nil)
		}
	}
	return nil
}

func appendListElements(node *Node, elements []ListElement) error {
	for _, e := range elements {
		if err := attach(e.Item, node); err != nil {
			return err
		}
		e.Item.Ref()
		node.list = append(node.list, listElement{key: e.Key, item: e.Item})
	}
	return nil
}

// ListElement is a (key, child) pair used by SetList/ListAppend and
// returned by ListGet.
type ListElement struct {
	Key  string
	Item *Node
}

// ListGet returns node's elements in order, or an error if node is not
// List-tagged.
func ListGet(node *Node) ([]ListElement, error) {
	if node.tag != codec.TagList {
		return nil, newErr(BadType, "node is not a list", nil)
	}
	out := make([]ListElement, len(node.list))
	for i, e := range node.list {
		out[i] = ListElement{Key: e.key, Item: e.item}
	}
	return out, nil
}

// ListRemove detaches and decrefs the first element matching key. It
// builds the replacement slice before mutating node, so a not-found
// condition leaves node completely unchanged.
func ListRemove(node *Node, key string) error {
	if node.tag != codec.TagList {
		return newErr(BadType, "node is not a list", nil)
	}
	idx := -1
	for i, e := range node.list {
		if e.key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return newErr(NotFound, "no list element with key "+key, nil)
	}

	victim := node.list[idx].item
	replacement := make([]listElement, 0, len(node.list)-1)
	replacement = append(replacement, node.list[:idx]...)
	replacement = append(replacement, node.list[idx+1:]...)

	node.list = replacement
	detach(victim)
	victim.Unref()
	return nil
}

// ListClear detaches and decrefs every element of node.
func ListClear(node *Node) error {
	if node.tag != codec.TagList {
		return newErr(BadType, "node is not a list", nil)
	}
	old := node.list
	node.list = nil
	for _, e := range old {
		detach(e.item)
		e.item.Unref()
	}
	return nil
}

// TableSet attaches child at key in table, replacing and detaching
// any existing entry at that key. If child is nil, the key is removed
// instead (idempotent: a missing key is not an error). Returns whether
// an existing entry was found and removed/replaced.
func TableSet(table *Node, key string, child *Node) (bool, error) {
	if table.tag != codec.TagTable {
		return false, newErr(BadType, "node is not a table", nil)
	}

	existing, found := table.table[key]

	if child == nil {
		if !found {
			return false, nil
		}
		delete(table.table, key)
		table.tableOrder = removeOrder(table.tableOrder, key)
		detach(existing)
		existing.Unref()
		return true, nil
	}

	if key == "" {
		return false, newErr(BadType, "table key must not be empty", nil)
	}

	if child.parent != nil {
		return false, newErr(DuplicateParent, "node already has a parent", nil)
	}

	if err := attach(child, table); err != nil {
		return false, err
	}
	child.Ref()

	if found {
		detach(existing)
		existing.Unref()
	} else {
		table.tableOrder = append(table.tableOrder, key)
	}
	table.table[key] = child

	return found, nil
}

func removeOrder(order []string, key string) []string {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// TableGet returns an owned, ref-incremented handle for key, and
// whether it was found. An owned handle is safer than a borrowed
// pointer across API boundaries; callers must Unref the returned node
// when done.
func TableGet(table *Node, key string) (*Node, bool) {
	if table.tag != codec.TagTable {
		return nil, false
	}
	item, ok := table.table[key]
	if !ok {
		return nil, false
	}
	return item.Ref(), true
}

// tableLookup borrows table's child at key without adjusting its
// refcount, for internal traversal (path resolution) where the walk
// never outlives the tree it is borrowing from. Kept separate from
// the public, ref-incrementing TableGet.
func tableLookup(table *Node, key string) (*Node, bool) {
	if table.tag != codec.TagTable {
		return nil, false
	}
	item, ok := table.table[key]
	return item, ok
}

// TableUnset removes, detaches, and decrefs key. A missing key is not
// an error.
func TableUnset(table *Node, key string) error {
	_, err := TableSet(table, key, nil)
	return err
}

// TableKeys returns table's keys in insertion order. Iteration order
// is not part of the format; callers needing a stable order should
// sort.
func TableKeys(table *Node) ([]string, error) {
	if table.tag != codec.TagTable {
		return nil, newErr(BadType, "node is not a table", nil)
	}
	out := make([]string, len(table.tableOrder))
	copy(out, table.tableOrder)
	return out, nil
}
