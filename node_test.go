package gvdb

import (
	"testing"

	"github.com/dconf/gvdb/internal/codec"
	"github.com/dconf/gvdb/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableEmpty(t *testing.T) {
	table := NewTable()
	assert.Equal(t, codec.TagTable, table.Tag())
	assert.Equal(t, uint32(0), table.ChildCount())
}

func TestTableSetAndGet(t *testing.T) {
	table := NewTable()
	item := NewEmptyItem()
	require.NoError(t, SetVariant(item, variant.NewString("test")))

	found, err := TableSet(table, "NULL", nil)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, uint32(0), table.ChildCount())

	found, err = TableSet(table, "NULL", item)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, uint32(1), table.ChildCount())
	assert.Same(t, table, item.Parent())

	got, ok := TableGet(table, "NULL")
	require.True(t, ok)
	assert.Same(t, item, got)
	got.Unref() // release the handle TableGet returned

	found, err = TableSet(table, "NULL", nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(0), table.ChildCount())
	assert.Nil(t, item.Parent())
}

func TestTableSetRejectsDuplicateParent(t *testing.T) {
	tableA := NewTable()
	tableB := NewTable()
	item := NewEmptyItem()
	require.NoError(t, SetVariant(item, variant.NewInt32(1)))

	_, err := TableSet(tableA, "k", item)
	require.NoError(t, err)

	_, err = TableSet(tableB, "k", item)
	require.Error(t, err)
	assert.True(t, KindIs(err, DuplicateParent))
}

func TestTableSetRejectsEmptyKey(t *testing.T) {
	table := NewTable()
	item := NewEmptyItem()
	require.NoError(t, SetVariant(item, variant.NewInt32(1)))

	_, err := TableSet(table, "", item)
	require.Error(t, err)
}

func TestListAppendAndChildCountPropagation(t *testing.T) {
	root := NewTable()
	list := NewEmptyItem()

	a := NewEmptyItem()
	require.NoError(t, SetVariant(a, variant.NewString("apple")))
	b := NewEmptyItem()
	require.NoError(t, SetVariant(b, variant.NewString("banana")))

	require.NoError(t, ListAppend(list, []ListElement{{Key: "a", Item: a}, {Key: "b", Item: b}}))
	assert.Equal(t, uint32(2), list.ChildCount())

	_, err := TableSet(root, "fruits", list)
	require.NoError(t, err)

	// root's count includes the list's own recursive count:
	// 1 direct child (the list itself) + the list's 2 elements.
	assert.Equal(t, uint32(3), root.ChildCount())
}

func TestListRemoveLeavesListUnchangedOnNotFound(t *testing.T) {
	list := NewEmptyItem()
	a := NewEmptyItem()
	require.NoError(t, SetVariant(a, variant.NewInt32(1)))
	require.NoError(t, ListAppend(list, []ListElement{{Key: "a", Item: a}}))

	err := ListRemove(list, "missing")
	require.Error(t, err)
	assert.True(t, KindIs(err, NotFound))

	elems, err := ListGet(list)
	require.NoError(t, err)
	assert.Len(t, elems, 1)
	assert.Equal(t, uint32(1), list.ChildCount())
}

func TestListRemoveDetachesAndDecrements(t *testing.T) {
	list := NewEmptyItem()
	a := NewEmptyItem()
	require.NoError(t, SetVariant(a, variant.NewInt32(1)))
	b := NewEmptyItem()
	require.NoError(t, SetVariant(b, variant.NewInt32(2)))
	require.NoError(t, ListAppend(list, []ListElement{{Key: "a", Item: a}, {Key: "b", Item: b}}))

	require.NoError(t, ListRemove(list, "a"))
	assert.Equal(t, uint32(1), list.ChildCount())
	assert.Nil(t, a.Parent())

	elems, err := ListGet(list)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, "b", elems[0].Key)
}

func TestAttachRejectsVariantAsParent(t *testing.T) {
	v := NewEmptyItem()
	require.NoError(t, SetVariant(v, variant.NewInt32(1)))
	child := NewEmptyItem()
	require.NoError(t, SetVariant(child, variant.NewInt32(2)))

	err := attach(child, v)
	require.Error(t, err)
	assert.True(t, KindIs(err, BadType))
}

func TestNestedTableIsOpaqueToParentCount(t *testing.T) {
	root := NewTable()
	sub := NewTable()

	leaf := NewEmptyItem()
	require.NoError(t, SetVariant(leaf, variant.NewInt32(42)))
	_, err := TableSet(sub, "n", leaf)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), sub.ChildCount())

	_, err = TableSet(root, "sub", sub)
	require.NoError(t, err)

	// A nested table contributes exactly 1 to its parent's count,
	// regardless of its own internal child count (tables
	// are opaque to their parent's count).
	assert.Equal(t, uint32(1), root.ChildCount())
}
