package gvdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dconf/gvdb/variant"
)

func TestWriteEmptyRootTableIs44Bytes(t *testing.T) {
	root := NewTable()
	tree, err := NewTree(root, false)
	require.NoError(t, err)

	out, err := Write(tree)
	require.NoError(t, err)
	assert.Len(t, out, 44)
}

func TestWriteParseRoundTripScalarTable(t *testing.T) {
	root := NewTable()
	greeting := NewEmptyItem()
	require.NoError(t, SetVariant(greeting, variant.NewString("hello")))
	_, err := TableSet(root, "greeting", greeting)
	require.NoError(t, err)

	answer := NewEmptyItem()
	require.NoError(t, SetVariant(answer, variant.NewInt32(42)))
	_, err = TableSet(root, "answer", answer)
	require.NoError(t, err)

	tree, err := NewTree(root, false)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())

	data, err := Write(tree)
	require.NoError(t, err)

	parsed, err := Parse(data, true)
	require.NoError(t, err)
	require.NoError(t, parsed.Validate())
	assert.True(t, tree.Equal(parsed))
}

func TestWriteParseRoundTripNestedTableAndList(t *testing.T) {
	root := NewTable()
	sub := NewTable()
	leaf := NewEmptyItem()
	require.NoError(t, SetVariant(leaf, variant.NewBool(true)))
	_, err := TableSet(sub, "enabled", leaf)
	require.NoError(t, err)
	_, err = TableSet(root, "section", sub)
	require.NoError(t, err)

	el0 := NewEmptyItem()
	require.NoError(t, SetVariant(el0, variant.NewInt64(1)))
	el1 := NewEmptyItem()
	require.NoError(t, SetVariant(el1, variant.NewInt64(2)))
	list := NewEmptyItem()
	require.NoError(t, SetList(list, []ListElement{
		{Key: "a", Item: el0},
		{Key: "b", Item: el1},
	}))
	_, err = TableSet(root, "numbers", list)
	require.NoError(t, err)

	tree, err := NewTree(root, false)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())

	data, err := Write(tree)
	require.NoError(t, err)

	parsed, err := Parse(data, true)
	require.NoError(t, err)
	require.NoError(t, parsed.Validate())
	assert.True(t, tree.Equal(parsed))

	subHandle, found := TableGet(parsed.Root, "section")
	require.True(t, found)
	numbersHandle, found := TableGet(parsed.Root, "numbers")
	require.True(t, found)
	elements, err := ListGet(numbersHandle)
	require.NoError(t, err)
	require.Len(t, elements, 2)
	subHandle.Unref()
	numbersHandle.Unref()
}

func TestWriteAcceptsKeyAtMaxLength(t *testing.T) {
	root := NewTable()
	v := NewEmptyItem()
	require.NoError(t, SetVariant(v, variant.NewBool(true)))
	key := make([]byte, maxKeyLen)
	for i := range key {
		key[i] = 'k'
	}
	_, err := TableSet(root, string(key), v)
	require.NoError(t, err)

	tree, err := NewTree(root, false)
	require.NoError(t, err)

	data, err := Write(tree)
	require.NoError(t, err)

	parsed, err := Parse(data, true)
	require.NoError(t, err)
	assert.True(t, tree.Equal(parsed))
}

func TestWriteRejectsKeyTooLong(t *testing.T) {
	root := NewTable()
	v := NewEmptyItem()
	require.NoError(t, SetVariant(v, variant.NewBool(false)))
	longKey := make([]byte, maxKeyLen+1)
	for i := range longKey {
		longKey[i] = 'k'
	}
	_, err := TableSet(root, string(longKey), v)
	require.NoError(t, err)

	tree, err := NewTree(root, false)
	require.NoError(t, err)

	_, err = Write(tree)
	require.Error(t, err)
	assert.True(t, KindIs(err, KeyTooLong))
}

func TestWriteByteswappedSignature(t *testing.T) {
	root := NewTable()
	v := NewEmptyItem()
	require.NoError(t, SetVariant(v, variant.NewInt32(7)))
	_, err := TableSet(root, "k", v)
	require.NoError(t, err)

	tree, err := NewTree(root, true)
	require.NoError(t, err)

	data, err := Write(tree)
	require.NoError(t, err)

	parsed, err := Parse(data, true)
	require.NoError(t, err)
	assert.True(t, parsed.Byteswap)
	assert.True(t, tree.Equal(parsed))
}
