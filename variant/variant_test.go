package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	values := []Variant{
		NewString("hello"),
		NewString(""),
		NewInt32(42),
		NewInt32(-7),
		NewInt64(1 << 40),
		NewBool(true),
		NewBool(false),
		NewFloat64(3.5),
	}

	for _, v := range values {
		norm := v.NormalForm()
		buf := make([]byte, norm.Size())
		norm.Store(buf)

		decoded, err := FromBytes(buf, true)
		require.NoError(t, err)
		assert.True(t, v.Equal(decoded), "round trip mismatch for %#v", v)
	}
}

func TestScalarPrint(t *testing.T) {
	assert.Equal(t, "'hello'", NewString("hello").Print())
	assert.Equal(t, "42", NewInt32(42).Print())
	assert.Equal(t, "1", NewInt64(1).Print())
	assert.Equal(t, "true", NewBool(true).Print())
	assert.Equal(t, "false", NewBool(false).Print())
}

func TestScalarByteswap(t *testing.T) {
	v := NewInt32(1)
	swapped := v.Byteswap().(*Scalar)
	assert.Equal(t, int32(0x01000000), swapped.I32)

	back := swapped.Byteswap().(*Scalar)
	assert.Equal(t, int32(1), back.I32)
}

func TestFromBytesRejectsUnknownKind(t *testing.T) {
	_, err := FromBytes([]byte{'z'}, true)
	require.Error(t, err)
}

func TestFromBytesRejectsWrongSize(t *testing.T) {
	_, err := FromBytes([]byte{KindInt32, 1, 2, 3}, false)
	require.Error(t, err)
}
