package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress(t *testing.T) {
	a := BytesToAddress([]byte("addr"))
	parsed, err := ParseAddress(a.String())
	assert.NoError(t, err)
	assert.Equal(t, a, parsed)
	assert.False(t, a.IsZero())
	assert.True(t, Address{}.IsZero())
}

func TestParseAddressRejectsBadLength(t *testing.T) {
	_, err := ParseAddress("0x1234")
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	h := BytesToHash([]byte("storageKey"))
	assert.False(t, h.IsZero())
	assert.Equal(t, h, BytesToHash([]byte("storageKey")))
}

func TestKeccak256Deterministic(t *testing.T) {
	h1 := Keccak256([]byte("hello"))
	h2 := Keccak256([]byte("hello"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, Keccak256([]byte("world")))
}

func TestBalanceSaturating(t *testing.T) {
	a := NewBalance(5)
	b := NewBalance(10)
	assert.Equal(t, int64(0), SaturatingSub(a, b).Int64())
	assert.Equal(t, int64(15), SaturatingAdd(a, b).Int64())
	assert.True(t, LessThan(a, b))
}
