package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitset_Basic(t *testing.T) {
	b := NewBitset(100)

	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(99)

	assert.True(t, b.Test(0))
	assert.True(t, b.Test(63))
	assert.True(t, b.Test(64))
	assert.True(t, b.Test(99))
	assert.False(t, b.Test(1))
	assert.False(t, b.Test(1000))
	assert.Equal(t, 4, b.Count())

	b.Clear(63)
	b.Clear(5000)
	assert.False(t, b.Test(63))
	assert.Equal(t, []int{0, 64, 99}, b.ToSlice())
}

func TestBitset_Grow(t *testing.T) {
	b := NewBitset(0)
	b.Set(10_000)
	assert.True(t, b.Test(10_000))
	assert.Equal(t, 1, b.Count())
}

func TestBitset_TestAndSet(t *testing.T) {
	b := NewBitset(8)
	assert.False(t, b.TestAndSet(3))
	assert.True(t, b.TestAndSet(3))
}

func TestBitset_ResetAndIterate(t *testing.T) {
	b := NewBitset(256)
	for _, i := range []int{200, 3, 130} {
		b.Set(i)
	}

	var first []int
	b.Iterate(func(i int) bool {
		first = append(first, i)
		return len(first) < 2
	})
	assert.Equal(t, []int{3, 130}, first)

	b.Reset()
	assert.Equal(t, 0, b.Count())
	assert.Empty(t, b.ToSlice())
}

func BenchmarkBitset_Set(b *testing.B) {
	bs := NewBitset(b.N)
	for i := 0; i < b.N; i++ {
		bs.Set(i)
	}
}
