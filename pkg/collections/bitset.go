// Package collections provides compact data structures for index traversal.
package collections

import (
	"math/bits"
)

// Bitset is a growable set of small non-negative integers, one bit per
// element. It is not safe for concurrent use.
type Bitset struct {
	words []uint64
}

// NewBitset creates a bitset sized for the integers [0, size).
func NewBitset(size int) *Bitset {
	if size <= 0 {
		size = 64
	}
	return &Bitset{words: make([]uint64, (size+63)/64)}
}

// Set adds i, growing the set when needed.
func (b *Bitset) Set(i int) {
	word := i / 64
	if word >= len(b.words) {
		grown := make([]uint64, max(word+1, 2*len(b.words)))
		copy(grown, b.words)
		b.words = grown
	}
	b.words[word] |= 1 << (uint(i) % 64)
}

// Clear removes i.
func (b *Bitset) Clear(i int) {
	if word := i / 64; word < len(b.words) {
		b.words[word] &^= 1 << (uint(i) % 64)
	}
}

// Test reports whether i is in the set.
func (b *Bitset) Test(i int) bool {
	word := i / 64
	return word < len(b.words) && b.words[word]&(1<<(uint(i)%64)) != 0
}

// TestAndSet adds i and reports whether it was already present.
func (b *Bitset) TestAndSet(i int) bool {
	if b.Test(i) {
		return true
	}
	b.Set(i)
	return false
}

// Count returns the number of elements.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Reset removes every element without releasing memory.
func (b *Bitset) Reset() {
	clear(b.words)
}

// Iterate calls fn for each element in ascending order until fn returns
// false.
func (b *Bitset) Iterate(fn func(i int) bool) {
	for wi, w := range b.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			if !fn(wi*64 + bit) {
				return
			}
			w &= w - 1
		}
	}
}

// ToSlice returns the elements in ascending order.
func (b *Bitset) ToSlice() []int {
	out := make([]int, 0, b.Count())
	b.Iterate(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}
