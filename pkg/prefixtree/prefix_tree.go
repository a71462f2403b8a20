// Package prefixtree implements a fixed-depth trie over constant-pool
// strings.
//
// The alphabet has 64 symbols (a-z, A-Z, 0-9, '$' and '_'); every node keeps
// a 64-bit mask of present children and stores them densely, locating a
// child by the popcount of the mask below its symbol. Nodes at the maximum
// depth are tails that keep their remaining keys in a flat list.
package prefixtree

import (
	"fmt"
	"math/bits"

	"github.com/jindex/pkg/constantpool"
)

// symbol maps a key byte to its alphabet position.
func symbol(b byte) (uint8, bool) {
	switch {
	case b >= 'a' && b <= 'z':
		return b - 'a', true
	case b >= 'A' && b <= 'Z':
		return b - 'A' + 26, true
	case b >= '0' && b <= '9':
		return b - '0' + 52, true
	case b == '$':
		return 62, true
	case b == '_':
		return 63, true
	default:
		return 0, false
	}
}

func validSymbol(b byte) bool {
	_, ok := symbol(b)
	return ok
}

type tailEntry[T any] struct {
	key   constantpool.StringView
	value T
}

type node[T any] struct {
	mask     uint64
	depth    uint8
	children []*node[T]
	values   []T

	tail    bool
	entries []tailEntry[T]
}

func newNode[T any](depth uint8) *node[T] {
	return &node[T]{depth: depth}
}

func (n *node[T]) hasChild(sym uint8) bool {
	return (n.mask>>sym)&1 != 0
}

func (n *node[T]) childIndex(sym uint8) int {
	if sym == 0 {
		return 0
	}
	return bits.OnesCount64(n.mask & (^uint64(0) >> (64 - sym)))
}

func (n *node[T]) insertChild(sym uint8) *node[T] {
	idx := n.childIndex(sym)

	var child *node[T]
	if n.depth == 1 {
		child = &node[T]{tail: true}
	} else {
		child = newNode[T](n.depth - 1)
	}

	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
	n.mask |= 1 << sym
	return child
}

func (n *node[T]) put(pool *constantpool.ConstantPool, key constantpool.StringView, value T) {
	if key.IsEmpty() {
		n.values = append(n.values, value)
		return
	}

	b := key.ByteAt(pool, 0)
	sym, ok := symbol(b)
	if !ok {
		panic(fmt.Sprintf("prefixtree: invalid key byte %q", b))
	}

	var child *node[T]
	if n.hasChild(sym) {
		child = n.children[n.childIndex(sym)]
	} else {
		child = n.insertChild(sym)
	}

	rest := key.SubstringToEnd(1)
	if child.tail {
		for i := 0; i < rest.Len(); i++ {
			if c := rest.ByteAt(pool, i); !validSymbol(c) {
				panic(fmt.Sprintf("prefixtree: invalid key byte %q", c))
			}
		}
		child.entries = append(child.entries, tailEntry[T]{key: rest, value: value})
		return
	}
	child.put(pool, rest, value)
}

func (n *node[T]) collect(pool *constantpool.ConstantPool, seq string, results []T, limit *int) []T {
	if n.tail {
		for _, e := range n.entries {
			if *limit <= 0 {
				return results
			}
			if e.key.StartsWith(pool, seq, constantpool.MatchModeMatchCase) {
				results = append(results, e.value)
				*limit--
			}
		}
		return results
	}

	if seq == "" {
		for _, v := range n.values {
			if *limit <= 0 {
				return results
			}
			results = append(results, v)
			*limit--
		}
		for _, child := range n.children {
			if *limit <= 0 {
				return results
			}
			results = child.collect(pool, seq, results, limit)
		}
		return results
	}

	sym, ok := symbol(seq[0])
	if !ok || !n.hasChild(sym) {
		return results
	}
	return n.children[n.childIndex(sym)].collect(pool, seq[1:], results, limit)
}

// PrefixTree maps constant-pool keys to values. It is not safe for
// concurrent mutation.
type PrefixTree[T any] struct {
	pool *constantpool.ConstantPool
	root *node[T]
}

// New creates a tree whose keys live in pool. Below maxDepth levels keys are
// kept in tail lists.
func New[T any](pool *constantpool.ConstantPool, maxDepth uint8) *PrefixTree[T] {
	if maxDepth == 0 {
		maxDepth = 1
	}
	return &PrefixTree[T]{pool: pool, root: newNode[T](maxDepth)}
}

// Put inserts value under key. It panics if key contains a byte outside the
// alphabet.
func (t *PrefixTree[T]) Put(key constantpool.StringView, value T) {
	t.root.put(t.pool, key, value)
}

// FindAllStartingWith returns the values whose keys start with seq, in trie
// order. limit is decremented for every value collected and the search
// stops once it reaches zero.
func (t *PrefixTree[T]) FindAllStartingWith(seq string, limit *int) []T {
	if *limit <= 0 {
		return nil
	}
	return t.root.collect(t.pool, seq, nil, limit)
}
