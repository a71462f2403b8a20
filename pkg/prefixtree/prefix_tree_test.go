package prefixtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/pkg/constantpool"
)

func buildTree(t *testing.T, keys ...string) *PrefixTree[string] {
	t.Helper()
	pool := constantpool.New(64)
	tree := New[string](pool, 3)
	for _, key := range keys {
		index, err := pool.AddString([]byte(key))
		require.NoError(t, err)
		tree.Put(pool.StringViewAt(index), key)
	}
	return tree
}

func TestFindAllStartingWith(t *testing.T) {
	tree := buildTree(t, "list", "listIterator", "lock", "Map", "a")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"l", []string{"list", "listIterator", "lock"}},
		{"li", []string{"list", "listIterator"}},
		{"lis", []string{"list", "listIterator"}},
		{"listI", []string{"listIterator"}},
		{"lo", []string{"lock"}},
		{"M", []string{"Map"}},
		{"m", nil},
		{"a", []string{"a"}},
		{"", []string{"a", "list", "listIterator", "lock", "Map"}},
		{"x", nil},
		{".", nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			limit := 100
			assert.Equal(t, tt.want, tree.FindAllStartingWith(tt.prefix, &limit))
		})
	}
}

func TestFindAllStartingWith_Limit(t *testing.T) {
	tree := buildTree(t, "list", "listIterator", "lock")

	limit := 2
	assert.Equal(t, []string{"list", "listIterator"}, tree.FindAllStartingWith("l", &limit))
	assert.Equal(t, 0, limit)

	assert.Nil(t, tree.FindAllStartingWith("l", &limit))
}

func TestPut_InvalidByte(t *testing.T) {
	tests := []struct {
		name     string
		maxDepth uint8
		key      string
	}{
		{"trie level", 4, "a.b"},
		{"tail suffix", 1, "ab.c"},
		{"tail last byte", 2, "abc-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := constantpool.New(16)
			tree := New[int](pool, tt.maxDepth)
			index, err := pool.AddString([]byte(tt.key))
			require.NoError(t, err)

			assert.Panics(t, func() { tree.Put(pool.StringViewAt(index), 1) })
		})
	}
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		b    byte
		want uint8
	}{
		{'a', 0}, {'z', 25}, {'A', 26}, {'Z', 51}, {'0', 52}, {'9', 61}, {'$', 62}, {'_', 63},
	}
	for _, tt := range tests {
		got, ok := symbol(tt.b)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "symbol(%q)", tt.b)
	}

	_, ok := symbol('/')
	assert.False(t, ok)
}
