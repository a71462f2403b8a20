// Package constantpool implements the interned string arena shared by every
// record of a class index.
//
// Strings are ASCII, at most 255 bytes long, and stored back to back in one
// byte buffer, each preceded by a one-byte length. A string is addressed by
// the offset of its length byte; offset 0 always holds the empty string.
// StringView is a zero-copy slice of one stored string.
package constantpool

import (
	apperrors "github.com/jindex/pkg/errors"
)

// MaxStringLength is the longest string the pool can store.
const MaxStringLength = 255

// EmptyStringIndex addresses the empty string seeded into every pool.
const EmptyStringIndex uint32 = 0

// ConstantPool is an append-only arena of length-prefixed strings. It is
// mutated only while an index is being built and is read-only afterwards.
type ConstantPool struct {
	data []byte
}

// New creates a pool with room for capacity bytes.
func New(capacity int) *ConstantPool {
	if capacity < 1 {
		capacity = 1
	}
	data := make([]byte, 1, capacity)
	data[0] = 0
	return &ConstantPool{data: data}
}

// FromBytes wraps a previously serialized buffer. The buffer must start with
// the empty string.
func FromBytes(data []byte) (*ConstantPool, error) {
	if len(data) == 0 || data[0] != 0 {
		return nil, apperrors.New(apperrors.CodeIndexFormat, "constant pool does not start with the empty string")
	}
	return &ConstantPool{data: data}, nil
}

// AddString appends s and returns its index.
func (p *ConstantPool) AddString(s []byte) (uint32, error) {
	if len(s) > MaxStringLength {
		return 0, apperrors.Newf(apperrors.CodePoolOverflow,
			"the string %q exceeds the maximum size of %d", s, MaxStringLength)
	}

	index := uint32(len(p.data))
	p.data = append(p.data, byte(len(s)))
	p.data = append(p.data, s...)
	return index, nil
}

// StringViewAt returns a view over the whole string stored at index.
func (p *ConstantPool) StringViewAt(index uint32) StringView {
	return StringView{Index: index, Start: 0, End: p.data[index]}
}

// StringAt returns a copy of the string stored at index.
func (p *ConstantPool) StringAt(index uint32) string {
	return p.StringViewAt(index).String(p)
}

// Bytes exposes the raw buffer for serialization.
func (p *ConstantPool) Bytes() []byte {
	return p.data
}

// Len returns the number of bytes in use.
func (p *ConstantPool) Len() int {
	return len(p.data)
}

// Valid reports whether index addresses a complete string inside the buffer.
func (p *ConstantPool) Valid(index uint32) bool {
	if int(index) >= len(p.data) {
		return false
	}
	return int(index)+1+int(p.data[index]) <= len(p.data)
}
