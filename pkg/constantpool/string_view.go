package constantpool

import (
	"fmt"
)

// StringView is a (base, start, end) reference into a ConstantPool. Start and
// End are offsets into the string stored at Index; a view can only be
// narrowed, never widened past the stored string.
type StringView struct {
	Index uint32
	Start uint8
	End   uint8
}

// Len returns the number of bytes covered by the view.
func (v StringView) Len() int {
	return int(v.End) - int(v.Start)
}

// IsEmpty reports whether the view covers no bytes.
func (v StringView) IsEmpty() bool {
	return v.End == v.Start
}

// Substring narrows the view to [start, end) relative to the view itself.
func (v StringView) Substring(start, end int) (StringView, error) {
	if start < 0 || start > end || end > v.Len() {
		return StringView{}, fmt.Errorf("substring [%d, %d) out of range for view of length %d", start, end, v.Len())
	}
	return StringView{
		Index: v.Index,
		Start: v.Start + uint8(start),
		End:   v.Start + uint8(end),
	}, nil
}

// SubstringToEnd narrows the view to [start, Len()). A start past the end
// yields an empty view.
func (v StringView) SubstringToEnd(start int) StringView {
	if start > v.Len() {
		start = v.Len()
	}
	if start < 0 {
		start = 0
	}
	sub, _ := v.Substring(start, v.Len())
	return sub
}

// Bytes returns the viewed bytes without copying. Callers must not modify them.
func (v StringView) Bytes(p *ConstantPool) []byte {
	base := int(v.Index) + 1
	return p.data[base+int(v.Start) : base+int(v.End)]
}

// ByteAt returns the byte at offset i of the view.
func (v StringView) ByteAt(p *ConstantPool, i int) byte {
	return p.data[int(v.Index)+1+int(v.Start)+i]
}

// String copies the viewed bytes into a string.
func (v StringView) String(p *ConstantPool) string {
	return string(v.Bytes(p))
}

// Equals compares the view to s byte for byte.
func (v StringView) Equals(p *ConstantPool, s string) bool {
	if v.Len() != len(s) {
		return false
	}
	return string(v.Bytes(p)) == s
}

// EqualsView compares the contents of two views of the same pool.
func (v StringView) EqualsView(p *ConstantPool, other StringView) bool {
	if v.Len() != other.Len() {
		return false
	}
	return string(v.Bytes(p)) == string(other.Bytes(p))
}

// Compare orders the view against s byte-wise.
func (v StringView) Compare(p *ConstantPool, s string) int {
	a := v.Bytes(p)
	n := len(a)
	if len(s) < n {
		n = len(s)
	}
	for i := 0; i < n; i++ {
		if a[i] != s[i] {
			if a[i] < s[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(s):
		return -1
	case len(a) > len(s):
		return 1
	default:
		return 0
	}
}

// StartsWith reports whether the view begins with prefix under mode.
func (v StringView) StartsWith(p *ConstantPool, prefix string, mode MatchMode) bool {
	return matchesAt(v.Bytes(p), 0, prefix, mode)
}

// Search matches query against the view. The returned score is lower for
// better matches: a prefix match scores the number of trailing bytes, a
// contains match additionally ranks later occurrences after earlier ones.
func (v StringView) Search(p *ConstantPool, query string, options SearchOptions) (int, bool) {
	data := v.Bytes(p)
	if len(query) > len(data) {
		return 0, false
	}
	rest := len(data) - len(query)

	switch options.SearchMode {
	case SearchModeContains:
		for i := 0; i <= rest; i++ {
			if matchesAt(data, i, query, options.MatchMode) {
				return i*(MaxStringLength+1) + rest, true
			}
		}
		return 0, false
	default:
		if matchesAt(data, 0, query, options.MatchMode) {
			return rest, true
		}
		return 0, false
	}
}

// matchesAt compares query against data[offset:] under mode.
func matchesAt(data []byte, offset int, query string, mode MatchMode) bool {
	if offset+len(query) > len(data) {
		return false
	}
	for i := 0; i < len(query); i++ {
		a, b := data[offset+i], query[i]
		switch {
		case mode == MatchModeMatchCase, mode == MatchModeMatchCaseFirstCharOnly && i == 0:
			if a != b {
				return false
			}
		default:
			if !EqualFold(a, b) {
				return false
			}
		}
	}
	return true
}

// EqualFold compares two ASCII bytes ignoring letter case by flipping the
// 0x20 case bit.
func EqualFold(a, b byte) bool {
	if a == b {
		return true
	}
	return isLetter(a) && a^0x20 == b
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsASCII reports whether every byte of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
