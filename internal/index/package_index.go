package index

import (
	"strings"

	"github.com/jindex/pkg/constantpool"
)

// RootPackageIndex is the synthetic root of the package tree. Its name is
// the empty string and it is its own parent.
const RootPackageIndex uint32 = 0

// IndexedPackage is one node of the package tree.
type IndexedPackage struct {
	index       uint32
	nameIndex   uint32
	parent      uint32
	subPackages []uint32
	classes     []uint32
}

// Index returns the package's position in the package index.
func (p *IndexedPackage) Index() uint32 { return p.index }

// NameIndex returns the constant-pool index of the package's own segment.
func (p *IndexedPackage) NameIndex() uint32 { return p.nameIndex }

// ParentIndex returns the parent package; the root is its own parent.
func (p *IndexedPackage) ParentIndex() uint32 { return p.parent }

// SubPackages returns the indices of the direct child packages.
func (p *IndexedPackage) SubPackages() []uint32 { return p.subPackages }

// Classes returns the global indices of the classes declared directly in
// this package.
func (p *IndexedPackage) Classes() []uint32 { return p.classes }

// Name returns the package's own segment, e.g. "util" for java/util.
func (p *IndexedPackage) Name(pool *constantpool.ConstantPool) string {
	return pool.StringAt(p.nameIndex)
}

// NameWithParents returns the slash-separated path from the root.
func (p *IndexedPackage) NameWithParents(packages *PackageIndex, pool *constantpool.ConstantPool) string {
	if p.index == RootPackageIndex {
		return ""
	}

	parts := make([]string, 0, 4)
	for current := p; ; current = packages.PackageAt(current.parent) {
		parts = append(parts, current.Name(pool))
		if current.parent == RootPackageIndex {
			break
		}
	}

	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString(parts[i])
		if i > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// depth returns the number of segments in the package's path.
func (p *IndexedPackage) depth(packages *PackageIndex) int {
	d := 0
	for current := p; current.index != RootPackageIndex; current = packages.PackageAt(current.parent) {
		d++
	}
	return d
}

// ancestor returns the package n levels above p.
func (p *IndexedPackage) ancestor(packages *PackageIndex, n int) *IndexedPackage {
	current := p
	for ; n > 0; n-- {
		current = packages.PackageAt(current.parent)
	}
	return current
}

// CompareNameWithParents compares the package's full path with s without
// building the path. The result orders like comparing NameWithParents with
// s byte by byte.
func (p *IndexedPackage) CompareNameWithParents(packages *PackageIndex, pool *constantpool.ConstantPool, s string) int {
	depth := p.depth(packages)
	pos := 0

	for level := depth; level >= 1; level-- {
		if level != depth {
			if pos >= len(s) {
				return 1
			}
			if s[pos] != '/' {
				return compareByte('/', s[pos])
			}
			pos++
		}

		segment := p.ancestor(packages, level-1)
		view := pool.StringViewAt(segment.nameIndex)
		for i := 0; i < view.Len(); i++ {
			if pos >= len(s) {
				return 1
			}
			if c := compareByte(view.ByteAt(pool, i), s[pos]); c != 0 {
				return c
			}
			pos++
		}
	}

	if pos < len(s) {
		return -1
	}
	return 0
}

func compareByte(a, b byte) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// PackageIndex is the tree of packages discovered while building.
type PackageIndex struct {
	packages []IndexedPackage
}

// NewPackageIndex creates a tree holding only the root package.
func NewPackageIndex() *PackageIndex {
	return &PackageIndex{
		packages: []IndexedPackage{{index: RootPackageIndex, nameIndex: constantpool.EmptyStringIndex}},
	}
}

// GetOrAdd returns the package for a slash-separated path, creating missing
// segments. The empty path is the root package.
func (pi *PackageIndex) GetOrAdd(pool *constantpool.ConstantPool, name string) (uint32, error) {
	current := RootPackageIndex
	if name == "" {
		return current, nil
	}

	for {
		segment, rest, more := strings.Cut(name, "/")

		child, ok := pi.findChild(pool, current, segment)
		if !ok {
			nameIndex, err := pool.AddString([]byte(segment))
			if err != nil {
				return 0, err
			}
			child = uint32(len(pi.packages))
			pi.packages = append(pi.packages, IndexedPackage{index: child, nameIndex: nameIndex, parent: current})
			pi.packages[current].subPackages = append(pi.packages[current].subPackages, child)
		}

		current = child
		if !more {
			return current, nil
		}
		name = rest
	}
}

func (pi *PackageIndex) findChild(pool *constantpool.ConstantPool, parent uint32, segment string) (uint32, bool) {
	for _, child := range pi.packages[parent].subPackages {
		if pool.StringViewAt(pi.packages[child].nameIndex).Equals(pool, segment) {
			return child, true
		}
	}
	return 0, false
}

// PackageAt returns the package at index.
func (pi *PackageIndex) PackageAt(index uint32) *IndexedPackage {
	return &pi.packages[index]
}

// Len returns the number of packages including the root.
func (pi *PackageIndex) Len() int {
	return len(pi.packages)
}

func (pi *PackageIndex) addClass(pkg, class uint32) {
	pi.packages[pkg].classes = append(pi.packages[pkg].classes, class)
}
