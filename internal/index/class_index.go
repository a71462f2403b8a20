// Package index builds and queries the class index: the package tree, the
// two-pass builder that resolves raw signatures against sorted class
// indices, the query engine and the persisted file format.
package index

import (
	"sort"
	"strings"

	"github.com/jindex/pkg/collections"
	"github.com/jindex/pkg/constantpool"
)

// classRange is the half-open slice of the class array whose names start
// with one byte.
type classRange struct {
	start, end int
}

// ClassIndex is the immutable, queryable result of a build. It is safe for
// concurrent readers.
type ClassIndex struct {
	pool     *constantpool.ConstantPool
	packages *PackageIndex
	classes  []*IndexedClass
	ranges   [128]classRange
	timeInfo BuildTimeInfo
}

// ClassMethod pairs a method with its declaring class.
type ClassMethod struct {
	Class  *IndexedClass
	Method *IndexedMethod
}

func newClassIndex(pool *constantpool.ConstantPool, packages *PackageIndex, classes []*IndexedClass) *ClassIndex {
	idx := &ClassIndex{pool: pool, packages: packages, classes: classes}
	idx.buildRanges()
	return idx
}

// buildRanges counts leading bytes of the sorted class names and assigns
// each byte its contiguous slice.
func (idx *ClassIndex) buildRanges() {
	var counts [128]int
	for _, c := range idx.classes {
		view := idx.pool.StringViewAt(c.nameIndex)
		if view.IsEmpty() {
			continue
		}
		if b := view.ByteAt(idx.pool, 0); b < 128 {
			counts[b]++
		}
	}

	start := 0
	for i := range counts {
		idx.ranges[i] = classRange{start: start, end: start + counts[i]}
		start += counts[i]
	}
}

func (idx *ClassIndex) classesStartingWith(b byte) []*IndexedClass {
	if b >= 128 {
		return nil
	}
	r := idx.ranges[b]
	return idx.classes[r.start:r.end]
}

// FindClasses searches class names for query. Prefix mode scans only the
// slices of classes starting with the query's first byte (both cases under
// IgnoreCase); Contains mode scans every class. The first Limit matches in
// scan order are returned, ordered by match score.
func (idx *ClassIndex) FindClasses(query string, options constantpool.SearchOptions) []*IndexedClass {
	if query == "" || options.Limit <= 0 {
		return nil
	}

	var candidates [][]*IndexedClass
	if options.SearchMode == constantpool.SearchModeContains {
		candidates = [][]*IndexedClass{idx.classes}
	} else {
		first := query[0]
		candidates = [][]*IndexedClass{idx.classesStartingWith(first)}
		if options.MatchMode == constantpool.MatchModeIgnoreCase {
			if other := swapCase(first); other != first {
				candidates = append(candidates, idx.classesStartingWith(other))
			}
		}
	}

	type scored struct {
		class *IndexedClass
		score int
	}
	var matches []scored

scan:
	for _, slice := range candidates {
		for _, c := range slice {
			score, ok := idx.pool.StringViewAt(c.nameIndex).Search(idx.pool, query, options)
			if !ok {
				continue
			}
			matches = append(matches, scored{class: c, score: score})
			if len(matches) >= options.Limit {
				break scan
			}
		}
	}

	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score < matches[j].score
	})

	result := make([]*IndexedClass, len(matches))
	for i, m := range matches {
		result[i] = m.class
	}
	return result
}

func swapCase(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return b ^ 0x20
	default:
		return b
	}
}

// compareClass orders c against (name, pkg) the way the class array is
// sorted.
func (idx *ClassIndex) compareClass(c *IndexedClass, pkg, name string) int {
	if cmp := idx.pool.StringViewAt(c.nameIndex).Compare(idx.pool, name); cmp != 0 {
		return cmp
	}
	return idx.packages.PackageAt(c.packageIndex).CompareNameWithParents(idx.packages, idx.pool, pkg)
}

// FindClass returns the class with the exact package path and class name,
// or nil.
func (idx *ClassIndex) FindClass(pkg, name string) *IndexedClass {
	if name == "" {
		return nil
	}
	slice := idx.classesStartingWith(name[0])
	i := sort.Search(len(slice), func(i int) bool {
		return idx.compareClass(slice[i], pkg, name) >= 0
	})
	if i < len(slice) && idx.compareClass(slice[i], pkg, name) == 0 {
		return slice[i]
	}
	return nil
}

// FindClassByName looks up a slash-separated full class name.
func (idx *ClassIndex) FindClassByName(full string) *IndexedClass {
	pkg, name := splitClassName(full)
	return idx.FindClass(pkg, name)
}

// FindPackage returns the package with the exact slash-separated path, or
// nil.
func (idx *ClassIndex) FindPackage(name string) *IndexedPackage {
	if name == "" {
		return nil
	}
	current := RootPackageIndex
	for {
		segment, rest, more := strings.Cut(name, "/")
		child, ok := idx.packages.findChild(idx.pool, current, segment)
		if !ok {
			return nil
		}
		current = child
		if !more {
			return idx.packages.PackageAt(current)
		}
		name = rest
	}
}

// FindPackages returns the sub-packages of the query's parent path whose
// name starts with the last segment, ignoring case. "java/ut" finds
// java/util; "j" searches top-level packages. An empty query finds
// nothing.
func (idx *ClassIndex) FindPackages(query string) []*IndexedPackage {
	if query == "" {
		return nil
	}
	parentPath, prefix := splitClassName(query)

	parent := idx.packages.PackageAt(RootPackageIndex)
	if parentPath != "" {
		parent = idx.FindPackage(parentPath)
		if parent == nil {
			return nil
		}
	}

	var result []*IndexedPackage
	for _, child := range parent.subPackages {
		pkg := idx.packages.PackageAt(child)
		if idx.pool.StringViewAt(pkg.nameIndex).StartsWith(idx.pool, prefix, constantpool.MatchModeIgnoreCase) {
			result = append(result, pkg)
		}
	}
	return result
}

// FindMethods returns up to limit methods whose names start with prefix,
// case-sensitively, in class order.
func (idx *ClassIndex) FindMethods(prefix string, limit int) []ClassMethod {
	if limit <= 0 {
		return nil
	}
	var result []ClassMethod
	for _, c := range idx.classes {
		for i := range c.methods {
			m := &c.methods[i]
			if !idx.pool.StringViewAt(m.nameIndex).StartsWith(idx.pool, prefix, constantpool.MatchModeMatchCase) {
				continue
			}
			result = append(result, ClassMethod{Class: c, Method: m})
			if len(result) >= limit {
				return result
			}
		}
	}
	return result
}

// FindImplementationsOfClass returns the classes that extend or implement
// the class at classIndex. Unless directOnly is set, a class also matches
// when any class on its super class chain does.
func (idx *ClassIndex) FindImplementationsOfClass(classIndex uint32, directOnly bool) []*IndexedClass {
	var result []*IndexedClass
	for _, c := range idx.classes {
		if directOnly {
			if c.IsDirectSubTypeOf(classIndex) {
				result = append(result, c)
			}
			continue
		}
		if idx.inheritsFrom(c, classIndex) {
			result = append(result, c)
		}
	}
	return result
}

// inheritsFrom walks the super class chain of c. The walk is bounded by the
// number of classes so a cyclic chain terminates.
func (idx *ClassIndex) inheritsFrom(c *IndexedClass, classIndex uint32) bool {
	current := c
	for steps := 0; steps <= len(idx.classes); steps++ {
		if current.IsDirectSubTypeOf(classIndex) {
			return true
		}
		super, ok := current.superClass()
		if !ok || int(super) >= len(idx.classes) {
			return false
		}
		current = idx.classes[super]
	}
	return false
}

// FindImplementationsOfMethod returns the overriding methods declared in
// direct and indirect subclasses of the defining class.
func (idx *ClassIndex) FindImplementationsOfMethod(definingClass uint32, method *IndexedMethod) []ClassMethod {
	var result []ClassMethod
	for _, c := range idx.FindImplementationsOfClass(definingClass, false) {
		for i := range c.methods {
			if c.methods[i].Overrides(method) {
				result = append(result, ClassMethod{Class: c, Method: &c.methods[i]})
			}
		}
	}
	return result
}

// FindBaseMethodsOfMethod walks every resolved super type of the class at
// classIndex, recursively, and returns each method that method overrides.
// Classes reachable along several paths are reported once per path.
func (idx *ClassIndex) FindBaseMethodsOfMethod(classIndex uint32, method *IndexedMethod) []ClassMethod {
	if int(classIndex) >= len(idx.classes) {
		return nil
	}
	var result []ClassMethod
	onPath := collections.NewBitset(len(idx.classes))
	onPath.Set(int(classIndex))
	idx.collectBaseMethods(classIndex, method, onPath, &result)
	return result
}

func (idx *ClassIndex) collectBaseMethods(classIndex uint32, method *IndexedMethod, onPath *collections.Bitset, result *[]ClassMethod) {
	for _, super := range idx.classes[classIndex].DirectSuperTypes() {
		if int(super) >= len(idx.classes) || onPath.Test(int(super)) {
			continue
		}
		base := idx.classes[super]
		for i := range base.methods {
			if method.Overrides(&base.methods[i]) {
				*result = append(*result, ClassMethod{Class: base, Method: &base.methods[i]})
			}
		}

		onPath.Set(int(super))
		idx.collectBaseMethods(super, method, onPath, result)
		onPath.Clear(int(super))
	}
}

// ClassAt returns the class with the given global index, or nil.
func (idx *ClassIndex) ClassAt(classIndex uint32) *IndexedClass {
	if int(classIndex) >= len(idx.classes) {
		return nil
	}
	return idx.classes[classIndex]
}

// Classes returns all classes in global index order.
func (idx *ClassIndex) Classes() []*IndexedClass { return idx.classes }

// Packages returns the package tree.
func (idx *ClassIndex) Packages() *PackageIndex { return idx.packages }

// ConstantPool returns the string arena backing every name in the index.
func (idx *ClassIndex) ConstantPool() *constantpool.ConstantPool { return idx.pool }

// TimeInfo returns the timings recorded while the index was built or
// loaded.
func (idx *ClassIndex) TimeInfo() BuildTimeInfo { return idx.timeInfo }

// SetTimeInfo replaces the recorded timings.
func (idx *ClassIndex) SetTimeInfo(info BuildTimeInfo) { idx.timeInfo = info }
