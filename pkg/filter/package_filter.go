// Package filter selects classes by the package they are declared in.
// Package names are slash separated ("java/util"); dotted patterns such as
// "com.acme.*" are accepted and normalized.
package filter

import (
	"strings"
)

// Category represents the origin of a package.
type Category int

const (
	// CategoryApplication is any package not shipped with the JDK.
	CategoryApplication Category = iota
	// CategoryJDK is a package of the Java platform itself.
	CategoryJDK
)

// String returns the string representation of the category.
func (c Category) String() string {
	if c == CategoryJDK {
		return "jdk"
	}
	return "application"
}

// jdkPackages are the package roots of the Java platform.
var jdkPackages = []string{
	"java",
	"javax/annotation/processing",
	"javax/crypto",
	"javax/lang/model",
	"javax/management",
	"javax/naming",
	"javax/net",
	"javax/script",
	"javax/security",
	"javax/sql",
	"javax/swing",
	"javax/tools",
	"javax/xml",
	"jdk",
	"sun",
	"com/sun",
	"org/ietf/jgss",
	"org/w3c/dom",
	"org/xml/sax",
}

// Categorize classifies a package name.
func Categorize(pkg string) Category {
	if matchAny(jdkPackages, pkg) {
		return CategoryJDK
	}
	return CategoryApplication
}

// PackageFilter keeps classes whose package is under one of the include
// prefixes and under none of the exclude prefixes. An empty include list
// keeps every package. Prefixes match whole segments: "com/acme" matches
// "com/acme" and "com/acme/util" but not "com/acmex".
//
// A PackageFilter is immutable and safe for concurrent use.
type PackageFilter struct {
	include    []string
	exclude    []string
	excludeJDK bool
}

// NewPackageFilter creates a filter from include and exclude patterns.
// Empty patterns are ignored.
func NewPackageFilter(include, exclude []string, excludeJDK bool) *PackageFilter {
	return &PackageFilter{
		include:    normalizeAll(include),
		exclude:    normalizeAll(exclude),
		excludeJDK: excludeJDK,
	}
}

// IsEmpty reports whether the filter keeps every package.
func (f *PackageFilter) IsEmpty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0 && !f.excludeJDK)
}

// Allow reports whether classes of pkg are kept. A nil filter keeps
// everything.
func (f *PackageFilter) Allow(pkg string) bool {
	if f.IsEmpty() {
		return true
	}
	if len(f.include) > 0 && !matchAny(f.include, pkg) {
		return false
	}
	if f.excludeJDK && Categorize(pkg) == CategoryJDK {
		return false
	}
	return !matchAny(f.exclude, pkg)
}

// Normalize converts a dotted or wildcard pattern to a slash separated
// package prefix: "com.acme.*" becomes "com/acme".
func Normalize(pattern string) string {
	p := strings.TrimSpace(pattern)
	p = strings.TrimSuffix(p, "*")
	p = strings.ReplaceAll(p, ".", "/")
	return strings.Trim(p, "/")
}

func normalizeAll(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func matchAny(prefixes []string, pkg string) bool {
	for _, p := range prefixes {
		if pkg == p || (strings.HasPrefix(pkg, p) && pkg[len(p)] == '/') {
			return true
		}
	}
	return false
}
