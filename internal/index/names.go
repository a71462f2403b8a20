package index

import (
	"strings"

	"github.com/jindex/pkg/signature"
)

// ClassName returns the class name without package, e.g. "Map$Entry".
func (idx *ClassIndex) ClassName(c *IndexedClass) string {
	return idx.pool.StringAt(c.nameIndex)
}

// PackageName returns the slash-separated package path of c.
func (idx *ClassIndex) PackageName(c *IndexedClass) string {
	return idx.packages.PackageAt(c.packageIndex).NameWithParents(idx.packages, idx.pool)
}

// ClassNameWithPackage returns the full slash-separated name, e.g.
// "java/util/Map$Entry".
func (idx *ClassIndex) ClassNameWithPackage(c *IndexedClass) string {
	pkg := idx.PackageName(c)
	if pkg == "" {
		return idx.ClassName(c)
	}
	return pkg + "/" + idx.ClassName(c)
}

// SimpleClassName returns the name as written in source, e.g. "Entry".
func (idx *ClassIndex) SimpleClassName(c *IndexedClass) string {
	return idx.pool.StringViewAt(c.nameIndex).SubstringToEnd(int(c.nameStart)).String(idx.pool)
}

// SourceName returns the dotted source-level name, e.g. "java.util.Map.Entry".
func (idx *ClassIndex) SourceName(c *IndexedClass) string {
	return strings.NewReplacer("/", ".", "$", ".").Replace(idx.ClassNameWithPackage(c))
}

// EnclosingClass returns the resolved enclosing class of c, or nil.
func (idx *ClassIndex) EnclosingClass(c *IndexedClass) *IndexedClass {
	if c.enclosing == nil || !c.enclosing.HasClassName {
		return nil
	}
	return idx.ClassAt(c.enclosing.ClassName)
}

// EnclosingMethodName returns the name of the method declaring a local or
// anonymous class.
func (idx *ClassIndex) EnclosingMethodName(c *IndexedClass) (string, bool) {
	if c.enclosing == nil || !c.enclosing.HasMethodName {
		return "", false
	}
	return idx.pool.StringAt(c.enclosing.MethodName), true
}

func (idx *ClassIndex) FieldName(f *IndexedField) string {
	return idx.pool.StringAt(f.nameIndex)
}

func (idx *ClassIndex) MethodName(m *IndexedMethod) string {
	return idx.pool.StringAt(m.nameIndex)
}

// indexNamer renders indexed names: class names through the class array,
// type variables through the constant pool.
type indexNamer struct {
	idx *ClassIndex
}

func (n indexNamer) ClassName(name uint32) string {
	c := n.idx.ClassAt(name)
	if c == nil {
		return signature.UnresolvedClassName
	}
	return n.idx.ClassNameWithPackage(c)
}

func (n indexNamer) InnerClassName(name uint32) string {
	c := n.idx.ClassAt(name)
	if c == nil {
		return signature.UnresolvedClassName
	}
	return n.idx.SimpleClassName(c)
}

func (n indexNamer) VariableName(name uint32) string {
	return n.idx.pool.StringAt(name)
}

func (idx *ClassIndex) printer() signature.Printer[uint32] {
	return signature.Printer[uint32]{Namer: indexNamer{idx: idx}, ExplicitObject: true, GenericThrowsOnly: true}
}

// TypeString renders an indexed type as signature text.
func (idx *ClassIndex) TypeString(t *IndexedType) string {
	return idx.printer().Type(t)
}

// ClassSignatureString renders the generic declaration of c. An absent super
// class renders as Ljava/lang/Object;.
func (idx *ClassIndex) ClassSignatureString(c *IndexedClass) string {
	if c.signature == nil {
		return ""
	}
	return idx.printer().ClassSignature(c.signature)
}

// MethodSignatureString renders the generic signature of m.
func (idx *ClassIndex) MethodSignatureString(m *IndexedMethod) string {
	return idx.printer().MethodSignature(m.signature)
}

// FieldDescriptorString renders the erased descriptor of a field of c.
func (idx *ClassIndex) FieldDescriptorString(c *IndexedClass, f *IndexedField) string {
	return idx.printer().Descriptor(f.signature, idx.classTypeParameters(c))
}

// MethodDescriptorString renders the erased descriptor of a method of c.
// Type variables resolve against the method's own declarations first.
func (idx *ClassIndex) MethodDescriptorString(c *IndexedClass, m *IndexedMethod) string {
	params := append(append([]IndexedTypeParameter(nil), m.signature.TypeParameters...), idx.classTypeParameters(c)...)
	return idx.printer().MethodDescriptor(m.signature, params)
}

func (idx *ClassIndex) classTypeParameters(c *IndexedClass) []IndexedTypeParameter {
	if c == nil || c.signature == nil {
		return nil
	}
	return c.signature.TypeParameters
}
