package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jindex/pkg/signature"
)

// newClass describes a plain class extending java/lang/Object.
func newClass(full string) ClassInfo {
	pkg, name := splitClassName(full)
	return ClassInfo{
		PackageName: pkg,
		ClassName:   name,
		AccessFlags: AccPublic,
		Signature:   signature.NewClassSignature("", nil),
	}
}

func extending(info ClassInfo, super string, interfaces ...string) ClassInfo {
	info.Signature = signature.NewClassSignature(super, interfaces)
	return info
}

func withMethods(info ClassInfo, methods ...MethodInfo) ClassInfo {
	info.Methods = append(info.Methods, methods...)
	return info
}

func withFields(info ClassInfo, fields ...FieldInfo) ClassInfo {
	info.Fields = append(info.Fields, fields...)
	return info
}

func newMethod(t *testing.T, name, sig string, flags AccessFlags) MethodInfo {
	t.Helper()
	parsed, err := signature.ParseMethodSignature(sig, nil)
	require.NoError(t, err)
	return MethodInfo{Name: name, AccessFlags: flags, Signature: parsed}
}

func newField(t *testing.T, name, sig string) FieldInfo {
	t.Helper()
	parsed, err := signature.ParseFieldDescriptor(sig)
	require.NoError(t, err)
	return FieldInfo{Name: name, AccessFlags: AccPrivate, Type: parsed}
}

func mustBuild(t *testing.T, infos ...ClassInfo) *ClassIndex {
	t.Helper()
	idx, err := BuildFromInfos(infos)
	require.NoError(t, err)
	return idx
}

func mustFind(t *testing.T, idx *ClassIndex, full string) *IndexedClass {
	t.Helper()
	c := idx.FindClassByName(full)
	require.NotNil(t, c, "class %s not found", full)
	return c
}

func mustMethod(t *testing.T, idx *ClassIndex, c *IndexedClass, name string) *IndexedMethod {
	t.Helper()
	for i := range c.Methods() {
		if idx.MethodName(&c.Methods()[i]) == name {
			return &c.Methods()[i]
		}
	}
	t.Fatalf("method %s not found in %s", name, idx.ClassNameWithPackage(c))
	return nil
}

func fullNames(idx *ClassIndex, classes []*IndexedClass) []string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = idx.ClassNameWithPackage(c)
	}
	return names
}

func methodOwners(idx *ClassIndex, methods []ClassMethod) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = idx.ClassNameWithPackage(m.Class) + "." + idx.MethodName(m.Method)
	}
	return names
}

// shapes is a small hierarchy:
//
//	p/Shape (interface) <- p/AbstractShape <- p/Circle, p/Square
func shapes(t *testing.T) []ClassInfo {
	iface := newClass("p/Shape")
	iface.AccessFlags |= AccInterface | AccAbstract

	return []ClassInfo{
		withMethods(iface, newMethod(t, "area", "()D", AccPublic|AccAbstract)),
		withMethods(extending(newClass("p/AbstractShape"), "", "p/Shape"),
			newMethod(t, "area", "()D", AccPublic),
			newMethod(t, "secret", "()V", AccPrivate),
			newMethod(t, "scale", "(D)V", AccPublic),
		),
		withMethods(extending(newClass("p/Circle"), "p/AbstractShape"),
			newMethod(t, "area", "()D", AccPublic),
			newMethod(t, "secret", "()V", AccPublic),
			newMethod(t, "scale", "(I)V", AccPublic),
		),
		extending(newClass("p/Square"), "p/AbstractShape"),
		newClass("q/Unrelated"),
	}
}
