package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/pkg/signature"
)

func TestClassNames(t *testing.T) {
	entry := newClass("java/util/Map$Entry")
	entry.NameStart = len("Map$")

	idx := mustBuild(t, newClass("java/util/Map"), entry, newClass("Main"))

	c := mustFind(t, idx, "java/util/Map$Entry")
	assert.Equal(t, "Map$Entry", idx.ClassName(c))
	assert.Equal(t, "java/util", idx.PackageName(c))
	assert.Equal(t, "java/util/Map$Entry", idx.ClassNameWithPackage(c))
	assert.Equal(t, "Entry", idx.SimpleClassName(c))
	assert.Equal(t, "java.util.Map.Entry", idx.SourceName(c))

	main := mustFind(t, idx, "Main")
	assert.Equal(t, "Main", idx.ClassNameWithPackage(main))
	assert.Equal(t, "Main", idx.SimpleClassName(main))
	assert.Equal(t, "", idx.PackageName(main))
}

func TestEnclosingMethod(t *testing.T) {
	desc, err := signature.ParseMethodSignature("(Ljava/lang/String;)V", nil)
	require.NoError(t, err)

	local := newClass("p/Outer$1Local")
	local.NameStart = len("Outer$1")
	local.Enclosing = &signature.EnclosingTypeInfo[string]{
		ClassName:        "p/Outer",
		HasClassName:     true,
		Type:             signature.InnerClassLocal,
		MethodName:       "run",
		HasMethodName:    true,
		MethodDescriptor: desc,
	}

	idx := mustBuild(t, newClass("p/Outer"), local)
	c := mustFind(t, idx, "p/Outer$1Local")

	assert.Equal(t, "Local", idx.SimpleClassName(c))
	assert.Equal(t, mustFind(t, idx, "p/Outer"), idx.EnclosingClass(c))
	assert.Equal(t, signature.InnerClassLocal, c.Enclosing().Type)

	name, ok := idx.EnclosingMethodName(c)
	assert.True(t, ok)
	assert.Equal(t, "run", name)
	assert.Equal(t, signature.KindUnresolved, c.Enclosing().MethodDescriptor.Parameters[0].Kind)
}

func TestSignatureStrings(t *testing.T) {
	generic, err := signature.ParseClassSignature("<E:Ljava/lang/Object;K:Lp/Base;>Lp/Base;Lp/Iface<TE;>;")
	require.NoError(t, err)

	box := newClass("p/Box")
	box.Signature = generic
	box = withFields(box,
		newField(t, "element", "TE;"),
		newField(t, "key", "TK;"),
		newField(t, "list", "[Lp/Iface<*>;"),
	)
	box = withMethods(box,
		newMethod(t, "map", "<R:Lp/Iface<TE;>;>(TR;TE;[I)TK;", AccPublic),
		newMethod(t, "fail", "()V^TX;", AccPublic),
	)

	idx := mustBuild(t, newClass("p/Base"), newClass("p/Iface"), box, newClass("p/Plain"))
	c := mustFind(t, idx, "p/Box")

	assert.Equal(t, "<E:Ljava/lang/Object;K:Lp/Base;>Lp/Base;Lp/Iface<TE;>;", idx.ClassSignatureString(c))
	assert.Equal(t, "Ljava/lang/Object;", idx.ClassSignatureString(mustFind(t, idx, "p/Plain")))

	fields := c.Fields()
	assert.Equal(t, "TE;", idx.TypeString(fields[0].Signature()))
	assert.Equal(t, "Ljava/lang/Object;", idx.FieldDescriptorString(c, &fields[0]))
	assert.Equal(t, "Lp/Base;", idx.FieldDescriptorString(c, &fields[1]))
	assert.Equal(t, "[Lp/Iface;", idx.FieldDescriptorString(c, &fields[2]))

	mapMethod := mustMethod(t, idx, c, "map")
	assert.Equal(t, "<R:Lp/Iface<TE;>;>(TR;TE;[I)TK;", idx.MethodSignatureString(mapMethod))
	assert.Equal(t, "(Lp/Iface;Ljava/lang/Object;[I)Lp/Base;", idx.MethodDescriptorString(c, mapMethod))

	failMethod := mustMethod(t, idx, c, "fail")
	assert.Equal(t, "()V^TX;", idx.MethodSignatureString(failMethod))
}
