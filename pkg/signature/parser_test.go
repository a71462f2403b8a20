package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jindex/pkg/errors"
)

func TestParseType_Object(t *testing.T) {
	input := "Ljava/lang/Object;"

	typ, n, err := ParseType(input)
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.Equal(t, KindObject, typ.Kind)
	assert.Equal(t, "java/lang/Object", typ.Name)
	assert.Equal(t, input, FormatType(typ))
}

func TestParseType_PlusMinus(t *testing.T) {
	tests := []struct {
		prefix string
		kind   Kind
	}{
		{"+", KindObjectPlus},
		{"-", KindObjectMinus},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			input := tt.prefix + "Ljava/lang/Object;"
			typ, n, err := ParseType(input)
			require.NoError(t, err)
			assert.Equal(t, 19, n)
			assert.Equal(t, tt.kind, typ.Kind)
			assert.Equal(t, KindObject, typ.Inner.Kind)
			assert.Equal(t, input, FormatType(typ))
		})
	}
}

func TestParseType_TypeBounds(t *testing.T) {
	inputs := []string{
		"Ljava/lang/Object<+TC;Ltest;>;",
		"Lnet/minecraft/util/registry/RegistryNamespaced<Lnet/minecraft/util/ResourceLocation;Lnet/minecraft/item/Item;>;",
		"Ljava/lang/Object<*Lother/type;**>;",
		"Lgnu/trove/map/custom_hash/TObjectByteCustomHashMap<TK;>.MapBackedView<TK;>.AnotherOne;",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			typ, n, err := ParseType(input)
			require.NoError(t, err)
			assert.Equal(t, len(input), n)
			assert.Equal(t, input, FormatType(typ))
		})
	}
}

func TestParseType_Wildcards(t *testing.T) {
	typ, _, err := ParseType("Ljava/lang/Object<*Lother/type;**>;")
	require.NoError(t, err)

	require.Equal(t, KindObjectTypeBounds, typ.Kind)
	require.Len(t, typ.Bounds, 4)
	assert.Nil(t, typ.Bounds[0])
	assert.Equal(t, "other/type", typ.Bounds[1].Name)
	assert.Nil(t, typ.Bounds[2])
	assert.Nil(t, typ.Bounds[3])
}

func TestParseType_Array(t *testing.T) {
	input := "[[Ljava/lang/Object;"

	typ, n, err := ParseType(input)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, KindArray, typ.Kind)
	assert.Equal(t, KindArray, typ.Inner.Kind)
	assert.Equal(t, input, FormatType(typ))
}

func TestParseType_Generic(t *testing.T) {
	typ, n, err := ParseType("TB;")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, Generic("B"), typ)
	assert.Equal(t, "TB;", FormatType(typ))
}

func TestParseType_Primitives(t *testing.T) {
	for _, code := range []byte("ZBCDFIJSV") {
		t.Run(string(code), func(t *testing.T) {
			typ, n, err := ParseType(string(code))
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, KindPrimitive, typ.Kind)
			assert.Equal(t, string(code), FormatType(typ))
		})
	}
}

func TestParseType_InnerClassWithDollar(t *testing.T) {
	input := "Lscala/collection/parallel/mutable/ParArray<TT;>.ParArrayIterator$;"

	typ, _, err := ParseType(input)
	require.NoError(t, err)
	assert.Equal(t, input, FormatType(typ))

	require.Equal(t, KindObjectInnerClass, typ.Kind)
	require.Len(t, typ.Parts, 2)
	assert.Equal(t, "LParArrayIterator$;", FormatType(typ.Parts[1]))
	assert.Equal(t, KindObjectTypeBounds, typ.Parts[0].Kind)
}

func TestParseType_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		eof   bool
		char  byte
	}{
		{"empty", "", true, 0},
		{"unterminated object", "Ljava/lang/Object", true, 0},
		{"unterminated bounds", "Ljava/util/List<TT;", true, 0},
		{"unterminated generic", "TT", true, 0},
		{"bad lead char", "Q", false, 'Q'},
		{"bad bound", "Ljava/util/List<Q>;", false, 'Q'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseType(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrParse)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.eof, parseErr.EOF)
			assert.Equal(t, tt.char, parseErr.Char)
		})
	}
}

func TestParseTypeParameters(t *testing.T) {
	input := "<T:Ljava/lang/String;:Ljava/lang/Comparable;B::Ljava/lang/Comparable;>"

	params, n, err := ParseTypeParameters(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	require.Len(t, params, 2)

	assert.Equal(t, "T", params[0].Name)
	assert.Equal(t, Object("java/lang/String"), params[0].TypeBound)
	require.Len(t, params[0].InterfaceBounds, 1)
	assert.Equal(t, Object("java/lang/Comparable"), params[0].InterfaceBounds[0])

	assert.Equal(t, "B", params[1].Name)
	assert.Nil(t, params[1].TypeBound)
	require.Len(t, params[1].InterfaceBounds, 1)
	assert.Equal(t, Object("java/lang/Comparable"), params[1].InterfaceBounds[0])

	assert.Equal(t, input, FormatTypeParameters(params))
}

func TestParseTypeParameters_ObjectBoundIsDropped(t *testing.T) {
	params, _, err := ParseTypeParameters("<E:Ljava/lang/Object;>")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Nil(t, params[0].TypeBound)
	assert.Nil(t, params[0].InterfaceBounds)

	// The implicit bound is not written back by the raw printer.
	assert.Equal(t, "<E:>", FormatTypeParameters(params))
}

func TestParseTypeParameters_Errors(t *testing.T) {
	_, _, err := ParseTypeParameters("T:Ljava/lang/Object;>")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	_, _, err = ParseTypeParameters("<T:Ljava/lang/Object;")
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseMethodSignature(t *testing.T) {
	inputs := []string{
		"<T:Ljava/lang/String;:Ljava/lang/Comparable;B::Ljava/lang/Comparable;>(-Ljava/util/List<Ljava/lang/String;>;)V",
		"<T:Ljava/lang/String;:Ljava/lang/Comparable;B::Ljava/lang/Comparable;>(-Ljava/util/List<Ljava/lang/String;>;)V^Ljava/lang/Exception;^Ljava/lang/RuntimeException;^TB;",
		"()V",
		"(I[JLjava/lang/String;)[[Z",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			sig, err := ParseMethodSignature(input, nil)
			require.NoError(t, err)
			assert.Equal(t, input, FormatMethodSignature(sig))
		})
	}
}

func TestParseMethodSignature_Parts(t *testing.T) {
	sig, err := ParseMethodSignature("(ILjava/lang/String;)V", nil)
	require.NoError(t, err)

	assert.Nil(t, sig.TypeParameters)
	assert.Equal(t, 2, sig.ParameterCount())
	assert.Equal(t, PrimitiveType[string](Void), sig.Return)
	assert.Nil(t, sig.Exceptions)

	empty, err := ParseMethodSignature("()V", nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Parameters)
	assert.Equal(t, 0, empty.ParameterCount())
}

func TestParseMethodSignature_ExceptionsAttribute(t *testing.T) {
	sig, err := ParseMethodSignature("()V", []string{"java/io/IOException", "café/Bad"})
	require.NoError(t, err)
	require.Len(t, sig.Exceptions, 1)
	assert.Equal(t, Object("java/io/IOException"), sig.Exceptions[0])

	declared, err := ParseMethodSignature("()V^TE;", []string{"java/io/IOException"})
	require.NoError(t, err)
	require.Len(t, declared.Exceptions, 1)
	assert.Equal(t, Generic("E"), declared.Exceptions[0])
}

func TestParseMethodSignature_Errors(t *testing.T) {
	tests := []string{
		"",
		"V",
		"(I",
		"(I)",
		"<T:>()V",
		"(I)Q",
		"(é)V",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseMethodSignature(input, nil)
			assert.ErrorIs(t, err, apperrors.ErrParse)
		})
	}
}

func TestParseClassSignature(t *testing.T) {
	input := "<INPUT:Lmekanism/common/recipe/inputs/MachineInput<*TINPUT;*>;OUTPUT:Lmekanism/common/recipe/outputs/MachineOutput<TOUTPUT;>;RECIPE:Lmekanism/common/recipe/machines/MachineRecipe<TINPUT;TOUTPUT;TRECIPE;>;>Lmekanism/common/integration/crafttweaker/util/RecipeMapModification<TINPUT;TRECIPE;>;"

	sig, err := ParseClassSignature(input)
	require.NoError(t, err)
	assert.Len(t, sig.TypeParameters, 3)
	require.NotNil(t, sig.SuperClass)
	assert.Equal(t, KindObjectTypeBounds, sig.SuperClass.Kind)
	assert.Nil(t, sig.Interfaces)
	assert.Equal(t, input, FormatClassSignature(sig))
}

func TestParseClassSignature_ObjectSuperIsDropped(t *testing.T) {
	sig, err := ParseClassSignature("<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Comparable<TT;>;")
	require.NoError(t, err)

	assert.Nil(t, sig.SuperClass)
	require.Len(t, sig.Interfaces, 1)
	assert.Equal(t, "java/lang/Comparable", sig.Interfaces[0].Name)
	assert.Equal(t, "<T:>Ljava/lang/Comparable<TT;>;", FormatClassSignature(sig))
}

func TestParseClassSignature_Errors(t *testing.T) {
	_, err := ParseClassSignature("")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	_, err = ParseClassSignature("<T:Ljava/lang/Object;>")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	_, err = ParseClassSignature("Ljava/util/AbstractList<TE;")
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestNewClassSignature(t *testing.T) {
	sig := NewClassSignature("java/lang/Object", []string{"java/io/Serializable"})
	assert.Nil(t, sig.SuperClass)
	require.Len(t, sig.Interfaces, 1)

	sig = NewClassSignature("java/util/AbstractList", nil)
	assert.Equal(t, Object("java/util/AbstractList"), sig.SuperClass)
	assert.Nil(t, sig.Interfaces)

	sig = NewClassSignature("", nil)
	assert.Nil(t, sig.SuperClass)
}

func TestParseFieldDescriptor(t *testing.T) {
	typ, err := ParseFieldDescriptor("Ljava/util/Map<TK;TV;>;")
	require.NoError(t, err)
	assert.Equal(t, KindObjectTypeBounds, typ.Kind)

	_, err = ParseFieldDescriptor("Ljava/util/Map")
	assert.ErrorIs(t, err, apperrors.ErrParse)

	for _, input := range []string{"I;junk", "Ljava/lang/String;;", "[IV"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseFieldDescriptor(input)
			assert.ErrorIs(t, err, apperrors.ErrParse)
		})
	}
}
