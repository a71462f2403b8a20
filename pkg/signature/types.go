// Package signature models JVM generic signatures and descriptors.
//
// Every node type is generic over the name representation: the raw form
// produced by the parser carries strings (Type[string]); the indexed form
// stored in a class index carries constant-pool or class indices
// (Type[uint32]). Both forms share one definition so they cannot drift apart.
package signature

// ObjectClassName is the implicit super class and type bound.
const ObjectClassName = "java/lang/Object"

// Name is the payload carried by names in a signature tree.
type Name interface {
	~string | ~uint32
}

// Kind identifies the variant of a Type. The numeric values are part of the
// persisted index format.
type Kind uint8

const (
	KindUnresolved Kind = iota
	KindPrimitive
	KindGeneric
	KindObject
	KindObjectPlus
	KindObjectMinus
	KindObjectTypeBounds
	KindObjectInnerClass
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindUnresolved:
		return "Unresolved"
	case KindPrimitive:
		return "Primitive"
	case KindGeneric:
		return "Generic"
	case KindObject:
		return "Object"
	case KindObjectPlus:
		return "ObjectPlus"
	case KindObjectMinus:
		return "ObjectMinus"
	case KindObjectTypeBounds:
		return "ObjectTypeBounds"
	case KindObjectInnerClass:
		return "ObjectInnerClass"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Primitive is one of the nine JVM primitive codes, in persisted order.
type Primitive uint8

const (
	Boolean Primitive = iota
	Byte
	Char
	Double
	Float
	Int
	Long
	Short
	Void
)

const primitiveCodes = "ZBCDFIJSV"

// Code returns the descriptor character of the primitive.
func (p Primitive) Code() byte {
	if int(p) < len(primitiveCodes) {
		return primitiveCodes[p]
	}
	return '?'
}

func (p Primitive) String() string {
	return string(p.Code())
}

// PrimitiveFromCode maps a descriptor character to its primitive.
func PrimitiveFromCode(c byte) (Primitive, bool) {
	for i := 0; i < len(primitiveCodes); i++ {
		if primitiveCodes[i] == c {
			return Primitive(i), true
		}
	}
	return 0, false
}

// Type is one node of a signature tree. Which fields are meaningful depends
// on Kind:
//
//	Primitive         Primitive
//	Generic, Object   Name
//	ObjectTypeBounds  Name, Bounds (a nil entry is the unbounded wildcard *)
//	ObjectInnerClass  Parts
//	Plus, Minus       Inner
//	Array             Inner (element type)
type Type[T Name] struct {
	Kind      Kind
	Primitive Primitive
	Name      T
	Inner     *Type[T]
	Bounds    []*Type[T]
	Parts     []*Type[T]
}

func Unresolved[T Name]() *Type[T] {
	return &Type[T]{Kind: KindUnresolved}
}

func PrimitiveType[T Name](p Primitive) *Type[T] {
	return &Type[T]{Kind: KindPrimitive, Primitive: p}
}

func Generic[T Name](name T) *Type[T] {
	return &Type[T]{Kind: KindGeneric, Name: name}
}

func Object[T Name](name T) *Type[T] {
	return &Type[T]{Kind: KindObject, Name: name}
}

func ObjectPlus[T Name](inner *Type[T]) *Type[T] {
	return &Type[T]{Kind: KindObjectPlus, Inner: inner}
}

func ObjectMinus[T Name](inner *Type[T]) *Type[T] {
	return &Type[T]{Kind: KindObjectMinus, Inner: inner}
}

func TypeBounds[T Name](name T, bounds []*Type[T]) *Type[T] {
	return &Type[T]{Kind: KindObjectTypeBounds, Name: name, Bounds: bounds}
}

func InnerClass[T Name](parts []*Type[T]) *Type[T] {
	return &Type[T]{Kind: KindObjectInnerClass, Parts: parts}
}

func Array[T Name](element *Type[T]) *Type[T] {
	return &Type[T]{Kind: KindArray, Inner: element}
}

// TypeParameter is one declaration of a generic type parameter block. A nil
// TypeBound means the implicit java/lang/Object bound.
type TypeParameter[T Name] struct {
	Name            T
	TypeBound       *Type[T]
	InterfaceBounds []*Type[T]
}

// ClassSignature describes the generic declaration of a class. A nil
// SuperClass means java/lang/Object.
type ClassSignature[T Name] struct {
	TypeParameters []TypeParameter[T]
	SuperClass     *Type[T]
	Interfaces     []*Type[T]
}

// MethodSignature describes a method's generic declaration, parameter list,
// return type and declared exceptions. Nil slices mean "none".
type MethodSignature[T Name] struct {
	TypeParameters []TypeParameter[T]
	Parameters     []*Type[T]
	Return         *Type[T]
	Exceptions     []*Type[T]
}

// ParameterCount returns the number of declared parameters.
func (m *MethodSignature[T]) ParameterCount() int {
	return len(m.Parameters)
}

// InnerClassType classifies a nested class.
type InnerClassType uint8

const (
	InnerClassMember InnerClassType = iota
	InnerClassAnonymous
	InnerClassLocal
)

func (t InnerClassType) String() string {
	switch t {
	case InnerClassMember:
		return "member"
	case InnerClassAnonymous:
		return "anonymous"
	case InnerClassLocal:
		return "local"
	default:
		return "unknown"
	}
}

// EnclosingTypeInfo describes where a nested class is declared. In the
// indexed form HasClassName is false when the enclosing class could not be
// resolved.
type EnclosingTypeInfo[T Name] struct {
	ClassName        T
	HasClassName     bool
	Type             InnerClassType
	MethodName       T
	HasMethodName    bool
	MethodDescriptor *MethodSignature[T]
}
