package signature

import (
	"strings"
)

// UnresolvedClassName is rendered in place of a reference that could not be
// resolved against the index.
const UnresolvedClassName = "jindex_unresolved"

// Namer renders the names carried by a signature tree.
type Namer[T Name] interface {
	// ClassName returns the slash-separated name of a class including its package.
	ClassName(name T) string
	// InnerClassName returns the name of a nested class segment without
	// package or outer class.
	InnerClassName(name T) string
	// VariableName returns the name of a generic type variable.
	VariableName(name T) string
}

// Printer serializes signature trees back to JVM signature text.
type Printer[T Name] struct {
	Namer Namer[T]
	// ExplicitObject renders an absent super class or class bound as
	// Ljava/lang/Object; instead of omitting it.
	ExplicitObject bool
	// GenericThrowsOnly omits the '^' exception list unless it names a type
	// variable, since plain exceptions come from the Exceptions attribute.
	GenericThrowsOnly bool
}

type rawNamer struct{}

func (rawNamer) ClassName(name string) string      { return name }
func (rawNamer) InnerClassName(name string) string { return name }
func (rawNamer) VariableName(name string) string   { return name }

// RawPrinter reproduces parsed raw signatures exactly.
var RawPrinter = Printer[string]{Namer: rawNamer{}}

// FormatType serializes a raw type.
func FormatType(t *Type[string]) string {
	return RawPrinter.Type(t)
}

// FormatTypeParameters serializes a raw generic declaration block.
func FormatTypeParameters(params []TypeParameter[string]) string {
	return RawPrinter.TypeParameters(params)
}

// FormatClassSignature serializes a raw class signature.
func FormatClassSignature(sig *ClassSignature[string]) string {
	return RawPrinter.ClassSignature(sig)
}

// FormatMethodSignature serializes a raw method signature.
func FormatMethodSignature(sig *MethodSignature[string]) string {
	return RawPrinter.MethodSignature(sig)
}

// Type serializes one type.
func (p Printer[T]) Type(t *Type[T]) string {
	var sb strings.Builder
	p.writeType(&sb, t)
	return sb.String()
}

func (p Printer[T]) writeType(sb *strings.Builder, t *Type[T]) {
	switch t.Kind {
	case KindPrimitive:
		sb.WriteByte(t.Primitive.Code())
	case KindGeneric:
		sb.WriteByte('T')
		sb.WriteString(p.Namer.VariableName(t.Name))
		sb.WriteByte(';')
	case KindObject:
		sb.WriteByte('L')
		sb.WriteString(p.Namer.ClassName(t.Name))
		sb.WriteByte(';')
	case KindObjectTypeBounds:
		sb.WriteByte('L')
		sb.WriteString(p.Namer.ClassName(t.Name))
		p.writeBounds(sb, t.Bounds)
		sb.WriteByte(';')
	case KindObjectInnerClass:
		sb.WriteByte('L')
		for i, part := range t.Parts {
			if i > 0 {
				sb.WriteByte('.')
			}
			p.writeInnerPart(sb, part, i == 0)
		}
		sb.WriteByte(';')
	case KindObjectPlus:
		sb.WriteByte('+')
		p.writeType(sb, t.Inner)
	case KindObjectMinus:
		sb.WriteByte('-')
		p.writeType(sb, t.Inner)
	case KindArray:
		sb.WriteByte('[')
		p.writeType(sb, t.Inner)
	default:
		sb.WriteString("L" + UnresolvedClassName + ";")
	}
}

func (p Printer[T]) writeBounds(sb *strings.Builder, bounds []*Type[T]) {
	sb.WriteByte('<')
	for _, b := range bounds {
		if b == nil {
			sb.WriteByte('*')
			continue
		}
		p.writeType(sb, b)
	}
	sb.WriteByte('>')
}

// writeInnerPart writes one segment of an inner class chain without the
// surrounding 'L' and ';'. Only the first segment keeps its package.
func (p Printer[T]) writeInnerPart(sb *strings.Builder, part *Type[T], first bool) {
	name := func(n T) string {
		if first {
			return p.Namer.ClassName(n)
		}
		return p.Namer.InnerClassName(n)
	}

	switch part.Kind {
	case KindObject:
		sb.WriteString(name(part.Name))
	case KindObjectTypeBounds:
		sb.WriteString(name(part.Name))
		p.writeBounds(sb, part.Bounds)
	default:
		sb.WriteString(UnresolvedClassName)
	}
}

// TypeParameters serializes a generic declaration block including the
// angle brackets. A nil slice yields the empty string.
func (p Printer[T]) TypeParameters(params []TypeParameter[T]) string {
	if params == nil {
		return ""
	}
	var sb strings.Builder
	p.writeTypeParameters(&sb, params)
	return sb.String()
}

func (p Printer[T]) writeTypeParameters(sb *strings.Builder, params []TypeParameter[T]) {
	if params == nil {
		return
	}
	sb.WriteByte('<')
	for _, param := range params {
		sb.WriteString(p.Namer.VariableName(param.Name))
		sb.WriteByte(':')
		if param.TypeBound != nil {
			p.writeType(sb, param.TypeBound)
		} else if p.ExplicitObject {
			sb.WriteString("L" + ObjectClassName + ";")
		}
		for _, bound := range param.InterfaceBounds {
			sb.WriteByte(':')
			p.writeType(sb, bound)
		}
	}
	sb.WriteByte('>')
}

// ClassSignature serializes a class signature.
func (p Printer[T]) ClassSignature(sig *ClassSignature[T]) string {
	var sb strings.Builder
	p.writeTypeParameters(&sb, sig.TypeParameters)
	if sig.SuperClass != nil {
		p.writeType(&sb, sig.SuperClass)
	} else if p.ExplicitObject {
		sb.WriteString("L" + ObjectClassName + ";")
	}
	for _, iface := range sig.Interfaces {
		p.writeType(&sb, iface)
	}
	return sb.String()
}

// MethodSignature serializes a method signature.
func (p Printer[T]) MethodSignature(sig *MethodSignature[T]) string {
	var sb strings.Builder
	p.writeTypeParameters(&sb, sig.TypeParameters)
	sb.WriteByte('(')
	for _, param := range sig.Parameters {
		p.writeType(&sb, param)
	}
	sb.WriteByte(')')
	p.writeType(&sb, sig.Return)

	if p.GenericThrowsOnly && !hasGeneric(sig.Exceptions) {
		return sb.String()
	}
	for _, exc := range sig.Exceptions {
		sb.WriteByte('^')
		p.writeType(&sb, exc)
	}
	return sb.String()
}

func hasGeneric[T Name](types []*Type[T]) bool {
	for _, t := range types {
		if t.Kind == KindGeneric {
			return true
		}
	}
	return false
}

// Descriptor renders the erased descriptor of t. Type variables resolve to
// their class bound from params, falling back to java/lang/Object.
func (p Printer[T]) Descriptor(t *Type[T], params []TypeParameter[T]) string {
	var sb strings.Builder
	p.writeDescriptor(&sb, t, params)
	return sb.String()
}

func (p Printer[T]) writeDescriptor(sb *strings.Builder, t *Type[T], params []TypeParameter[T]) {
	switch t.Kind {
	case KindPrimitive:
		sb.WriteByte(t.Primitive.Code())
	case KindArray:
		sb.WriteByte('[')
		p.writeDescriptor(sb, t.Inner, params)
	case KindGeneric:
		if bound := ResolveGenericTypeBound(t, params); bound != nil {
			p.writeDescriptor(sb, bound, params)
			return
		}
		sb.WriteString("L" + ObjectClassName + ";")
	case KindUnresolved:
		sb.WriteString("L" + UnresolvedClassName + ";")
	default:
		name, ok := t.BaseObjectType()
		if !ok {
			sb.WriteString("L" + UnresolvedClassName + ";")
			return
		}
		sb.WriteByte('L')
		sb.WriteString(p.Namer.ClassName(name))
		sb.WriteByte(';')
	}
}

// MethodDescriptor renders the erased "(params)return" descriptor of sig.
func (p Printer[T]) MethodDescriptor(sig *MethodSignature[T], params []TypeParameter[T]) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, param := range sig.Parameters {
		p.writeDescriptor(&sb, param, params)
	}
	sb.WriteByte(')')
	p.writeDescriptor(&sb, sig.Return, params)
	return sb.String()
}
