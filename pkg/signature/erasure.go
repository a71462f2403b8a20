package signature

// BaseObjectType returns the class name a reference type erases to. Wildcards
// erase to their bound, inner class chains to their last segment.
func (t *Type[T]) BaseObjectType() (T, bool) {
	var zero T
	if t == nil {
		return zero, false
	}
	switch t.Kind {
	case KindObject, KindObjectTypeBounds:
		return t.Name, true
	case KindObjectPlus, KindObjectMinus:
		return t.Inner.BaseObjectType()
	case KindObjectInnerClass:
		if len(t.Parts) == 0 {
			return zero, false
		}
		return t.Parts[len(t.Parts)-1].BaseObjectType()
	default:
		return zero, false
	}
}

// EqErased reports whether two types are equal after erasure: primitives by
// code, arrays by element, references by base class. A type variable erases
// to anything; an unresolved reference only equals another unresolved one.
func EqErased[T Name](a, b *Type[T]) bool {
	switch a.Kind {
	case KindPrimitive:
		return b.Kind == KindPrimitive && a.Primitive == b.Primitive
	case KindArray:
		return b.Kind == KindArray && EqErased(a.Inner, b.Inner)
	case KindUnresolved:
		return b.Kind == KindUnresolved
	case KindGeneric:
		return true
	}

	if b.Kind == KindGeneric {
		return true
	}
	an, ok := a.BaseObjectType()
	if !ok {
		return false
	}
	bn, ok := b.BaseObjectType()
	return ok && an == bn
}

// ResolveGenericTypeBound returns the class bound declared for the type
// variable t in params, or nil if t is not a type variable, the variable is
// not declared there, or it has the implicit java/lang/Object bound.
func ResolveGenericTypeBound[T Name](t *Type[T], params []TypeParameter[T]) *Type[T] {
	if t == nil || t.Kind != KindGeneric {
		return nil
	}
	for i := range params {
		if params[i].Name == t.Name {
			return params[i].TypeBound
		}
	}
	return nil
}

// Walk calls fn for t and every nested type in depth-first order. Wildcard
// bounds that are nil are skipped.
func Walk[T Name](t *Type[T], fn func(*Type[T])) {
	if t == nil {
		return
	}
	fn(t)
	switch t.Kind {
	case KindObjectPlus, KindObjectMinus, KindArray:
		Walk(t.Inner, fn)
	case KindObjectTypeBounds:
		for _, b := range t.Bounds {
			Walk(b, fn)
		}
	case KindObjectInnerClass:
		for _, part := range t.Parts {
			Walk(part, fn)
		}
	}
}
