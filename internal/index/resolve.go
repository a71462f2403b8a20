package index

import (
	"strings"

	"github.com/jindex/pkg/constantpool"
	"github.com/jindex/pkg/signature"
)

// splitClassName splits a full class name at its last '/'.
func splitClassName(full string) (pkg, name string) {
	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

// resolver turns raw signatures into indexed ones. Class references resolve
// through lookup; type variable and member names are interned in the pool.
type resolver struct {
	pool   *constantpool.ConstantPool
	names  map[string]uint32
	lookup func(pkg, name string) (uint32, bool)
}

func newResolver(pool *constantpool.ConstantPool, names map[string]uint32, lookup func(pkg, name string) (uint32, bool)) *resolver {
	if names == nil {
		names = make(map[string]uint32)
	}
	return &resolver{pool: pool, names: names, lookup: lookup}
}

// intern returns the pool index of s, adding it on first use.
func (r *resolver) intern(s string) (uint32, error) {
	if idx, ok := r.names[s]; ok {
		return idx, nil
	}
	idx, err := r.pool.AddString([]byte(s))
	if err != nil {
		return 0, err
	}
	r.names[s] = idx
	return idx, nil
}

func (r *resolver) lookupClass(full string) (uint32, bool) {
	pkg, name := splitClassName(full)
	return r.lookup(pkg, name)
}

func (r *resolver) resolveType(t *signature.Type[string]) (*IndexedType, error) {
	if t == nil {
		return nil, nil
	}

	switch t.Kind {
	case signature.KindPrimitive:
		return signature.PrimitiveType[uint32](t.Primitive), nil
	case signature.KindGeneric:
		idx, err := r.intern(t.Name)
		if err != nil {
			return nil, err
		}
		return signature.Generic(idx), nil
	case signature.KindObject:
		if idx, ok := r.lookupClass(t.Name); ok {
			return signature.Object(idx), nil
		}
		return signature.Unresolved[uint32](), nil
	case signature.KindObjectTypeBounds:
		bounds, err := r.resolveBounds(t.Bounds)
		if err != nil {
			return nil, err
		}
		if idx, ok := r.lookupClass(t.Name); ok {
			return signature.TypeBounds(idx, bounds), nil
		}
		return signature.Unresolved[uint32](), nil
	case signature.KindObjectPlus, signature.KindObjectMinus, signature.KindArray:
		inner, err := r.resolveType(t.Inner)
		if err != nil {
			return nil, err
		}
		return &IndexedType{Kind: t.Kind, Inner: inner}, nil
	case signature.KindObjectInnerClass:
		return r.resolveInnerClass(t.Parts)
	default:
		return signature.Unresolved[uint32](), nil
	}
}

func (r *resolver) resolveBounds(bounds []*signature.Type[string]) ([]*IndexedType, error) {
	if bounds == nil {
		return nil, nil
	}
	out := make([]*IndexedType, len(bounds))
	for i, b := range bounds {
		if b == nil {
			continue
		}
		resolved, err := r.resolveType(b)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// resolveInnerClass resolves Outer<..>.Inner<..> chains. Every later segment
// names the class formed by appending "$"+segment to the previous name.
func (r *resolver) resolveInnerClass(parts []*signature.Type[string]) (*IndexedType, error) {
	if len(parts) == 0 {
		return signature.Unresolved[uint32](), nil
	}

	first, err := r.resolveType(parts[0])
	if err != nil {
		return nil, err
	}
	resolved := make([]*IndexedType, 0, len(parts))
	resolved = append(resolved, first)

	typeName := parts[0].Name
	for _, part := range parts[1:] {
		typeName = typeName + "$" + part.Name
		idx, ok := r.lookupClass(typeName)
		if !ok {
			resolved = append(resolved, signature.Unresolved[uint32]())
			continue
		}

		if part.Kind == signature.KindObjectTypeBounds {
			bounds, err := r.resolveBounds(part.Bounds)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, signature.TypeBounds(idx, bounds))
		} else {
			resolved = append(resolved, signature.Object(idx))
		}
	}

	return signature.InnerClass(resolved), nil
}

func (r *resolver) resolveTypes(types []*signature.Type[string]) ([]*IndexedType, error) {
	if types == nil {
		return nil, nil
	}
	out := make([]*IndexedType, len(types))
	for i, t := range types {
		resolved, err := r.resolveType(t)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *resolver) resolveTypeParameters(params []signature.TypeParameter[string]) ([]IndexedTypeParameter, error) {
	if params == nil {
		return nil, nil
	}
	out := make([]IndexedTypeParameter, len(params))
	for i, p := range params {
		name, err := r.intern(p.Name)
		if err != nil {
			return nil, err
		}
		bound, err := r.resolveType(p.TypeBound)
		if err != nil {
			return nil, err
		}
		ifaces, err := r.resolveTypes(p.InterfaceBounds)
		if err != nil {
			return nil, err
		}
		out[i] = IndexedTypeParameter{Name: name, TypeBound: bound, InterfaceBounds: ifaces}
	}
	return out, nil
}

func (r *resolver) resolveClassSignature(sig *signature.ClassSignature[string]) (*IndexedClassSignature, error) {
	if sig == nil {
		return &IndexedClassSignature{}, nil
	}
	params, err := r.resolveTypeParameters(sig.TypeParameters)
	if err != nil {
		return nil, err
	}
	super, err := r.resolveType(sig.SuperClass)
	if err != nil {
		return nil, err
	}
	ifaces, err := r.resolveTypes(sig.Interfaces)
	if err != nil {
		return nil, err
	}
	return &IndexedClassSignature{TypeParameters: params, SuperClass: super, Interfaces: ifaces}, nil
}

func (r *resolver) resolveMethodSignature(sig *signature.MethodSignature[string]) (*IndexedMethodSignature, error) {
	if sig == nil {
		return nil, nil
	}
	params, err := r.resolveTypeParameters(sig.TypeParameters)
	if err != nil {
		return nil, err
	}
	parameters, err := r.resolveTypes(sig.Parameters)
	if err != nil {
		return nil, err
	}
	ret, err := r.resolveType(sig.Return)
	if err != nil {
		return nil, err
	}
	exceptions, err := r.resolveTypes(sig.Exceptions)
	if err != nil {
		return nil, err
	}
	return &IndexedMethodSignature{
		TypeParameters: params,
		Parameters:     parameters,
		Return:         ret,
		Exceptions:     exceptions,
	}, nil
}

func (r *resolver) resolveEnclosing(info *signature.EnclosingTypeInfo[string]) (*IndexedEnclosingTypeInfo, error) {
	if info == nil {
		return nil, nil
	}

	out := &IndexedEnclosingTypeInfo{Type: info.Type}
	if info.HasClassName {
		out.ClassName, out.HasClassName = r.lookupClass(info.ClassName)
	}
	if info.HasMethodName {
		name, err := r.intern(info.MethodName)
		if err != nil {
			return nil, err
		}
		out.MethodName = name
		out.HasMethodName = true
	}
	if info.MethodDescriptor != nil {
		desc, err := r.resolveMethodSignature(info.MethodDescriptor)
		if err != nil {
			return nil, err
		}
		out.MethodDescriptor = desc
	}
	return out, nil
}
