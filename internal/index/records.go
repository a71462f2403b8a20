package index

import (
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/signature"
)

// Indexed signature forms. Object and inner class names are class indices,
// type variable names are constant-pool indices.
type (
	IndexedType              = signature.Type[uint32]
	IndexedTypeParameter     = signature.TypeParameter[uint32]
	IndexedClassSignature    = signature.ClassSignature[uint32]
	IndexedMethodSignature   = signature.MethodSignature[uint32]
	IndexedEnclosingTypeInfo = signature.EnclosingTypeInfo[uint32]
)

// IndexedField is a field of an indexed class.
type IndexedField struct {
	nameIndex   uint32
	accessFlags AccessFlags
	signature   *IndexedType
}

// NewIndexedField creates a field record.
func NewIndexedField(nameIndex uint32, accessFlags AccessFlags, sig *IndexedType) IndexedField {
	return IndexedField{nameIndex: nameIndex, accessFlags: accessFlags, signature: sig}
}

func (f *IndexedField) NameIndex() uint32 { return f.nameIndex }
func (f *IndexedField) AccessFlags() AccessFlags { return f.accessFlags }
func (f *IndexedField) Signature() *IndexedType { return f.signature }

// IndexedMethod is a method of an indexed class.
type IndexedMethod struct {
	nameIndex   uint32
	accessFlags AccessFlags
	signature   *IndexedMethodSignature
}

// NewIndexedMethod creates a method record.
func NewIndexedMethod(nameIndex uint32, accessFlags AccessFlags, sig *IndexedMethodSignature) IndexedMethod {
	return IndexedMethod{nameIndex: nameIndex, accessFlags: accessFlags, signature: sig}
}

func (m *IndexedMethod) NameIndex() uint32 { return m.nameIndex }
func (m *IndexedMethod) AccessFlags() AccessFlags { return m.accessFlags }
func (m *IndexedMethod) Signature() *IndexedMethodSignature { return m.signature }

// Overrides reports whether m can override base: same name, same number of
// parameters and pairwise equal parameter erasures. Private methods are
// never overridden.
func (m *IndexedMethod) Overrides(base *IndexedMethod) bool {
	if base.accessFlags.IsPrivate() {
		return false
	}
	if m.nameIndex != base.nameIndex {
		return false
	}
	if m.signature.ParameterCount() != base.signature.ParameterCount() {
		return false
	}
	for i, param := range m.signature.Parameters {
		if !signature.EqErased(param, base.signature.Parameters[i]) {
			return false
		}
	}
	return true
}

// IndexedClass is one class of the index. Its global index, signature,
// enclosing info, member classes, fields and methods are assigned exactly
// once while the index is built.
type IndexedClass struct {
	index        uint32
	indexSet     bool
	packageIndex uint32
	nameIndex    uint32
	nameStart    uint8
	accessFlags  AccessFlags

	signature     *IndexedClassSignature
	enclosing     *IndexedEnclosingTypeInfo
	enclosingSet  bool
	memberClasses []uint32
	membersSet    bool
	fields        []IndexedField
	fieldsSet     bool
	methods       []IndexedMethod
	methodsSet    bool
}

// NewIndexedClass creates a class record with only its identity set.
func NewIndexedClass(packageIndex, nameIndex uint32, nameStart uint8, accessFlags AccessFlags) *IndexedClass {
	return &IndexedClass{
		packageIndex: packageIndex,
		nameIndex:    nameIndex,
		nameStart:    nameStart,
		accessFlags:  accessFlags,
	}
}

func alreadySet(what string) error {
	return apperrors.Newf(apperrors.CodeInvariantViolation, "class %s already set", what)
}

// Index returns the class's global index. It panics if the index has not
// been assigned yet.
func (c *IndexedClass) Index() uint32 {
	if !c.indexSet {
		panic("index: class index not set")
	}
	return c.index
}

// SetIndex assigns the global index.
func (c *IndexedClass) SetIndex(index uint32) error {
	if c.indexSet {
		return alreadySet("index")
	}
	c.index = index
	c.indexSet = true
	return nil
}

// SetSignature assigns the class signature.
func (c *IndexedClass) SetSignature(sig *IndexedClassSignature) error {
	if c.signature != nil {
		return alreadySet("signature")
	}
	c.signature = sig
	return nil
}

// SetEnclosing assigns the enclosing type info; nil marks a top-level class.
func (c *IndexedClass) SetEnclosing(info *IndexedEnclosingTypeInfo) error {
	if c.enclosingSet {
		return alreadySet("enclosing type info")
	}
	c.enclosing = info
	c.enclosingSet = true
	return nil
}

// SetMemberClasses assigns the member class indices.
func (c *IndexedClass) SetMemberClasses(members []uint32) error {
	if c.membersSet {
		return alreadySet("member classes")
	}
	c.memberClasses = members
	c.membersSet = true
	return nil
}

// SetFields assigns the fields.
func (c *IndexedClass) SetFields(fields []IndexedField) error {
	if c.fieldsSet {
		return alreadySet("fields")
	}
	c.fields = fields
	c.fieldsSet = true
	return nil
}

// SetMethods assigns the methods.
func (c *IndexedClass) SetMethods(methods []IndexedMethod) error {
	if c.methodsSet {
		return alreadySet("methods")
	}
	c.methods = methods
	c.methodsSet = true
	return nil
}

func (c *IndexedClass) PackageIndex() uint32 { return c.packageIndex }
func (c *IndexedClass) NameIndex() uint32 { return c.nameIndex }

// NameStart is the byte offset of the simple name inside the class name;
// zero for top-level classes.
func (c *IndexedClass) NameStart() uint8 { return c.nameStart }

func (c *IndexedClass) AccessFlags() AccessFlags { return c.accessFlags }

// Signature returns the class signature. Classes without a generic
// declaration still carry their super class and interfaces here.
func (c *IndexedClass) Signature() *IndexedClassSignature { return c.signature }

// Enclosing returns the enclosing type info, or nil for top-level classes.
func (c *IndexedClass) Enclosing() *IndexedEnclosingTypeInfo { return c.enclosing }

func (c *IndexedClass) MemberClasses() []uint32 { return c.memberClasses }
func (c *IndexedClass) Fields() []IndexedField { return c.fields }
func (c *IndexedClass) Methods() []IndexedMethod { return c.methods }

// DirectSuperTypes returns the class indices of the resolved super class
// and interfaces.
func (c *IndexedClass) DirectSuperTypes() []uint32 {
	if c.signature == nil {
		return nil
	}
	supers := make([]uint32, 0, 1+len(c.signature.Interfaces))
	if idx, ok := c.signature.SuperClass.BaseObjectType(); ok {
		supers = append(supers, idx)
	}
	for _, iface := range c.signature.Interfaces {
		if idx, ok := iface.BaseObjectType(); ok {
			supers = append(supers, idx)
		}
	}
	return supers
}

// IsDirectSubTypeOf reports whether class index idx is the super class or
// one of the interfaces of c.
func (c *IndexedClass) IsDirectSubTypeOf(idx uint32) bool {
	for _, super := range c.DirectSuperTypes() {
		if super == idx {
			return true
		}
	}
	return false
}

// superClass returns the resolved super class index.
func (c *IndexedClass) superClass() (uint32, bool) {
	if c.signature == nil {
		return 0, false
	}
	return c.signature.SuperClass.BaseObjectType()
}
