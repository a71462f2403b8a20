// Package classfile decodes the structural parts of JVM class files: names,
// access flags, the super type list, fields, methods and the attributes the
// class index needs (Signature, Exceptions, EnclosingMethod, InnerClasses).
// Code and every other attribute are skipped.
package classfile

import (
	apperrors "github.com/jindex/pkg/errors"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// Attribute names.
const (
	AttrSignature       = "Signature"
	AttrExceptions      = "Exceptions"
	AttrEnclosingMethod = "EnclosingMethod"
	AttrInnerClasses    = "InnerClasses"
)

// ClassFile is the decoded structure of one class file. Names are the raw
// modified UTF-8 bytes of the constant pool.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    string
	// SuperClass is empty for java/lang/Object and module-info.
	SuperClass string
	Interfaces []string
	Fields     []Member
	Methods    []Member

	Signature       string
	HasSignature    bool
	EnclosingMethod *EnclosingMethod
	InnerClasses    []InnerClassEntry
}

// Member is a field or method.
type Member struct {
	AccessFlags  uint16
	Name         string
	Descriptor   string
	Signature    string
	HasSignature bool
	// Exceptions lists the Exceptions attribute of a method.
	Exceptions []string
}

// EnclosingMethod is the EnclosingMethod attribute of a local or anonymous
// class.
type EnclosingMethod struct {
	ClassName        string
	HasMethod        bool
	MethodName       string
	MethodDescriptor string
}

// InnerClassEntry is one row of the InnerClasses attribute.
type InnerClassEntry struct {
	InnerClass string
	// OuterClass is empty for local and anonymous classes.
	OuterClass   string
	HasOuter     bool
	InnerName    string
	HasInnerName bool
	AccessFlags  uint16
}

// IsSynthetic reports whether the ACC_SYNTHETIC flag is set.
func (m *Member) IsSynthetic() bool {
	return m.AccessFlags&0x1000 != 0
}

// FindInnerClass returns the InnerClasses row describing name, or nil.
func (cf *ClassFile) FindInnerClass(name string) *InnerClassEntry {
	for i := range cf.InnerClasses {
		if cf.InnerClasses[i].InnerClass == name {
			return &cf.InnerClasses[i]
		}
	}
	return nil
}

// Parse decodes a class file. Any structural problem yields a
// CodeClassFormat error.
func Parse(data []byte) (*ClassFile, error) {
	r := newReader(data)

	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, apperrors.Newf(apperrors.CodeClassFormat, "bad magic 0x%08X", magic)
	}

	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	pool := readConstantPool(r)
	if r.err != nil {
		return nil, formatError(r.err)
	}

	cf.AccessFlags = r.u2()
	cf.ThisClass = pool.className(r, r.u2(), false)
	cf.SuperClass = pool.className(r, r.u2(), true)

	interfaceCount := int(r.u2())
	if interfaceCount > 0 {
		cf.Interfaces = make([]string, 0, interfaceCount)
	}
	for i := 0; i < interfaceCount && r.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, pool.className(r, r.u2(), false))
	}

	cf.Fields = readMembers(r, pool)
	cf.Methods = readMembers(r, pool)
	readClassAttributes(r, pool, cf)

	if r.err != nil {
		return nil, formatError(r.err)
	}
	if r.remaining() != 0 {
		return nil, apperrors.Newf(apperrors.CodeClassFormat, "%d trailing bytes after class %s", r.remaining(), cf.ThisClass)
	}
	return cf, nil
}

func formatError(err error) error {
	return apperrors.Wrap(apperrors.CodeClassFormat, "malformed class file", err)
}

func readMembers(r *reader, pool *constantPool) []Member {
	count := int(r.u2())
	if r.err != nil || count == 0 {
		return nil
	}
	members := make([]Member, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		m := Member{AccessFlags: r.u2()}
		m.Name = pool.utf8(r, r.u2())
		m.Descriptor = pool.utf8(r, r.u2())
		readMemberAttributes(r, pool, &m)
		members = append(members, m)
	}
	return members
}

// attributes calls fn for every attribute with a reader limited to the
// attribute body. Bodies fn leaves unread are skipped.
func attributes(r *reader, pool *constantPool, fn func(name string, body *reader)) {
	count := int(r.u2())
	for i := 0; i < count && r.err == nil; i++ {
		name := pool.utf8(r, r.u2())
		length := r.u4()
		if uint64(length) > uint64(r.remaining()) {
			r.fail("attribute %s length %d exceeds class file", name, length)
			return
		}
		body := newReader(r.take(int(length)))
		fn(name, body)
		if body.err != nil {
			r.fail("attribute %s: %v", name, body.err)
			return
		}
	}
}

func readMemberAttributes(r *reader, pool *constantPool, m *Member) {
	attributes(r, pool, func(name string, body *reader) {
		switch name {
		case AttrSignature:
			m.Signature = pool.utf8(body, body.u2())
			m.HasSignature = true
		case AttrExceptions:
			count := int(body.u2())
			for i := 0; i < count && body.err == nil; i++ {
				m.Exceptions = append(m.Exceptions, pool.className(body, body.u2(), false))
			}
		}
	})
}

func readClassAttributes(r *reader, pool *constantPool, cf *ClassFile) {
	attributes(r, pool, func(name string, body *reader) {
		switch name {
		case AttrSignature:
			cf.Signature = pool.utf8(body, body.u2())
			cf.HasSignature = true
		case AttrEnclosingMethod:
			em := &EnclosingMethod{ClassName: pool.className(body, body.u2(), false)}
			if nat := body.u2(); nat != 0 {
				em.MethodName, em.MethodDescriptor = pool.nameAndType(body, nat)
				em.HasMethod = true
			}
			cf.EnclosingMethod = em
		case AttrInnerClasses:
			count := int(body.u2())
			for i := 0; i < count && body.err == nil; i++ {
				entry := InnerClassEntry{InnerClass: pool.className(body, body.u2(), false)}
				if outer := body.u2(); outer != 0 {
					entry.OuterClass = pool.className(body, outer, false)
					entry.HasOuter = true
				}
				if innerName := body.u2(); innerName != 0 {
					entry.InnerName = pool.utf8(body, innerName)
					entry.HasInnerName = true
				}
				entry.AccessFlags = body.u2()
				cf.InnerClasses = append(cf.InnerClasses, entry)
			}
		}
	})
}
