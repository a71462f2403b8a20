package testutil

import (
	"bytes"
	"encoding/binary"
)

// Access flags used by fixtures.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSuper     uint16 = 0x0020
	AccBridge    uint16 = 0x0040
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccSynthetic uint16 = 0x1000
	AccEnum      uint16 = 0x4000
)

// FieldSpec describes a field of a synthesized class.
type FieldSpec struct {
	Access     uint16
	Name       string
	Descriptor string
	Signature  string
}

// MethodSpec describes a method of a synthesized class.
type MethodSpec struct {
	Access     uint16
	Name       string
	Descriptor string
	Signature  string
	Exceptions []string
}

// InnerClassSpec is one InnerClasses row. Empty Outer or Name encode as
// index zero.
type InnerClassSpec struct {
	Inner  string
	Outer  string
	Name   string
	Access uint16
}

// ClassFileBuilder synthesizes class files for tests.
type ClassFileBuilder struct {
	access     uint16
	name       string
	super      string
	interfaces []string
	signature  string
	fields     []FieldSpec
	methods    []MethodSpec
	inner      []InnerClassSpec

	enclosingClass  string
	enclosingMethod string
	enclosingDesc   string
	hasEnclosing    bool

	pool    bytes.Buffer
	count   uint16
	indices map[string]uint16
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassFileBuilder {
	return &ClassFileBuilder{
		access: AccPublic | AccSuper,
		name:   name,
		super:  "java/lang/Object",
	}
}

// Access replaces the class access flags.
func (b *ClassFileBuilder) Access(flags uint16) *ClassFileBuilder {
	b.access = flags
	return b
}

// Super sets the super class. An empty name encodes index zero.
func (b *ClassFileBuilder) Super(name string) *ClassFileBuilder {
	b.super = name
	return b
}

// Implements appends interfaces.
func (b *ClassFileBuilder) Implements(names ...string) *ClassFileBuilder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Signature adds a class Signature attribute.
func (b *ClassFileBuilder) Signature(sig string) *ClassFileBuilder {
	b.signature = sig
	return b
}

// Field appends a field.
func (b *ClassFileBuilder) Field(f FieldSpec) *ClassFileBuilder {
	b.fields = append(b.fields, f)
	return b
}

// Method appends a method.
func (b *ClassFileBuilder) Method(m MethodSpec) *ClassFileBuilder {
	b.methods = append(b.methods, m)
	return b
}

// InnerClass appends an InnerClasses row.
func (b *ClassFileBuilder) InnerClass(e InnerClassSpec) *ClassFileBuilder {
	b.inner = append(b.inner, e)
	return b
}

// EnclosingMethod adds an EnclosingMethod attribute. An empty method name
// encodes a class initializer context (method index zero).
func (b *ClassFileBuilder) EnclosingMethod(class, method, descriptor string) *ClassFileBuilder {
	b.enclosingClass = class
	b.enclosingMethod = method
	b.enclosingDesc = descriptor
	b.hasEnclosing = true
	return b
}

// Bytes encodes the class file. Every file also carries a Long constant and
// a SourceFile attribute so decoders see a two-slot entry and an attribute
// they must skip.
func (b *ClassFileBuilder) Bytes() []byte {
	b.pool.Reset()
	b.count = 1
	b.indices = make(map[string]uint16)

	var body bytes.Buffer
	u2 := func(v uint16) { _ = binary.Write(&body, binary.BigEndian, v) }
	u4 := func(v uint32) { _ = binary.Write(&body, binary.BigEndian, v) }

	b.long(42)

	u2(b.access)
	u2(b.class(b.name))
	if b.super == "" {
		u2(0)
	} else {
		u2(b.class(b.super))
	}
	u2(uint16(len(b.interfaces)))
	for _, name := range b.interfaces {
		u2(b.class(name))
	}

	u2(uint16(len(b.fields)))
	for _, f := range b.fields {
		u2(f.Access)
		u2(b.utf8(f.Name))
		u2(b.utf8(f.Descriptor))
		if f.Signature == "" {
			u2(0)
			continue
		}
		u2(1)
		u2(b.utf8("Signature"))
		u4(2)
		u2(b.utf8(f.Signature))
	}

	u2(uint16(len(b.methods)))
	for _, m := range b.methods {
		u2(m.Access)
		u2(b.utf8(m.Name))
		u2(b.utf8(m.Descriptor))
		attrs := 0
		if m.Signature != "" {
			attrs++
		}
		if len(m.Exceptions) > 0 {
			attrs++
		}
		u2(uint16(attrs))
		if m.Signature != "" {
			u2(b.utf8("Signature"))
			u4(2)
			u2(b.utf8(m.Signature))
		}
		if len(m.Exceptions) > 0 {
			u2(b.utf8("Exceptions"))
			u4(uint32(2 + 2*len(m.Exceptions)))
			u2(uint16(len(m.Exceptions)))
			for _, e := range m.Exceptions {
				u2(b.class(e))
			}
		}
	}

	attrs := 1
	if b.signature != "" {
		attrs++
	}
	if b.hasEnclosing {
		attrs++
	}
	if len(b.inner) > 0 {
		attrs++
	}
	u2(uint16(attrs))

	u2(b.utf8("SourceFile"))
	u4(2)
	u2(b.utf8("Fixture.java"))

	if b.signature != "" {
		u2(b.utf8("Signature"))
		u4(2)
		u2(b.utf8(b.signature))
	}
	if b.hasEnclosing {
		u2(b.utf8("EnclosingMethod"))
		u4(4)
		u2(b.class(b.enclosingClass))
		if b.enclosingMethod == "" {
			u2(0)
		} else {
			u2(b.nameAndType(b.enclosingMethod, b.enclosingDesc))
		}
	}
	if len(b.inner) > 0 {
		u2(b.utf8("InnerClasses"))
		u4(uint32(2 + 8*len(b.inner)))
		u2(uint16(len(b.inner)))
		for _, e := range b.inner {
			u2(b.class(e.Inner))
			if e.Outer == "" {
				u2(0)
			} else {
				u2(b.class(e.Outer))
			}
			if e.Name == "" {
				u2(0)
			} else {
				u2(b.utf8(e.Name))
			}
			u2(e.Access)
		}
	}

	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	_ = binary.Write(&out, binary.BigEndian, uint16(0))
	_ = binary.Write(&out, binary.BigEndian, uint16(52))
	_ = binary.Write(&out, binary.BigEndian, b.count)
	out.Write(b.pool.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

func (b *ClassFileBuilder) intern(key string, slots uint16, write func()) uint16 {
	if index, ok := b.indices[key]; ok {
		return index
	}
	write()
	index := b.count
	b.count += slots
	b.indices[key] = index
	return index
}

func (b *ClassFileBuilder) utf8(s string) uint16 {
	return b.intern("u:"+s, 1, func() {
		b.pool.WriteByte(1)
		_ = binary.Write(&b.pool, binary.BigEndian, uint16(len(s)))
		b.pool.WriteString(s)
	})
}

func (b *ClassFileBuilder) class(name string) uint16 {
	nameIndex := b.utf8(name)
	return b.intern("c:"+name, 1, func() {
		b.pool.WriteByte(7)
		_ = binary.Write(&b.pool, binary.BigEndian, nameIndex)
	})
}

func (b *ClassFileBuilder) nameAndType(name, descriptor string) uint16 {
	nameIndex := b.utf8(name)
	descIndex := b.utf8(descriptor)
	return b.intern("n:"+name+":"+descriptor, 1, func() {
		b.pool.WriteByte(12)
		_ = binary.Write(&b.pool, binary.BigEndian, nameIndex)
		_ = binary.Write(&b.pool, binary.BigEndian, descIndex)
	})
}

func (b *ClassFileBuilder) long(v int64) uint16 {
	return b.intern("j:long", 2, func() {
		b.pool.WriteByte(5)
		_ = binary.Write(&b.pool, binary.BigEndian, v)
	})
}
