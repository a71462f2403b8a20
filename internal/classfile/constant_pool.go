package classfile

// cpEntry keeps what the decoder needs from one constant pool slot: UTF-8
// text for Utf8 entries and up to two referenced indices otherwise.
type cpEntry struct {
	tag  uint8
	text string
	ref1 uint16
	ref2 uint16
}

type constantPool struct {
	entries []cpEntry
}

func readConstantPool(r *reader) *constantPool {
	count := int(r.u2())
	if r.err == nil && count == 0 {
		r.fail("constant pool count is zero")
	}
	pool := &constantPool{entries: make([]cpEntry, count)}

	// Slot 0 is unused; Long and Double occupy two slots.
	for i := 1; i < count && r.err == nil; i++ {
		tag := r.u1()
		entry := cpEntry{tag: tag}
		switch tag {
		case TagUtf8:
			length := int(r.u2())
			entry.text = string(r.take(length))
		case TagInteger, TagFloat:
			r.skip(4)
		case TagLong, TagDouble:
			r.skip(8)
			pool.entries[i] = entry
			i++
			continue
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			entry.ref1 = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			entry.ref1 = r.u2()
			entry.ref2 = r.u2()
		case TagMethodHandle:
			r.skip(1)
			entry.ref1 = r.u2()
		default:
			r.fail("unknown constant pool tag %d at index %d", tag, i)
		}
		pool.entries[i] = entry
	}
	return pool
}

func (p *constantPool) entry(r *reader, index uint16, tag uint8) *cpEntry {
	if r.err != nil {
		return nil
	}
	if index == 0 || int(index) >= len(p.entries) {
		r.fail("constant pool index %d out of range", index)
		return nil
	}
	e := &p.entries[index]
	if e.tag != tag {
		r.fail("constant pool index %d has tag %d, want %d", index, e.tag, tag)
		return nil
	}
	return e
}

func (p *constantPool) utf8(r *reader, index uint16) string {
	if e := p.entry(r, index, TagUtf8); e != nil {
		return e.text
	}
	return ""
}

// className resolves a CONSTANT_Class index. Index zero yields "" when
// optional is set and an error otherwise.
func (p *constantPool) className(r *reader, index uint16, optional bool) string {
	if index == 0 && optional {
		return ""
	}
	if e := p.entry(r, index, TagClass); e != nil {
		return p.utf8(r, e.ref1)
	}
	return ""
}

func (p *constantPool) nameAndType(r *reader, index uint16) (name, descriptor string) {
	if e := p.entry(r, index, TagNameAndType); e != nil {
		return p.utf8(r, e.ref1), p.utf8(r, e.ref2)
	}
	return "", ""
}
