package index

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/jindex/pkg/compression"
	"github.com/jindex/pkg/constantpool"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/signature"
	"github.com/jindex/pkg/utils"
)

// Persisted file layout: a zip archive with one entry named "index". The
// entry starts with the magic "JIDX", a little-endian u16 format version
// and a compression type byte, followed by the compressed body.
const (
	indexEntryName = "index"
	indexMagic     = "JIDX"
	headerSize     = len(indexMagic) + 2 + 1
	maxTypeDepth   = 512
)

// FormatVersion is the version written to and required of index files.
const FormatVersion = uint16(1)

// ============================================================================
// Save
// ============================================================================

// Save writes the index to w.
func (idx *ClassIndex) Save(w io.Writer, compressionType compression.Type, level compression.Level) error {
	comp, err := compression.New(compressionType, level)
	if err != nil {
		return err
	}
	defer compression.Close(comp)

	body := idx.encode()
	payload, err := comp.Compress(body)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to compress index", err)
	}

	method := zip.Store
	if compressionType == compression.TypeNone {
		method = zip.Deflate
	}

	zw := zip.NewWriter(w)
	entry, err := zw.CreateHeader(&zip.FileHeader{Name: indexEntryName, Method: method})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to create index entry", err)
	}

	header := make([]byte, 0, headerSize)
	header = append(header, indexMagic...)
	header = binary.LittleEndian.AppendUint16(header, FormatVersion)
	header = append(header, byte(compressionType))
	if _, err := entry.Write(header); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to write index header", err)
	}
	if _, err := entry.Write(payload); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to write index body", err)
	}
	if err := zw.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to finish index archive", err)
	}
	return nil
}

// SaveToFile writes the index to path, replacing any existing file.
func (idx *ClassIndex) SaveToFile(path string, compressionType compression.Type, level compression.Level) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to create %s", path)
	}
	if err := idx.Save(f, compressionType, level); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to close %s", path)
	}
	return nil
}

// ============================================================================
// Load
// ============================================================================

// Load reads an index written by Save. The elapsed time is recorded as the
// deserialization time of the returned index.
func Load(r io.ReaderAt, size int64) (*ClassIndex, error) {
	start := time.Now()

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndexFormat, "not an index archive", err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == indexEntryName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, apperrors.New(apperrors.CodeIndexFormat, "index archive has no index entry")
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndexFormat, "failed to open index entry", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndexFormat, "failed to read index entry", err)
	}

	body, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	idx, err := decodeIndex(body)
	if err != nil {
		return nil, err
	}
	idx.timeInfo.DeserializationMillis = utils.Elapsed(start)
	return idx, nil
}

// LoadFromFile reads an index file from path.
func LoadFromFile(path string) (*ClassIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to stat %s", path)
	}
	return Load(f, info.Size())
}

func decodeHeader(data []byte) ([]byte, error) {
	if len(data) < headerSize || string(data[:len(indexMagic)]) != indexMagic {
		return nil, apperrors.New(apperrors.CodeIndexFormat, "bad index magic")
	}
	version := binary.LittleEndian.Uint16(data[len(indexMagic):])
	if version != FormatVersion {
		return nil, apperrors.Newf(apperrors.CodeIndexFormat, "unsupported index format version %d", version)
	}

	comp, err := compression.New(compression.Type(data[headerSize-1]), compression.LevelDefault)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndexFormat, "unknown index compression", err)
	}
	defer compression.Close(comp)

	body, err := comp.Decompress(data[headerSize:])
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndexFormat, "failed to decompress index", err)
	}
	return body, nil
}

// ============================================================================
// Encoding
// ============================================================================

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32s(vs []uint32) {
	e.u32(uint32(len(vs)))
	for _, v := range vs {
		e.u32(v)
	}
}

func (idx *ClassIndex) encode() []byte {
	e := &encoder{}

	pool := idx.pool.Bytes()
	e.u32(uint32(len(pool)))
	e.buf.Write(pool)

	e.u32(uint32(idx.packages.Len()))
	for i := range idx.packages.packages {
		p := &idx.packages.packages[i]
		e.u32(p.nameIndex)
		e.u32(p.parent)
		e.u32s(p.subPackages)
		e.u32s(p.classes)
	}

	e.u32(uint32(len(idx.classes)))
	for _, c := range idx.classes {
		e.u32(c.packageIndex)
		e.u32(c.nameIndex)
		e.u8(c.nameStart)
		e.u16(uint16(c.accessFlags))
		e.u32(c.Index())
		e.classSignature(c.signature)

		e.bool(c.enclosing != nil)
		if c.enclosing != nil {
			e.enclosing(c.enclosing)
		}

		e.u32s(c.memberClasses)

		e.u32(uint32(len(c.fields)))
		for i := range c.fields {
			f := &c.fields[i]
			e.u32(f.nameIndex)
			e.u16(uint16(f.accessFlags))
			e.optionalType(f.signature)
		}

		e.u32(uint32(len(c.methods)))
		for i := range c.methods {
			m := &c.methods[i]
			e.u32(m.nameIndex)
			e.u16(uint16(m.accessFlags))
			e.methodSignature(m.signature)
		}
	}
	return e.buf.Bytes()
}

func (e *encoder) typ(t *IndexedType) {
	e.u8(uint8(t.Kind))
	switch t.Kind {
	case signature.KindPrimitive:
		e.u8(uint8(t.Primitive))
	case signature.KindGeneric, signature.KindObject:
		e.u32(t.Name)
	case signature.KindObjectPlus, signature.KindObjectMinus, signature.KindArray:
		e.typ(t.Inner)
	case signature.KindObjectTypeBounds:
		e.u32(t.Name)
		e.bool(t.Bounds != nil)
		if t.Bounds != nil {
			e.u32(uint32(len(t.Bounds)))
			for _, b := range t.Bounds {
				e.optionalType(b)
			}
		}
	case signature.KindObjectInnerClass:
		e.types(t.Parts)
	}
}

func (e *encoder) optionalType(t *IndexedType) {
	e.bool(t != nil)
	if t != nil {
		e.typ(t)
	}
}

func (e *encoder) types(ts []*IndexedType) {
	e.u32(uint32(len(ts)))
	for _, t := range ts {
		e.typ(t)
	}
}

func (e *encoder) optionalTypes(ts []*IndexedType) {
	e.bool(ts != nil)
	if ts != nil {
		e.types(ts)
	}
}

func (e *encoder) typeParameters(params []IndexedTypeParameter) {
	e.bool(params != nil)
	if params == nil {
		return
	}
	e.u32(uint32(len(params)))
	for _, p := range params {
		e.u32(p.Name)
		e.optionalType(p.TypeBound)
		e.optionalTypes(p.InterfaceBounds)
	}
}

func (e *encoder) classSignature(sig *IndexedClassSignature) {
	e.bool(sig != nil)
	if sig == nil {
		return
	}
	e.typeParameters(sig.TypeParameters)
	e.optionalType(sig.SuperClass)
	e.optionalTypes(sig.Interfaces)
}

func (e *encoder) methodSignature(sig *IndexedMethodSignature) {
	e.typeParameters(sig.TypeParameters)
	e.optionalTypes(sig.Parameters)
	e.optionalType(sig.Return)
	e.optionalTypes(sig.Exceptions)
}

func (e *encoder) enclosing(info *IndexedEnclosingTypeInfo) {
	e.bool(info.HasClassName)
	e.u32(info.ClassName)
	e.u8(uint8(info.Type))
	e.bool(info.HasMethodName)
	e.u32(info.MethodName)
	e.bool(info.MethodDescriptor != nil)
	if info.MethodDescriptor != nil {
		e.methodSignature(info.MethodDescriptor)
	}
}

// ============================================================================
// Decoding
// ============================================================================

// decoder reads the body. The first error sticks and turns every further
// read into a zero value.
type decoder struct {
	data []byte
	pos  int
	err  error

	pool         *constantpool.ConstantPool
	packageCount int
	classCount   int
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = apperrors.Newf(apperrors.CodeIndexFormat, format, args...)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.pos < n {
		d.fail("unexpected end of index data at offset %d", d.pos)
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) bool() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("invalid flag byte %d", v)
		return false
	}
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// count reads a list length. Every element takes at least one byte, so a
// length beyond the remaining data is corrupt.
func (d *decoder) count() int {
	n := int(d.u32())
	if d.err == nil && n > len(d.data)-d.pos {
		d.fail("list length %d exceeds remaining data", n)
		return 0
	}
	return n
}

func (d *decoder) poolIndex() uint32 {
	v := d.u32()
	if d.err == nil && !d.pool.Valid(v) {
		d.fail("invalid constant pool index %d", v)
	}
	return v
}

func (d *decoder) packageIndex() uint32 {
	v := d.u32()
	if d.err == nil && int(v) >= d.packageCount {
		d.fail("invalid package index %d", v)
	}
	return v
}

func (d *decoder) classIndex() uint32 {
	v := d.u32()
	if d.err == nil && int(v) >= d.classCount {
		d.fail("invalid class index %d", v)
	}
	return v
}

func (d *decoder) indices(read func() uint32) []uint32 {
	n := d.count()
	out := make([]uint32, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, read())
	}
	return out
}

func decodeIndex(body []byte) (*ClassIndex, error) {
	d := &decoder{data: body}

	poolLen := int(d.u32())
	poolBytes := d.take(poolLen)
	if d.err != nil {
		return nil, d.err
	}
	pool, err := constantpool.FromBytes(append([]byte(nil), poolBytes...))
	if err != nil {
		return nil, err
	}
	d.pool = pool

	d.packageCount = d.count()
	if d.err == nil && d.packageCount == 0 {
		d.fail("index has no root package")
	}
	// Class indices in package lists are checked once the class count is known.
	packages := &PackageIndex{packages: make([]IndexedPackage, d.packageCount)}
	for i := 0; i < d.packageCount && d.err == nil; i++ {
		p := &packages.packages[i]
		p.index = uint32(i)
		p.nameIndex = d.poolIndex()
		p.parent = d.packageIndex()
		p.subPackages = d.indices(d.packageIndex)
		p.classes = d.indices(d.u32)
	}

	d.classCount = d.count()
	classes := make([]*IndexedClass, d.classCount)
	for i := 0; i < d.classCount && d.err == nil; i++ {
		classes[i] = d.class(uint32(i))
	}
	if d.err != nil {
		return nil, d.err
	}

	if err := checkPackageParents(packages); err != nil {
		return nil, err
	}
	for i := range packages.packages {
		for _, c := range packages.packages[i].classes {
			if int(c) >= d.classCount {
				return nil, apperrors.Newf(apperrors.CodeIndexFormat, "invalid class index %d in package", c)
			}
		}
	}
	if d.pos != len(d.data) {
		return nil, apperrors.Newf(apperrors.CodeIndexFormat, "%d trailing bytes after index data", len(d.data)-d.pos)
	}

	return newClassIndex(pool, packages, classes), nil
}

// checkPackageParents requires the root to be its own parent and every
// parent chain to reach the root within len(packages) steps.
func checkPackageParents(packages *PackageIndex) error {
	count := len(packages.packages)
	if packages.packages[RootPackageIndex].parent != RootPackageIndex {
		return apperrors.New(apperrors.CodeIndexFormat, "root package has a parent")
	}
	for i := 1; i < count; i++ {
		current := uint32(i)
		steps := 0
		for current != RootPackageIndex {
			if steps >= count {
				return apperrors.Newf(apperrors.CodeIndexFormat, "package %d has a cyclic parent chain", i)
			}
			current = packages.packages[current].parent
			steps++
		}
	}
	return nil
}

func (d *decoder) class(position uint32) *IndexedClass {
	c := &IndexedClass{
		packageIndex: d.packageIndex(),
		nameIndex:    d.poolIndex(),
		nameStart:    d.u8(),
		accessFlags:  AccessFlags(d.u16()),
	}
	if index := d.u32(); d.err == nil && index != position {
		d.fail("class at position %d carries index %d", position, index)
	}
	c.index = position
	c.indexSet = true

	c.signature = d.classSignature()
	if d.bool() {
		c.enclosing = d.enclosing()
	}
	c.enclosingSet = true

	c.memberClasses = d.indices(d.classIndex)
	c.membersSet = true

	n := d.count()
	c.fields = make([]IndexedField, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		name := d.poolIndex()
		flags := AccessFlags(d.u16())
		c.fields = append(c.fields, NewIndexedField(name, flags, d.optionalType(0)))
	}
	c.fieldsSet = true

	n = d.count()
	c.methods = make([]IndexedMethod, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		name := d.poolIndex()
		flags := AccessFlags(d.u16())
		c.methods = append(c.methods, NewIndexedMethod(name, flags, d.methodSignature()))
	}
	c.methodsSet = true
	return c
}

func (d *decoder) typ(depth int) *IndexedType {
	if depth > maxTypeDepth {
		d.fail("signature nested deeper than %d", maxTypeDepth)
	}
	if d.err != nil {
		return signature.Unresolved[uint32]()
	}

	switch kind := signature.Kind(d.u8()); kind {
	case signature.KindUnresolved:
		return signature.Unresolved[uint32]()
	case signature.KindPrimitive:
		p := signature.Primitive(d.u8())
		if p > signature.Void {
			d.fail("invalid primitive code %d", p)
		}
		return signature.PrimitiveType[uint32](p)
	case signature.KindGeneric:
		return signature.Generic(d.poolIndex())
	case signature.KindObject:
		return signature.Object(d.classIndex())
	case signature.KindObjectPlus, signature.KindObjectMinus, signature.KindArray:
		return &IndexedType{Kind: kind, Inner: d.typ(depth + 1)}
	case signature.KindObjectTypeBounds:
		name := d.classIndex()
		var bounds []*IndexedType
		if d.bool() {
			n := d.count()
			bounds = make([]*IndexedType, 0, n)
			for i := 0; i < n && d.err == nil; i++ {
				bounds = append(bounds, d.optionalType(depth+1))
			}
		}
		return signature.TypeBounds(name, bounds)
	case signature.KindObjectInnerClass:
		return signature.InnerClass(d.types(depth + 1))
	default:
		d.fail("invalid signature tag %d", kind)
		return signature.Unresolved[uint32]()
	}
}

func (d *decoder) optionalType(depth int) *IndexedType {
	if !d.bool() {
		return nil
	}
	return d.typ(depth)
}

func (d *decoder) types(depth int) []*IndexedType {
	n := d.count()
	out := make([]*IndexedType, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.typ(depth))
	}
	return out
}

func (d *decoder) optionalTypes(depth int) []*IndexedType {
	if !d.bool() {
		return nil
	}
	return d.types(depth)
}

func (d *decoder) typeParameters() []IndexedTypeParameter {
	if !d.bool() {
		return nil
	}
	n := d.count()
	out := make([]IndexedTypeParameter, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, IndexedTypeParameter{
			Name:            d.poolIndex(),
			TypeBound:       d.optionalType(0),
			InterfaceBounds: d.optionalTypes(0),
		})
	}
	return out
}

func (d *decoder) classSignature() *IndexedClassSignature {
	if !d.bool() {
		return nil
	}
	return &IndexedClassSignature{
		TypeParameters: d.typeParameters(),
		SuperClass:     d.optionalType(0),
		Interfaces:     d.optionalTypes(0),
	}
}

func (d *decoder) methodSignature() *IndexedMethodSignature {
	sig := &IndexedMethodSignature{
		TypeParameters: d.typeParameters(),
		Parameters:     d.optionalTypes(0),
		Return:         d.optionalType(0),
		Exceptions:     d.optionalTypes(0),
	}
	if d.err == nil && sig.Return == nil {
		d.fail("method signature without return type")
	}
	return sig
}

func (d *decoder) enclosing() *IndexedEnclosingTypeInfo {
	info := &IndexedEnclosingTypeInfo{}
	info.HasClassName = d.bool()
	info.ClassName = d.u32()
	if d.err == nil && info.HasClassName && int(info.ClassName) >= d.classCount {
		d.fail("invalid enclosing class index %d", info.ClassName)
	}
	info.Type = signature.InnerClassType(d.u8())
	if d.err == nil && info.Type > signature.InnerClassLocal {
		d.fail("invalid inner class type %d", info.Type)
	}
	info.HasMethodName = d.bool()
	info.MethodName = d.u32()
	if d.err == nil && info.HasMethodName && !d.pool.Valid(info.MethodName) {
		d.fail("invalid enclosing method name %d", info.MethodName)
	}
	if d.bool() {
		info.MethodDescriptor = d.methodSignature()
	}
	return info
}
