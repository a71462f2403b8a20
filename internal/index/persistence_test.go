package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/pkg/compression"
	"github.com/jindex/pkg/constantpool"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/signature"
)

func persistenceFixture(t *testing.T) *ClassIndex {
	infos := shapes(t)

	generic, err := signature.ParseClassSignature("<E::Lp/Shape;>Lp/AbstractShape;")
	require.NoError(t, err)
	group := newClass("p/Group")
	group.Signature = generic
	group.MemberClasses = []string{"p/Group$Node"}
	group = withFields(group,
		newField(t, "items", "[Ljava/util/List<+TE;>;"),
		newField(t, "head", "Lp/Group<TE;>.Node;"),
		newField(t, "any", "Lp/Shape;"),
	)
	group = withMethods(group, newMethod(t, "each", "<R:Ljava/lang/Object;>(TR;Lp/Missing;)[J^Ljava/io/IOException;", AccPublic))

	node := newClass("p/Group$Node")
	node.NameStart = len("Group$")
	node.Enclosing = &signature.EnclosingTypeInfo[string]{ClassName: "p/Group", HasClassName: true, Type: signature.InnerClassMember}

	return mustBuild(t, append(infos, group, node)...)
}

// snapshot renders everything the query surface exposes about an index.
func snapshot(t *testing.T, idx *ClassIndex) map[string]interface{} {
	t.Helper()

	classes := make([]string, 0, len(idx.Classes()))
	for _, c := range idx.Classes() {
		entry := idx.ClassNameWithPackage(c) + " " + idx.SimpleClassName(c) + " " + c.AccessFlags().Visibility() + " " + idx.ClassSignatureString(c)
		for i := range c.Fields() {
			f := &c.Fields()[i]
			entry += " " + idx.FieldName(f) + ":" + idx.TypeString(f.Signature())
		}
		for i := range c.Methods() {
			m := &c.Methods()[i]
			entry += " " + idx.MethodName(m) + idx.MethodSignatureString(m)
		}
		if enclosing := idx.EnclosingClass(c); enclosing != nil {
			entry += " in " + idx.ClassNameWithPackage(enclosing)
		}
		entry += fmt.Sprint(" members=", c.MemberClasses())
		classes = append(classes, entry)
	}

	shape := mustFind(t, idx, "p/Shape")
	circle := mustFind(t, idx, "p/Circle")

	return map[string]interface{}{
		"classes":     classes,
		"search":      fullNames(idx, idx.FindClasses("s", defaultOptions())),
		"contains":    fullNames(idx, idx.FindClasses("ape", constantpool.SearchOptions{SearchMode: constantpool.SearchModeContains, Limit: 100})),
		"packages":    packageNames(idx, idx.FindPackages("p")),
		"impls":       fullNames(idx, idx.FindImplementationsOfClass(shape.Index(), false)),
		"methodImpls": methodOwners(idx, idx.FindImplementationsOfMethod(shape.Index(), mustMethod(t, idx, shape, "area"))),
		"baseMethods": methodOwners(idx, idx.FindBaseMethodsOfMethod(circle.Index(), mustMethod(t, idx, circle, "area"))),
		"methods":     methodOwners(idx, idx.FindMethods("", 100)),
		"stats":       idx.Stats(),
		"pool":        idx.ConstantPool().Bytes(),
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	original := persistenceFixture(t)
	want := snapshot(t, original)

	for _, ct := range []compression.Type{compression.TypeZstd, compression.TypeGzip, compression.TypeNone} {
		t.Run(ct.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, original.Save(&buf, ct, compression.LevelDefault))

			loaded, err := Load(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			require.NoError(t, err)

			assert.Equal(t, want, snapshot(t, loaded))
			for i, c := range original.Classes() {
				assert.Equal(t, c.Signature(), loaded.Classes()[i].Signature())
				assert.Equal(t, c.Fields(), loaded.Classes()[i].Fields())
				assert.Equal(t, c.Methods(), loaded.Classes()[i].Methods())
				assert.Equal(t, c.Enclosing(), loaded.Classes()[i].Enclosing())
			}
		})
	}
}

func TestSaveLoad_File(t *testing.T) {
	original := persistenceFixture(t)
	path := filepath.Join(t.TempDir(), "classes.jidx")

	require.NoError(t, original.SaveToFile(path, compression.TypeZstd, compression.LevelFastest))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, snapshot(t, original), snapshot(t, loaded))
	assert.GreaterOrEqual(t, loaded.TimeInfo().DeserializationMillis, int64(0))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.jidx"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

// archiveWith wraps payload in a zip archive under name.
func archiveWith(t *testing.T, name string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func header(version uint16, ct compression.Type) []byte {
	h := []byte(indexMagic)
	h = binary.LittleEndian.AppendUint16(h, version)
	return append(h, byte(ct))
}

func TestLoad_Corrupt(t *testing.T) {
	var valid bytes.Buffer
	require.NoError(t, persistenceFixture(t).Save(&valid, compression.TypeNone, compression.LevelDefault))
	validZip, err := zip.NewReader(bytes.NewReader(valid.Bytes()), int64(valid.Len()))
	require.NoError(t, err)
	rc, err := validZip.File[0].Open()
	require.NoError(t, err)
	var entry bytes.Buffer
	_, err = entry.ReadFrom(rc)
	require.NoError(t, err)
	rc.Close()
	body := entry.Bytes()[headerSize:]

	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("definitely not a zip archive")},
		{"wrong entry", archiveWith(t, "other", body)},
		{"bad magic", archiveWith(t, indexEntryName, append([]byte("NOPE\x01\x00\xff"), body...))},
		{"bad version", archiveWith(t, indexEntryName, append(header(99, compression.TypeNone), body...))},
		{"bad compression", archiveWith(t, indexEntryName, append(header(FormatVersion, 7), body...))},
		{"truncated", archiveWith(t, indexEntryName, append(header(FormatVersion, compression.TypeNone), body[:len(body)/2]...))},
		{"trailing bytes", archiveWith(t, indexEntryName, append(append(header(FormatVersion, compression.TypeNone), body...), 0))},
		{"empty pool", archiveWith(t, indexEntryName, append(header(FormatVersion, compression.TypeNone), 0, 0, 0, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrIndexFormat)
		})
	}
}

func TestLoad_RejectsBadPackageParents(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(p []IndexedPackage)
	}{
		{"cyclic chain", func(p []IndexedPackage) {
			a := p[0].subPackages[0]
			b := p[a].subPackages[0]
			p[a].parent = b
		}},
		{"root with parent", func(p []IndexedPackage) {
			p[0].parent = p[0].subPackages[0]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := mustBuild(t, newClass("a/b/C"))
			tt.corrupt(idx.packages.packages)

			data := archiveWith(t, indexEntryName, append(header(FormatVersion, compression.TypeNone), idx.encode()...))
			_, err := Load(bytes.NewReader(data), int64(len(data)))
			assert.ErrorIs(t, err, apperrors.ErrIndexFormat)
		})
	}
}

func TestLoad_RejectsDanglingClassIndex(t *testing.T) {
	idx := mustBuild(t, withFields(newClass("p/A"), newField(t, "self", "Lp/A;")))
	body := idx.encode()

	// The field's Object payload is the last four bytes before the empty
	// method list count.
	corrupt := append([]byte(nil), body...)
	binary.LittleEndian.PutUint32(corrupt[len(corrupt)-8:], 42)

	data := archiveWith(t, indexEntryName, append(header(FormatVersion, compression.TypeNone), corrupt...))
	_, err := Load(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, apperrors.ErrIndexFormat)
}
