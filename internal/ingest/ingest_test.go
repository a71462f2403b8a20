package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/internal/index"
	"github.com/jindex/internal/testutil"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/filter"
	"github.com/jindex/pkg/parallel"
	"github.com/jindex/pkg/utils"
)

func shapeClasses() map[string][]byte {
	return map[string][]byte{
		"p/Shape.class": testutil.NewClass("p/Shape").
			Access(testutil.AccPublic | testutil.AccInterface | testutil.AccAbstract).
			Method(testutil.MethodSpec{Access: testutil.AccPublic | testutil.AccAbstract, Name: "area", Descriptor: "()D"}).
			Bytes(),
		"p/Circle.class": testutil.NewClass("p/Circle").
			Implements("p/Shape").
			Field(testutil.FieldSpec{Access: testutil.AccPrivate, Name: "radius", Descriptor: "D"}).
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "area", Descriptor: "()D"}).
			Method(testutil.MethodSpec{Access: testutil.AccPublic | testutil.AccSynthetic, Name: "lambda$0", Descriptor: "()V"}).
			InnerClass(testutil.InnerClassSpec{Inner: "p/Circle$Builder", Outer: "p/Circle", Name: "Builder", Access: testutil.AccStatic}).
			Bytes(),
		"p/Circle$Builder.class": testutil.NewClass("p/Circle$Builder").
			InnerClass(testutil.InnerClassSpec{Inner: "p/Circle$Builder", Outer: "p/Circle", Name: "Builder", Access: testutil.AccStatic}).
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "build", Descriptor: "()Lp/Circle;"}).
			Bytes(),
		"q/Ring.class": testutil.NewClass("q/Ring").
			Super("p/Circle").
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "area", Descriptor: "()D"}).
			Bytes(),
	}
}

func classNames(idx *index.ClassIndex) []string {
	names := make([]string, 0, len(idx.Classes()))
	for _, c := range idx.Classes() {
		names = append(names, idx.ClassNameWithPackage(c))
	}
	return names
}

func TestFromBytes(t *testing.T) {
	var buffers [][]byte
	for _, data := range shapeClasses() {
		buffers = append(buffers, data)
	}
	buffers = append(buffers, []byte("garbage"))

	idx, err := FromBytes(context.Background(), buffers, Options{Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"p/Circle", "p/Circle$Builder", "q/Ring", "p/Shape"}, classNames(idx))

	circle := idx.FindClassByName("p/Circle")
	require.NotNil(t, circle)
	require.Len(t, circle.Methods(), 1)
	assert.Equal(t, "area", idx.MethodName(&circle.Methods()[0]))
	require.Len(t, circle.MemberClasses(), 1)
	assert.Equal(t, "p/Circle$Builder", idx.ClassNameWithPackage(idx.ClassAt(circle.MemberClasses()[0])))

	builder := idx.FindClassByName("p/Circle$Builder")
	require.NotNil(t, builder)
	assert.Equal(t, "Builder", idx.SimpleClassName(builder))
	assert.Same(t, circle, idx.EnclosingClass(builder))
	assert.True(t, builder.AccessFlags().IsStatic())

	shape := idx.FindClassByName("p/Shape")
	require.NotNil(t, shape)
	impls := idx.FindImplementationsOfClass(shape.Index(), false)
	assert.Len(t, impls, 2)
}

func TestFromBytes_PackageFilter(t *testing.T) {
	var buffers [][]byte
	for _, data := range shapeClasses() {
		buffers = append(buffers, data)
	}

	idx, err := FromBytes(context.Background(), buffers, Options{
		Workers: 2,
		Filter:  filter.NewPackageFilter(nil, []string{"q.*"}, false),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p/Circle", "p/Circle$Builder", "p/Shape"}, classNames(idx))

	idx, err = FromBytes(context.Background(), buffers, Options{Filter: filter.NewPackageFilter([]string{"q"}, nil, false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"q/Ring"}, classNames(idx))
}

func TestFromBytes_DeterministicAcrossWorkerCounts(t *testing.T) {
	var buffers [][]byte
	for _, data := range shapeClasses() {
		buffers = append(buffers, data)
	}

	reference, err := FromBytes(context.Background(), buffers, Options{Workers: 1})
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		idx, err := FromBytes(context.Background(), buffers, Options{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, classNames(reference), classNames(idx))
		assert.Equal(t, reference.ConstantPool().Bytes(), idx.ConstantPool().Bytes())
		assert.Equal(t, reference.Stats(), idx.Stats())
	}
}

func TestFromBytes_RecordsPhases(t *testing.T) {
	clock := utils.NewMockClock(time.Unix(0, 0))
	timer := utils.NewTimer("build", utils.WithClock(clock))

	idx, err := FromBytes(context.Background(), [][]byte{testutil.NewClass("p/A").Bytes()}, Options{Timer: timer})
	require.NoError(t, err)

	phases := map[string]bool{}
	for _, p := range timer.GetPhases() {
		phases[p.Name] = true
	}
	assert.True(t, phases[index.PhaseClassReading])
	assert.True(t, phases[index.PhaseIndexing])
	assert.Equal(t, index.BuildTimeInfo{}, idx.TimeInfo())
}

func TestFromArchives(t *testing.T) {
	dir := t.TempDir()
	classes := shapeClasses()

	first := testutil.WriteJar(t, dir, "first.jar", map[string][]byte{
		"p/Shape.class":        classes["p/Shape.class"],
		"p/Circle.class":       classes["p/Circle.class"],
		"module-info.class":    []byte("not even a class"),
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
		"p/Broken.class":       []byte("\xca\xfe\xba\xbe"),
		"p/Dup.class": testutil.NewClass("p/Dup").
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "fromFirst", Descriptor: "()V"}).
			Bytes(),
	})
	second := testutil.WriteJar(t, dir, "second.jar", map[string][]byte{
		"p/Circle$Builder.class": classes["p/Circle$Builder.class"],
		"q/Ring.class":           classes["q/Ring.class"],
		"p/Dup.class": testutil.NewClass("p/Dup").
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "fromSecond", Descriptor: "()V"}).
			Bytes(),
	})

	progress := parallel.NewProgressTracker(2, nil, time.Hour)
	timer := utils.NewTimer("build")
	idx, err := FromArchives(context.Background(), []string{first, second}, Options{Workers: 2, Timer: timer, Progress: progress})
	require.NoError(t, err)

	assert.Equal(t, []string{"p/Circle", "p/Circle$Builder", "p/Dup", "q/Ring", "p/Shape"}, classNames(idx))
	assert.Equal(t, int64(2), progress.Completed())

	dup := idx.FindClassByName("p/Dup")
	require.NotNil(t, dup)
	require.Len(t, dup.Methods(), 1)
	assert.Equal(t, "fromFirst", idx.MethodName(&dup.Methods()[0]))

	ring := idx.FindClassByName("q/Ring")
	require.NotNil(t, ring)
	bases := idx.FindBaseMethodsOfMethod(ring.Index(), &ring.Methods()[0])
	require.Len(t, bases, 2)
	assert.Equal(t, "p/Circle", idx.ClassNameWithPackage(bases[0].Class))
	assert.Equal(t, "p/Shape", idx.ClassNameWithPackage(bases[1].Class))

	phases := map[string]bool{}
	for _, p := range timer.GetPhases() {
		phases[p.Name] = true
	}
	assert.True(t, phases[index.PhaseFileReading])
	assert.True(t, phases[index.PhaseClassReading])
	assert.True(t, phases[index.PhaseIndexing])
}

func TestFromArchives_MissingArchiveIsFatal(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteJar(t, dir, "good.jar", map[string][]byte{"p/A.class": testutil.NewClass("p/A").Bytes()})
	missing := filepath.Join(dir, "missing.jar")

	idx, err := FromArchives(context.Background(), []string{good, missing}, Options{Workers: 2})
	assert.Nil(t, idx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrArchive)
	assert.True(t, apperrors.IsFatalBuildError(err))
	assert.Contains(t, err.Error(), missing)
}

func TestProcessArchive(t *testing.T) {
	path := testutil.WriteJar(t, t.TempDir(), "lib.jar", map[string][]byte{
		"p/A.class":   testutil.NewClass("p/A").Bytes(),
		"p/Bad.class": []byte("bad"),
	})

	infos, err := ProcessArchive(path, nil)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "p/A", infos[0].FullName())
	assert.Equal(t, path, infos[0].Source)
}

func TestReadArchives_CancelledContext(t *testing.T) {
	path := testutil.WriteJar(t, t.TempDir(), "lib.jar", map[string][]byte{"p/A.class": testutil.NewClass("p/A").Bytes()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadArchives(ctx, []string{path}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
