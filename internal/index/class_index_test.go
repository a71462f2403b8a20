package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/pkg/constantpool"
)

func defaultOptions() constantpool.SearchOptions {
	return constantpool.DefaultSearchOptions()
}

func searchFixture(t *testing.T) *ClassIndex {
	return mustBuild(t,
		newClass("java/lang/String"),
		newClass("java/lang/Integer"),
		newClass("java/lang/StringBuilder"),
		newClass("org/text/strange"),
		newClass("java/util/List"),
		newClass("java/util/concurrent/Executor"),
		newClass("javax/swing/JList"),
		newClass("_Private"),
		newClass("$Proxy"),
	)
}

func TestFindClass_AllClasses(t *testing.T) {
	idx := searchFixture(t)

	for _, c := range idx.Classes() {
		found := idx.FindClass(idx.PackageName(c), idx.ClassName(c))
		require.NotNil(t, found, idx.ClassNameWithPackage(c))
		assert.Equal(t, c.Index(), found.Index())
	}

	assert.Nil(t, idx.FindClass("java/lang", "Missing"))
	assert.Nil(t, idx.FindClass("java/util", "String"))
	assert.Nil(t, idx.FindClass("java", "String"))
	assert.Nil(t, idx.FindClass("", ""))
	assert.NotNil(t, idx.FindClass("", "_Private"))
}

func TestFindClasses(t *testing.T) {
	idx := searchFixture(t)

	tests := []struct {
		name    string
		query   string
		options constantpool.SearchOptions
		want    []string
	}{
		{
			name:    "prefix ignore case",
			query:   "Str",
			options: defaultOptions(),
			want:    []string{"java/lang/String", "org/text/strange", "java/lang/StringBuilder"},
		},
		{
			name:    "prefix match case",
			query:   "Str",
			options: constantpool.SearchOptions{MatchMode: constantpool.MatchModeMatchCase, Limit: 10},
			want:    []string{"java/lang/String", "java/lang/StringBuilder"},
		},
		{
			name:    "first char only",
			query:   "sTR",
			options: constantpool.SearchOptions{MatchMode: constantpool.MatchModeMatchCaseFirstCharOnly, Limit: 10},
			want:    []string{"org/text/strange"},
		},
		{
			name:    "contains",
			query:   "list",
			options: constantpool.SearchOptions{SearchMode: constantpool.SearchModeContains, Limit: 10},
			want:    []string{"java/util/List", "javax/swing/JList"},
		},
		{
			name:    "non letter prefix",
			query:   "_p",
			options: defaultOptions(),
			want:    []string{"_Private"},
		},
		{
			name:    "dollar prefix",
			query:   "$",
			options: defaultOptions(),
			want:    []string{"$Proxy"},
		},
		{
			name:    "no match",
			query:   "Zzz",
			options: defaultOptions(),
			want:    nil,
		},
		{
			name:    "empty query",
			query:   "",
			options: defaultOptions(),
			want:    nil,
		},
		{
			name:    "zero limit",
			query:   "S",
			options: defaultOptions().WithLimit(0),
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.FindClasses(tt.query, tt.options)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, fullNames(idx, got))
		})
	}
}

func TestFindClasses_Limit(t *testing.T) {
	idx := searchFixture(t)

	got := idx.FindClasses("Str", defaultOptions().WithLimit(1))
	require.Len(t, got, 1)

	// The slice of the query's own first byte is scanned first.
	assert.Equal(t, "java/lang/String", idx.ClassNameWithPackage(got[0]))

	got = idx.FindClasses("str", defaultOptions().WithLimit(1))
	require.Len(t, got, 1)
	assert.Equal(t, "org/text/strange", idx.ClassNameWithPackage(got[0]))
}

func TestFindClasses_StrExample(t *testing.T) {
	idx := mustBuild(t, newClass("java/lang/String"), newClass("x/strange"), newClass("java/lang/Integer"))

	names := fullNames(idx, idx.FindClasses("Str", defaultOptions()))
	assert.ElementsMatch(t, []string{"java/lang/String", "x/strange"}, names)
	assert.NotContains(t, names, "java/lang/Integer")
}

func TestRanges(t *testing.T) {
	idx := searchFixture(t)

	for _, c := range idx.Classes() {
		slice := idx.classesStartingWith(idx.ClassName(c)[0])
		assert.Contains(t, slice, c)
	}
	assert.Empty(t, idx.classesStartingWith('q'))
	assert.Nil(t, idx.classesStartingWith(200))
}

func packageNames(idx *ClassIndex, packages []*IndexedPackage) []string {
	names := make([]string, len(packages))
	for i, p := range packages {
		names[i] = p.NameWithParents(idx.Packages(), idx.ConstantPool())
	}
	return names
}

func TestFindPackage(t *testing.T) {
	idx := searchFixture(t)

	pkg := idx.FindPackage("java/util")
	require.NotNil(t, pkg)
	assert.Equal(t, "util", pkg.Name(idx.ConstantPool()))
	assert.Equal(t, "java/util", pkg.NameWithParents(idx.Packages(), idx.ConstantPool()))

	assert.NotNil(t, idx.FindPackage("java/util/concurrent"))
	assert.Nil(t, idx.FindPackage("java/ut"))
	assert.Nil(t, idx.FindPackage("java/util/concurrent/locks"))
	assert.Nil(t, idx.FindPackage(""))
}

func TestFindPackages(t *testing.T) {
	idx := searchFixture(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"jav", []string{"java", "javax"}},
		{"JAVA", []string{"java", "javax"}},
		{"java/U", []string{"java/util"}},
		{"java/", []string{"java/lang", "java/util"}},
		{"java/util/c", []string{"java/util/concurrent"}},
		{"missing/x", nil},
		{"", nil},
		{"q", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := idx.FindPackages(tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.want, packageNames(idx, got))
		})
	}
}

func TestFindMethods(t *testing.T) {
	idx := mustBuild(t, shapes(t)...)

	got := idx.FindMethods("sc", 10)
	assert.ElementsMatch(t, []string{"p/AbstractShape.scale", "p/Circle.scale"}, methodOwners(idx, got))

	assert.Empty(t, idx.FindMethods("Sc", 10))
	assert.Len(t, idx.FindMethods("", 3), 3)
	assert.Empty(t, idx.FindMethods("area", 0))
}

func TestFindImplementationsOfClass(t *testing.T) {
	idx := mustBuild(t, shapes(t)...)
	shape := mustFind(t, idx, "p/Shape")
	abstract := mustFind(t, idx, "p/AbstractShape")

	assert.ElementsMatch(t, []string{"p/AbstractShape"},
		fullNames(idx, idx.FindImplementationsOfClass(shape.Index(), true)))
	assert.ElementsMatch(t, []string{"p/AbstractShape", "p/Circle", "p/Square"},
		fullNames(idx, idx.FindImplementationsOfClass(shape.Index(), false)))
	assert.ElementsMatch(t, []string{"p/Circle", "p/Square"},
		fullNames(idx, idx.FindImplementationsOfClass(abstract.Index(), true)))
	assert.Empty(t, idx.FindImplementationsOfClass(mustFind(t, idx, "p/Circle").Index(), false))
}

func TestFindImplementationsOfClass_CyclicHierarchy(t *testing.T) {
	idx := mustBuild(t,
		extending(newClass("p/A"), "p/B"),
		extending(newClass("p/B"), "p/A"),
		newClass("p/Target"),
	)

	assert.Empty(t, idx.FindImplementationsOfClass(mustFind(t, idx, "p/Target").Index(), false))
	assert.ElementsMatch(t, []string{"p/A", "p/B"},
		fullNames(idx, idx.FindImplementationsOfClass(mustFind(t, idx, "p/A").Index(), false)))
}

func TestFindImplementationsOfMethod(t *testing.T) {
	idx := mustBuild(t, shapes(t)...)
	shape := mustFind(t, idx, "p/Shape")
	abstract := mustFind(t, idx, "p/AbstractShape")

	got := idx.FindImplementationsOfMethod(shape.Index(), mustMethod(t, idx, shape, "area"))
	assert.ElementsMatch(t, []string{"p/AbstractShape.area", "p/Circle.area"}, methodOwners(idx, got))

	// Private methods are never overridden.
	assert.Empty(t, idx.FindImplementationsOfMethod(abstract.Index(), mustMethod(t, idx, abstract, "secret")))

	// scale(I) does not override scale(D).
	assert.Empty(t, idx.FindImplementationsOfMethod(abstract.Index(), mustMethod(t, idx, abstract, "scale")))
}

func TestFindBaseMethodsOfMethod(t *testing.T) {
	idx := mustBuild(t, shapes(t)...)
	circle := mustFind(t, idx, "p/Circle")

	got := idx.FindBaseMethodsOfMethod(circle.Index(), mustMethod(t, idx, circle, "area"))
	assert.ElementsMatch(t, []string{"p/AbstractShape.area", "p/Shape.area"}, methodOwners(idx, got))

	assert.Empty(t, idx.FindBaseMethodsOfMethod(circle.Index(), mustMethod(t, idx, circle, "secret")))
	assert.Nil(t, idx.FindBaseMethodsOfMethod(1000, mustMethod(t, idx, circle, "area")))
}

func TestFindBaseMethodsOfMethod_CyclicHierarchy(t *testing.T) {
	idx := mustBuild(t,
		withMethods(extending(newClass("p/A"), "p/B"), newMethod(t, "run", "()V", AccPublic)),
		withMethods(extending(newClass("p/B"), "p/A"), newMethod(t, "run", "()V", AccPublic)),
	)
	a := mustFind(t, idx, "p/A")

	got := idx.FindBaseMethodsOfMethod(a.Index(), mustMethod(t, idx, a, "run"))
	assert.Equal(t, []string{"p/B.run"}, methodOwners(idx, got))
}

func TestClassAt(t *testing.T) {
	idx := searchFixture(t)
	assert.Equal(t, idx.Classes()[0], idx.ClassAt(0))
	assert.Nil(t, idx.ClassAt(uint32(len(idx.Classes()))))
}
