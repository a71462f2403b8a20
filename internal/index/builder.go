package index

import (
	"fmt"
	"sort"

	"github.com/jindex/pkg/constantpool"
	"github.com/jindex/pkg/signature"
	"github.com/jindex/pkg/utils"
)

// BuildOptions configures a Builder.
type BuildOptions struct {
	// ExpectedMethodCount sizes the constant pool up front. Zero means the
	// count is taken from the input.
	ExpectedMethodCount int
	Logger              utils.Logger
	// Timer receives the indexing phase. A nil timer records nothing.
	Timer *utils.Timer
}

// DefaultBuildOptions returns options with a null logger and no timer.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Logger: &utils.NullLogger{}}
}

// Builder turns raw class descriptions into a ClassIndex.
type Builder struct {
	opts BuildOptions
}

// NewBuilder creates a builder.
func NewBuilder(opts BuildOptions) *Builder {
	opts.Logger = utils.OrNull(opts.Logger)
	return &Builder{opts: opts}
}

// stub pairs a phase-one class record with the package path it sorts by.
type stub struct {
	class       *IndexedClass
	info        *ClassInfo
	packagePath string
}

// Build deduplicates infos and builds the index in two passes. The first
// pass interns names and assigns every class its global index in sorted
// order; the second resolves signatures and members against those indices.
// infos is reordered in place.
func (b *Builder) Build(infos []ClassInfo) (*ClassIndex, error) {
	if b.opts.Timer != nil {
		defer b.opts.Timer.Start(PhaseIndexing).Stop()
	}

	infos = DedupClassInfos(infos)

	expectedMethods := b.opts.ExpectedMethodCount
	if expectedMethods <= 0 {
		expectedMethods = methodCount(infos)
	}
	pool := constantpool.New(int(float64(len(infos)*15+expectedMethods*8) * 0.8))
	packages := NewPackageIndex()
	names := make(map[string]uint32, len(infos))
	res := newResolver(pool, names, nil)

	stubs, err := b.createStubs(infos, pool, packages, res)
	if err != nil {
		return nil, err
	}

	classes := make([]*IndexedClass, len(stubs))
	for i, s := range stubs {
		if err := s.class.SetIndex(uint32(i)); err != nil {
			return nil, err
		}
		classes[i] = s.class
	}

	idx := newClassIndex(pool, packages, classes)
	res.lookup = func(pkg, name string) (uint32, bool) {
		c := idx.FindClass(pkg, name)
		if c == nil {
			return 0, false
		}
		return c.Index(), true
	}

	byInfo := make(map[*ClassInfo]*IndexedClass, len(stubs))
	for _, s := range stubs {
		byInfo[s.info] = s.class
	}

	for i := range infos {
		info := &infos[i]
		if err := b.populate(info, byInfo[info], idx, res); err != nil {
			return nil, fmt.Errorf("failed to index class %s: %w", info.FullName(), err)
		}
	}

	b.opts.Logger.Debug("Indexed %d classes in %d packages, pool size %d bytes",
		len(classes), packages.Len()-1, pool.Len())
	return idx, nil
}

func (b *Builder) createStubs(infos []ClassInfo, pool *constantpool.ConstantPool, packages *PackageIndex, res *resolver) ([]stub, error) {
	stubs := make([]stub, len(infos))
	for i := range infos {
		info := &infos[i]

		pkg, err := packages.GetOrAdd(pool, info.PackageName)
		if err != nil {
			return nil, fmt.Errorf("failed to add package %s: %w", info.PackageName, err)
		}
		name, err := res.intern(info.ClassName)
		if err != nil {
			return nil, fmt.Errorf("failed to add class name %s: %w", info.ClassName, err)
		}

		nameStart := info.NameStart
		if nameStart < 0 || nameStart > len(info.ClassName) {
			nameStart = 0
		}
		if nameStart > 255 {
			nameStart = 255
		}

		stubs[i] = stub{
			class:       NewIndexedClass(pkg, name, uint8(nameStart), info.AccessFlags),
			info:        info,
			packagePath: info.PackageName,
		}
	}

	sort.Slice(stubs, func(i, j int) bool {
		a, b := stubs[i].info.ClassName, stubs[j].info.ClassName
		if a != b {
			return a < b
		}
		pkg := packages.PackageAt(stubs[i].class.packageIndex)
		return pkg.CompareNameWithParents(packages, pool, stubs[j].packagePath) < 0
	})
	return stubs, nil
}

func (b *Builder) populate(info *ClassInfo, class *IndexedClass, idx *ClassIndex, res *resolver) error {
	idx.packages.addClass(class.packageIndex, class.Index())

	sig, err := res.resolveClassSignature(info.Signature)
	if err != nil {
		return err
	}
	if err := class.SetSignature(sig); err != nil {
		return err
	}

	enclosing, err := res.resolveEnclosing(info.Enclosing)
	if err != nil {
		return err
	}
	if err := class.SetEnclosing(enclosing); err != nil {
		return err
	}

	members := make([]uint32, 0, len(info.MemberClasses))
	for _, member := range info.MemberClasses {
		if m, ok := res.lookupClass(member); ok {
			members = append(members, m)
		}
	}
	if err := class.SetMemberClasses(members); err != nil {
		return err
	}

	fields := make([]IndexedField, 0, len(info.Fields))
	for _, f := range info.Fields {
		name, err := res.intern(f.Name)
		if err != nil {
			return err
		}
		typ, err := res.resolveType(f.Type)
		if err != nil {
			return err
		}
		fields = append(fields, NewIndexedField(name, f.AccessFlags, typ))
	}
	if err := class.SetFields(fields); err != nil {
		return err
	}

	methods := make([]IndexedMethod, 0, len(info.Methods))
	for _, m := range info.Methods {
		name, err := res.intern(m.Name)
		if err != nil {
			return err
		}
		msig, err := res.resolveMethodSignature(m.Signature)
		if err != nil {
			return err
		}
		if msig == nil {
			msig = &IndexedMethodSignature{Return: signature.PrimitiveType[uint32](signature.Void)}
		}
		methods = append(methods, NewIndexedMethod(name, m.AccessFlags, msig))
	}
	return class.SetMethods(methods)
}

// BuildFromInfos builds an index with default options.
func BuildFromInfos(infos []ClassInfo) (*ClassIndex, error) {
	return NewBuilder(DefaultBuildOptions()).Build(infos)
}

