package api

import (
	"github.com/jindex/internal/index"
)

// ClassSummary is the short form of a class used in result lists.
type ClassSummary struct {
	Name       string `json:"name" yaml:"name"`
	SourceName string `json:"source_name" yaml:"source_name"`
	SimpleName string `json:"simple_name" yaml:"simple_name"`
	Kind       string `json:"kind" yaml:"kind"`
	Visibility string `json:"visibility" yaml:"visibility"`
}

// FieldView describes one field.
type FieldView struct {
	Name       string `json:"name" yaml:"name"`
	Visibility string `json:"visibility" yaml:"visibility"`
	Static     bool   `json:"static,omitempty" yaml:"static,omitempty"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
	Signature  string `json:"signature" yaml:"signature"`
}

// MethodView describes one method together with its declaring class.
type MethodView struct {
	Class      string `json:"class" yaml:"class"`
	Name       string `json:"name" yaml:"name"`
	Visibility string `json:"visibility" yaml:"visibility"`
	Static     bool   `json:"static,omitempty" yaml:"static,omitempty"`
	Abstract   bool   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
	Signature  string `json:"signature" yaml:"signature"`
}

// ClassDetail is the full description of one class.
type ClassDetail struct {
	ClassSummary    `yaml:",inline"`
	Signature       string       `json:"signature,omitempty" yaml:"signature,omitempty"`
	SuperTypes      []string     `json:"super_types" yaml:"super_types"`
	Enclosing       string       `json:"enclosing,omitempty" yaml:"enclosing,omitempty"`
	EnclosingMethod string       `json:"enclosing_method,omitempty" yaml:"enclosing_method,omitempty"`
	MemberClasses   []string     `json:"member_classes" yaml:"member_classes"`
	Fields          []FieldView  `json:"fields" yaml:"fields"`
	Methods         []MethodView `json:"methods" yaml:"methods"`
}

// IndexInfo summarizes a loaded index.
type IndexInfo struct {
	Name     string              `json:"name" yaml:"name"`
	Stats    index.Stats         `json:"stats" yaml:"stats"`
	TimeInfo index.BuildTimeInfo `json:"time_info" yaml:"time_info"`
}

func classKind(flags index.AccessFlags) string {
	switch {
	case flags.IsAnnotation():
		return "annotation"
	case flags.IsInterface():
		return "interface"
	case flags.IsEnum():
		return "enum"
	default:
		return "class"
	}
}

// NewClassSummary describes c.
func NewClassSummary(idx *index.ClassIndex, c *index.IndexedClass) ClassSummary {
	return ClassSummary{
		Name:       idx.ClassNameWithPackage(c),
		SourceName: idx.SourceName(c),
		SimpleName: idx.SimpleClassName(c),
		Kind:       classKind(c.AccessFlags()),
		Visibility: c.AccessFlags().Visibility(),
	}
}

// NewClassSummaries describes every class of classes.
func NewClassSummaries(idx *index.ClassIndex, classes []*index.IndexedClass) []ClassSummary {
	out := make([]ClassSummary, 0, len(classes))
	for _, c := range classes {
		out = append(out, NewClassSummary(idx, c))
	}
	return out
}

// NewMethodView describes m declared in c.
func NewMethodView(idx *index.ClassIndex, c *index.IndexedClass, m *index.IndexedMethod) MethodView {
	flags := m.AccessFlags()
	return MethodView{
		Class:      idx.ClassNameWithPackage(c),
		Name:       idx.MethodName(m),
		Visibility: flags.Visibility(),
		Static:     flags.IsStatic(),
		Abstract:   flags.IsAbstract(),
		Descriptor: idx.MethodDescriptorString(c, m),
		Signature:  idx.MethodSignatureString(m),
	}
}

// NewMethodViews describes every method of methods.
func NewMethodViews(idx *index.ClassIndex, methods []index.ClassMethod) []MethodView {
	out := make([]MethodView, 0, len(methods))
	for _, cm := range methods {
		out = append(out, NewMethodView(idx, cm.Class, cm.Method))
	}
	return out
}

// NewClassDetail describes c with its members.
func NewClassDetail(idx *index.ClassIndex, c *index.IndexedClass) ClassDetail {
	d := ClassDetail{
		ClassSummary:  NewClassSummary(idx, c),
		Signature:     idx.ClassSignatureString(c),
		SuperTypes:    []string{},
		MemberClasses: []string{},
		Fields:        []FieldView{},
		Methods:       []MethodView{},
	}

	for _, super := range c.DirectSuperTypes() {
		if sc := idx.ClassAt(super); sc != nil {
			d.SuperTypes = append(d.SuperTypes, idx.ClassNameWithPackage(sc))
		}
	}
	if enclosing := idx.EnclosingClass(c); enclosing != nil {
		d.Enclosing = idx.ClassNameWithPackage(enclosing)
	}
	if name, ok := idx.EnclosingMethodName(c); ok {
		d.EnclosingMethod = name
	}
	for _, member := range c.MemberClasses() {
		if mc := idx.ClassAt(member); mc != nil {
			d.MemberClasses = append(d.MemberClasses, idx.ClassNameWithPackage(mc))
		}
	}

	fields := c.Fields()
	for i := range fields {
		f := &fields[i]
		d.Fields = append(d.Fields, FieldView{
			Name:       idx.FieldName(f),
			Visibility: f.AccessFlags().Visibility(),
			Static:     f.AccessFlags().IsStatic(),
			Descriptor: idx.FieldDescriptorString(c, f),
			Signature:  idx.TypeString(f.Signature()),
		})
	}
	methods := c.Methods()
	for i := range methods {
		d.Methods = append(d.Methods, NewMethodView(idx, c, &methods[i]))
	}
	return d
}

// PackageNames returns the full paths of pkgs.
func PackageNames(idx *index.ClassIndex, pkgs []*index.IndexedPackage) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.NameWithParents(idx.Packages(), idx.ConstantPool()))
	}
	return out
}

// LookupMethods returns the methods of c named name. A non-empty
// descriptor must also match the erased descriptor.
func LookupMethods(idx *index.ClassIndex, c *index.IndexedClass, name, descriptor string) []*index.IndexedMethod {
	var out []*index.IndexedMethod
	methods := c.Methods()
	for i := range methods {
		m := &methods[i]
		if idx.MethodName(m) != name {
			continue
		}
		if descriptor != "" && idx.MethodDescriptorString(c, m) != descriptor {
			continue
		}
		out = append(out, m)
	}
	return out
}
