package ingest

import (
	"strings"

	"github.com/jindex/internal/classfile"
	"github.com/jindex/internal/index"
	"github.com/jindex/pkg/constantpool"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/signature"
	"github.com/jindex/pkg/utils"
)

// ProcessClass decodes one class file into the raw description the builder
// consumes. Fields and methods with non-ASCII names or unparsable
// signatures are dropped, as are synthetic methods; each drop is logged at
// debug level. A class that cannot be described at all is an error.
func ProcessClass(data []byte, logger utils.Logger) (index.ClassInfo, error) {
	logger = utils.OrNull(logger)

	cf, err := classfile.Parse(data)
	if err != nil {
		return index.ClassInfo{}, err
	}
	if !constantpool.IsASCII(cf.ThisClass) {
		return index.ClassInfo{}, apperrors.Newf(apperrors.CodeClassFormat, "class name %q is not ASCII", cf.ThisClass)
	}

	nested, err := convertNesting(cf)
	if err != nil {
		return index.ClassInfo{}, apperrors.Wrapf(apperrors.CodeClassFormat, err, "invalid nesting information in %s", cf.ThisClass)
	}

	sig, err := classSignature(cf)
	if err != nil {
		return index.ClassInfo{}, apperrors.Wrapf(apperrors.CodeClassFormat, err, "invalid class signature in %s", cf.ThisClass)
	}

	info := index.ClassInfo{
		PackageName:   nested.packageName,
		ClassName:     nested.className,
		NameStart:     nested.nameStart,
		AccessFlags:   index.AccessFlags(cf.AccessFlags | nested.accessFlags),
		Signature:     sig,
		Enclosing:     nested.enclosing,
		MemberClasses: nested.memberClasses,
	}

	log := logger.WithField("class", cf.ThisClass)
	for i := range cf.Fields {
		if field, ok := convertField(&cf.Fields[i], log); ok {
			info.Fields = append(info.Fields, field)
		}
	}
	for i := range cf.Methods {
		if method, ok := convertMethod(&cf.Methods[i], log); ok {
			info.Methods = append(info.Methods, method)
		}
	}
	return info, nil
}

func convertField(f *classfile.Member, log utils.Logger) (index.FieldInfo, bool) {
	if !constantpool.IsASCII(f.Name) {
		log.Debug("Skipping field with non-ASCII name %q", f.Name)
		return index.FieldInfo{}, false
	}

	text := f.Descriptor
	if f.HasSignature {
		text = f.Signature
	}
	typ, err := signature.ParseFieldDescriptor(text)
	if err != nil {
		log.Debug("Skipping field %s: %v", f.Name, err)
		return index.FieldInfo{}, false
	}
	return index.FieldInfo{Name: f.Name, AccessFlags: index.AccessFlags(f.AccessFlags), Type: typ}, true
}

func convertMethod(m *classfile.Member, log utils.Logger) (index.MethodInfo, bool) {
	if !constantpool.IsASCII(m.Name) {
		log.Debug("Skipping method with non-ASCII name %q", m.Name)
		return index.MethodInfo{}, false
	}
	if m.IsSynthetic() {
		return index.MethodInfo{}, false
	}

	text := m.Descriptor
	if m.HasSignature {
		text = m.Signature
	}
	sig, err := signature.ParseMethodSignature(text, m.Exceptions)
	if err != nil {
		log.Debug("Skipping method %s%s: %v", m.Name, m.Descriptor, err)
		return index.MethodInfo{}, false
	}
	return index.MethodInfo{Name: m.Name, AccessFlags: index.AccessFlags(m.AccessFlags), Signature: sig}, true
}

// classSignature parses the Signature attribute, or derives a signature
// from the super class and interfaces when there is none.
func classSignature(cf *classfile.ClassFile) (*signature.ClassSignature[string], error) {
	if cf.HasSignature {
		return signature.ParseClassSignature(cf.Signature)
	}
	return signature.NewClassSignature(cf.SuperClass, cf.Interfaces), nil
}

// nesting is what a class file says about where the class is declared and
// which member classes it owns.
type nesting struct {
	packageName   string
	className     string
	nameStart     int
	accessFlags   uint16
	enclosing     *signature.EnclosingTypeInfo[string]
	memberClasses []string
}

// convertNesting reads the InnerClasses row describing the class itself and
// the EnclosingMethod attribute. The enclosing class comes from
// EnclosingMethod when present and from the row otherwise; the offset of
// the simple name is taken from the row in both cases.
func convertNesting(cf *classfile.ClassFile) (nesting, error) {
	n := nesting{}
	n.packageName, n.className = splitName(cf.ThisClass)

	self := cf.FindInnerClass(cf.ThisClass)
	if self != nil {
		n.accessFlags = self.AccessFlags

		kind := signature.InnerClassMember
		switch {
		case !self.HasInnerName:
			kind = signature.InnerClassAnonymous
		case !self.HasOuter:
			kind = signature.InnerClassLocal
		}

		outer, start, splitErr := outerAndInnerName(n.className, self)
		if splitErr == nil {
			n.nameStart = start
		}

		if em := cf.EnclosingMethod; em != nil {
			enclosing, err := enclosingFromMethod(em, kind)
			if err != nil {
				return n, err
			}
			n.enclosing = enclosing
		} else {
			if splitErr != nil {
				return n, splitErr
			}
			n.enclosing = &signature.EnclosingTypeInfo[string]{ClassName: outer, HasClassName: true, Type: kind}
		}
	}

	for i := range cf.InnerClasses {
		entry := &cf.InnerClasses[i]
		if entry == self || !entry.HasOuter || !entry.HasInnerName || entry.OuterClass != cf.ThisClass {
			continue
		}
		if constantpool.IsASCII(entry.InnerClass) {
			n.memberClasses = append(n.memberClasses, entry.InnerClass)
		}
	}
	return n, nil
}

func enclosingFromMethod(em *classfile.EnclosingMethod, kind signature.InnerClassType) (*signature.EnclosingTypeInfo[string], error) {
	if !constantpool.IsASCII(em.ClassName) {
		return nil, apperrors.Newf(apperrors.CodeClassFormat, "enclosing class name %q is not ASCII", em.ClassName)
	}
	info := &signature.EnclosingTypeInfo[string]{ClassName: em.ClassName, HasClassName: true, Type: kind}
	if !em.HasMethod {
		return info, nil
	}
	if !constantpool.IsASCII(em.MethodName) {
		return nil, apperrors.Newf(apperrors.CodeClassFormat, "enclosing method name %q is not ASCII", em.MethodName)
	}
	descriptor, err := signature.ParseMethodSignature(em.MethodDescriptor, nil)
	if err != nil {
		return nil, err
	}
	info.MethodName = em.MethodName
	info.HasMethodName = true
	info.MethodDescriptor = descriptor
	return info, nil
}

// outerAndInnerName returns the full outer class name and the offset of
// the simple name inside className (the class name without package). It
// prefers the declared inner name, then the outer class name, then the
// last '$' of the binary name.
func outerAndInnerName(className string, e *classfile.InnerClassEntry) (string, int, error) {
	var outer string
	var start int

	switch {
	case e.HasInnerName && e.InnerName != "" && e.HasOuter:
		outer = e.OuterClass
		start = len(className) - len(e.InnerName)
	case e.HasOuter:
		outer = e.OuterClass
		start = len(className) - (len(e.InnerClass) - (len(e.OuterClass) + 1))
	default:
		i := strings.LastIndexByte(e.InnerClass, '$')
		if i < 0 {
			return "", 0, apperrors.Newf(apperrors.CodeClassFormat, "no '$' in inner class name %s", e.InnerClass)
		}
		outer = e.InnerClass[:i]
		start = len(className) - (len(e.InnerClass) - (i + 1))
	}

	if !constantpool.IsASCII(outer) {
		return "", 0, apperrors.Newf(apperrors.CodeClassFormat, "outer class name %q is not ASCII", outer)
	}
	if start < 0 || start > len(className) {
		return "", 0, apperrors.Newf(apperrors.CodeClassFormat, "inner name of %s does not fit the class name", e.InnerClass)
	}
	return outer, start, nil
}

// splitName splits a binary class name at its last '/'.
func splitName(full string) (pkg, name string) {
	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}
