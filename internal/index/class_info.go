package index

import (
	"sort"

	"github.com/jindex/pkg/signature"
)

// FieldInfo is a field as read from a class file.
type FieldInfo struct {
	Name        string
	AccessFlags AccessFlags
	Type        *signature.Type[string]
}

// MethodInfo is a method as read from a class file.
type MethodInfo struct {
	Name        string
	AccessFlags AccessFlags
	Signature   *signature.MethodSignature[string]
}

// ClassInfo is the raw description of one class handed to the builder.
// Class names inside signatures are full slash-separated names.
type ClassInfo struct {
	PackageName string
	ClassName   string
	// NameStart is the byte offset of the simple name inside ClassName.
	NameStart     int
	AccessFlags   AccessFlags
	Signature     *signature.ClassSignature[string]
	Enclosing     *signature.EnclosingTypeInfo[string]
	MemberClasses []string
	Fields        []FieldInfo
	Methods       []MethodInfo
	// Source names the archive the class was read from; it is not indexed.
	Source string
}

// FullName returns package and class name joined by '/'.
func (c *ClassInfo) FullName() string {
	if c.PackageName == "" {
		return c.ClassName
	}
	return c.PackageName + "/" + c.ClassName
}

// DedupClassInfos sorts infos by class name then package name and drops
// later duplicates, so the first occurrence of a class wins.
func DedupClassInfos(infos []ClassInfo) []ClassInfo {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].ClassName != infos[j].ClassName {
			return infos[i].ClassName < infos[j].ClassName
		}
		return infos[i].PackageName < infos[j].PackageName
	})

	out := infos[:0]
	for i := range infos {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.ClassName == infos[i].ClassName && last.PackageName == infos[i].PackageName {
				continue
			}
		}
		out = append(out, infos[i])
	}
	return out
}

// methodCount returns the number of methods across infos.
func methodCount(infos []ClassInfo) int {
	n := 0
	for i := range infos {
		n += len(infos[i].Methods)
	}
	return n
}
