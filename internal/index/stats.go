package index

import (
	"github.com/jindex/pkg/signature"
)

// Stats summarizes the size of an index.
type Stats struct {
	Classes              int `json:"classes" yaml:"classes"`
	Packages             int `json:"packages" yaml:"packages"`
	Fields               int `json:"fields" yaml:"fields"`
	Methods              int `json:"methods" yaml:"methods"`
	PoolBytes            int `json:"pool_bytes" yaml:"pool_bytes"`
	UnresolvedReferences int `json:"unresolved_references" yaml:"unresolved_references"`
}

// Stats counts the index contents. Packages excludes the root.
func (idx *ClassIndex) Stats() Stats {
	s := Stats{
		Classes:   len(idx.classes),
		Packages:  idx.packages.Len() - 1,
		PoolBytes: idx.pool.Len(),
	}

	countUnresolved := func(t *IndexedType) {
		signature.Walk(t, func(n *IndexedType) {
			if n.Kind == signature.KindUnresolved {
				s.UnresolvedReferences++
			}
		})
	}

	for _, c := range idx.classes {
		s.Fields += len(c.fields)
		s.Methods += len(c.methods)

		if c.signature != nil {
			countUnresolved(c.signature.SuperClass)
			for _, iface := range c.signature.Interfaces {
				countUnresolved(iface)
			}
		}
		for i := range c.fields {
			countUnresolved(c.fields[i].signature)
		}
		for i := range c.methods {
			sig := c.methods[i].signature
			for _, p := range sig.Parameters {
				countUnresolved(p)
			}
			countUnresolved(sig.Return)
		}
	}
	return s
}
