package hierarchy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/model"
)

// Member is a node together with the aggregate of its records in the pass.
// Records from several plants that share a code collapse into one member.
type Member struct {
	Node
	Concept string
	Amount  decimal.Decimal
	Tag     model.Tag
	Records int
}

// Family is the unit of conflict analysis: every member sharing segments 1-2.
type Family struct {
	Code    string
	Name    string
	Members []*Member // sorted by code
}

// Index is the one-time grouping pass over a record batch. All later
// lookups are map hits.
type Index struct {
	byCode   map[model.AccountCode]*Member
	children map[model.AccountCode][]*Member // keyed by derived parent
	under    map[model.AccountCode][]*Member // keyed by nearest present ancestor
	families map[string]*Family
	order    []model.AccountCode
	famOrder []string
	warnings []model.Warning
}

// Build groups records by code, parent and family.
func Build(records []model.AccountRecord) *Index {
	idx := &Index{
		byCode:   make(map[model.AccountCode]*Member),
		children: make(map[model.AccountCode][]*Member),
		under:    make(map[model.AccountCode][]*Member),
		families: make(map[string]*Family),
	}

	firstSeen := make(map[string]*Member)
	mixedTags := make(map[model.AccountCode]bool)
	for _, rec := range records {
		m, ok := idx.byCode[rec.Code]
		if !ok {
			m = &Member{Node: Resolve(rec.Code), Concept: rec.Concept, Tag: rec.Tag}
			idx.byCode[rec.Code] = m
			idx.order = append(idx.order, rec.Code)
			if m.Malformed {
				idx.warn(model.WarnMalformedCode, rec.Code, "code does not match the 4-4-3-3 pattern; treated as a parentless detail account")
			}
			if _, seen := firstSeen[m.FamilyCode]; !seen {
				firstSeen[m.FamilyCode] = m
			}
		} else {
			if m.Concept == "" {
				m.Concept = rec.Concept
			}
			if rec.Tag != m.Tag && !mixedTags[rec.Code] {
				mixedTags[rec.Code] = true
				idx.warn(model.WarnInconsistentTags, rec.Code, fmt.Sprintf("records for %s carry different classifications; using the first", rec.Code))
			}
		}
		m.Amount = m.Amount.Add(rec.Amount)
		m.Records++
	}

	sort.Slice(idx.order, func(i, j int) bool { return idx.order[i] < idx.order[j] })

	for _, code := range idx.order {
		m := idx.byCode[code]
		if m.HasParent() {
			idx.children[m.Parent] = append(idx.children[m.Parent], m)
			if _, ok := idx.byCode[m.Parent]; !ok {
				idx.warn(model.WarnMissingParent, code, fmt.Sprintf("parent %s is not present in the record set", m.Parent))
			}
		}
		if anc := idx.Ancestors(code); len(anc) > 0 {
			idx.under[anc[0].Code] = append(idx.under[anc[0].Code], m)
		}
		fam, ok := idx.families[m.FamilyCode]
		if !ok {
			fam = &Family{Code: m.FamilyCode}
			idx.families[m.FamilyCode] = fam
			idx.famOrder = append(idx.famOrder, m.FamilyCode)
		}
		fam.Members = append(fam.Members, m)
	}
	sort.Strings(idx.famOrder)

	for code, fam := range idx.families {
		fam.Name = familyName(fam, firstSeen[code])
	}
	return idx
}

// familyName prefers the level-2 concept, then level 1, then the first
// member encountered in input order.
func familyName(fam *Family, first *Member) string {
	for _, level := range []int{2, 1} {
		for _, m := range fam.Members {
			if m.Level == level && m.Concept != "" {
				return m.Concept
			}
		}
	}
	if first != nil {
		return first.Concept
	}
	return ""
}

func (idx *Index) warn(kind model.WarningKind, code model.AccountCode, msg string) {
	idx.warnings = append(idx.warnings, model.Warning{Kind: kind, Code: code, Message: msg})
}

// Get returns the member for code.
func (idx *Index) Get(code model.AccountCode) (*Member, bool) {
	m, ok := idx.byCode[code]
	return m, ok
}

// Len returns the number of distinct codes.
func (idx *Index) Len() int { return len(idx.order) }

// Members returns every member sorted by code.
func (idx *Index) Members() []*Member {
	out := make([]*Member, len(idx.order))
	for i, code := range idx.order {
		out[i] = idx.byCode[code]
	}
	return out
}

// Families returns every family sorted by family code.
func (idx *Index) Families() []*Family {
	out := make([]*Family, len(idx.famOrder))
	for i, code := range idx.famOrder {
		out[i] = idx.families[code]
	}
	return out
}

// Family returns a family by code.
func (idx *Index) Family(code string) (*Family, bool) {
	f, ok := idx.families[code]
	return f, ok
}

// Children returns the members whose derived parent is code.
func (idx *Index) Children(code model.AccountCode) []*Member {
	return idx.children[code]
}

// ParentExists reports whether code's derived parent is in the record set.
func (idx *Index) ParentExists(code model.AccountCode) bool {
	p, ok := Parent(code)
	if !ok {
		return false
	}
	_, ok = idx.byCode[p]
	return ok
}

// Ancestors returns the present ancestors of code, nearest first.
// Missing intermediate parents are skipped, never fabricated.
func (idx *Index) Ancestors(code model.AccountCode) []*Member {
	var out []*Member
	for _, a := range Ancestors(code) {
		if m, ok := idx.byCode[a]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Descendants returns every present member below code, depth-first by code,
// including members reached through a missing intermediate parent.
func (idx *Index) Descendants(code model.AccountCode) []*Member {
	var out []*Member
	for _, c := range idx.under[code] {
		out = append(out, c)
		out = append(out, idx.Descendants(c.Code)...)
	}
	return out
}

// Siblings returns the members sharing code's parent and level, code itself
// included when present. Codes without a parent have no siblings but themselves.
func (idx *Index) Siblings(code model.AccountCode) []*Member {
	n := Resolve(code)
	if !n.HasParent() {
		if m, ok := idx.byCode[code]; ok {
			return []*Member{m}
		}
		return nil
	}
	var out []*Member
	for _, c := range idx.children[n.Parent] {
		if c.Level == n.Level {
			out = append(out, c)
		}
	}
	return out
}

// Warnings returns the data-quality findings collected while building.
func (idx *Index) Warnings() []model.Warning {
	return idx.warnings
}
