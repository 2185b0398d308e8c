package classify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// Recommendation sources.
const (
	SourceExisting       = "existing"
	SourceSiblingPattern = "sibling_pattern"
	SourceHierarchy      = "hierarchy"
	SourceNone           = "none"
)

// RecommendOptions tunes the sibling majority vote.
type RecommendOptions struct {
	Threshold  float64 // minimum share of classified siblings, e.g. 0.60
	Confidence float64 // confidence reported for a sibling-pattern match, e.g. 0.85
}

// SiblingInfo describes one sibling for a reviewer.
type SiblingInfo struct {
	Code          model.AccountCode `json:"codigo"`
	Concept       string            `json:"concepto"`
	Amount        decimal.Decimal   `json:"monto"`
	Status        Status            `json:"status"`
	Clasificacion string            `json:"clasificacion,omitempty"`
}

// FamilyContext is the sibling evidence behind a recommendation.
type FamilyContext struct {
	FamilyCode             string            `json:"familyCode"`
	FamilyName             string            `json:"familyName"`
	Parent                 model.AccountCode `json:"parent,omitempty"`
	ParentExists           bool              `json:"parentExists"`
	Siblings               []SiblingInfo     `json:"siblings"`
	ClassifiedSiblings     int               `json:"classifiedSiblings"`
	TotalSiblings          int               `json:"totalSiblings"`
	CompletenessPercentage float64           `json:"completenessPercentage"`
	DominantClasificacion  string            `json:"dominantClasificacion,omitempty"`
	DominantShare          float64           `json:"dominantShare"`
}

// Recommendation is a suggestion for a human reviewer; it is never applied.
type Recommendation struct {
	Code           model.AccountCode `json:"codigo"`
	Concept        string            `json:"concepto"`
	Classification *model.Tag        `json:"classification"`
	Source         string            `json:"source"`
	Confidence     float64           `json:"confidence"`
	Reasoning      string            `json:"reasoning"`
	FamilyContext  FamilyContext     `json:"familyContext"`
}

// Recommend proposes a tag for code from the dominant clasificacion among its
// classified siblings. concept is used when code is not in the index.
func Recommend(idx *hierarchy.Index, cls Classifier, code model.AccountCode, concept string, opts RecommendOptions) Recommendation {
	node := hierarchy.Resolve(code)
	rec := Recommendation{Code: code, Concept: concept, Source: SourceNone}
	target, present := idx.Get(code)
	if present && target.Concept != "" {
		rec.Concept = target.Concept
	}

	ctx := FamilyContext{
		FamilyCode:   node.FamilyCode,
		Parent:       node.Parent,
		ParentExists: idx.ParentExists(code),
	}
	if fam, ok := idx.Family(node.FamilyCode); ok {
		ctx.FamilyName = fam.Name
	}

	// Tally classified siblings, target excluded.
	counts := make(map[string]int)
	var order []string
	var classified []*hierarchy.Member
	for _, m := range idx.Siblings(code) {
		st := cls.Status(m.Code, m.Tag)
		ctx.Siblings = append(ctx.Siblings, SiblingInfo{
			Code:          m.Code,
			Concept:       m.Concept,
			Amount:        m.Amount,
			Status:        st,
			Clasificacion: m.Tag.Clasificacion.Or(""),
		})
		if m.Code == code {
			continue
		}
		ctx.TotalSiblings++
		if st != StatusClassified {
			continue
		}
		classified = append(classified, m)
		v := m.Tag.Clasificacion.Or("")
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	ctx.TotalSiblings++ // the target itself
	ctx.ClassifiedSiblings = len(classified)
	ctx.CompletenessPercentage = percent(ctx.ClassifiedSiblings, ctx.TotalSiblings)

	for _, v := range order {
		if counts[v] > counts[ctx.DominantClasificacion] {
			ctx.DominantClasificacion = v
		}
	}
	if len(classified) > 0 {
		ctx.DominantShare = float64(counts[ctx.DominantClasificacion]) / float64(len(classified))
	}
	rec.FamilyContext = ctx

	switch {
	case cls.IsControl(code):
		rec.Source = SourceHierarchy
		rec.Reasoning = fmt.Sprintf("%s is a control total and must not be classified individually", code)
		return rec
	case present && cls.Status(code, target.Tag) == StatusClassified:
		tag := target.Tag
		rec.Classification = &tag
		rec.Source = SourceExisting
		rec.Confidence = 1.0
		rec.Reasoning = fmt.Sprintf("%s is already classified", code)
		return rec
	case len(classified) == 0:
		rec.Reasoning = fmt.Sprintf("no classified siblings under %s; family completeness %.1f%%",
			parentLabel(node), ctx.CompletenessPercentage)
		return rec
	}

	top := counts[ctx.DominantClasificacion]
	if float64(top) < opts.Threshold*float64(len(classified))-1e-9 {
		rec.Reasoning = fmt.Sprintf("no dominant pattern: %q covers %d of %d classified siblings (%.0f%%, threshold %.0f%%); family completeness %.1f%%",
			ctx.DominantClasificacion, top, len(classified), 100*ctx.DominantShare, 100*opts.Threshold, ctx.CompletenessPercentage)
		return rec
	}

	tag := dominantTag(classified, ctx.DominantClasificacion)
	rec.Classification = &tag
	rec.Source = SourceSiblingPattern
	rec.Confidence = opts.Confidence
	rec.Reasoning = fmt.Sprintf("%d of %d classified siblings (%.0f%%) under %s use clasificación %q",
		top, len(classified), 100*ctx.DominantShare, parentLabel(node), ctx.DominantClasificacion)
	return rec
}

// dominantTag picks the most common full tag among siblings carrying clasif,
// first seen winning ties.
func dominantTag(siblings []*hierarchy.Member, clasif string) model.Tag {
	counts := make(map[model.Tag]int)
	var best model.Tag
	for _, m := range siblings {
		if m.Tag.Clasificacion.Or("") != clasif {
			continue
		}
		counts[m.Tag]++
		if counts[m.Tag] > counts[best] {
			best = m.Tag
		}
	}
	return best
}

func parentLabel(n hierarchy.Node) string {
	if !n.HasParent() {
		return "the root"
	}
	return string(n.Parent)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
