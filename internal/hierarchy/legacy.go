package hierarchy

import (
	"github.com/cleared-dev/acctree/internal/model"
)

// LegacyLevel is the older numeric-sequence heuristic: one plus the number of
// non-zero segments after the first. It is kept only for the diagnostic
// comparison; Resolve is canonical.
func LegacyLevel(code model.AccountCode) int {
	segs, err := Parse(code)
	if err != nil {
		return 4
	}
	level := 1
	for _, s := range segs[1:] {
		if !isZero(s) {
			level++
		}
	}
	return level
}

// Comparison contrasts the two level heuristics for one code.
type Comparison struct {
	Code          model.AccountCode `json:"codigo"`
	Concept       string            `json:"concepto,omitempty"`
	OriginalLevel int               `json:"originalLevel"`
	ImprovedLevel int               `json:"improvedLevel"`
	Difference    int               `json:"difference"`
	DetectedBy    string            `json:"detectedBy"`
	Parent        model.AccountCode `json:"parent,omitempty"`
	ParentExists  bool              `json:"parentExists"`
}

// Compare runs both heuristics over every distinct code in the index.
func Compare(idx *Index) []Comparison {
	out := make([]Comparison, 0, len(idx.order))
	for _, m := range idx.Members() {
		legacy := LegacyLevel(m.Code)
		out = append(out, Comparison{
			Code:          m.Code,
			Concept:       m.Concept,
			OriginalLevel: legacy,
			ImprovedLevel: m.Level,
			Difference:    m.Level - legacy,
			DetectedBy:    m.DetectedBy,
			Parent:        m.Parent,
			ParentExists:  idx.ParentExists(m.Code),
		})
	}
	return out
}
