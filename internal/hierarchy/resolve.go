package hierarchy

import (
	"strings"

	"github.com/cleared-dev/acctree/internal/model"
)

// Rule names reported in Node.DetectedBy.
const (
	RuleRoot      = "segments_2_4_zero"
	RuleSubtotal  = "segments_3_4_zero"
	RuleSummary   = "segment_4_zero"
	RuleDetail    = "detail"
	RuleMalformed = "malformed"
)

// Node is the derived position of a code in the tree.
type Node struct {
	Code           model.AccountCode `json:"codigo"`
	Level          int               `json:"level"`
	Parent         model.AccountCode `json:"parent,omitempty"` // empty for level 1 and malformed codes
	ChildrenPrefix string            `json:"childrenPrefix"`
	FamilyCode     string            `json:"familyCode"`
	DetectedBy     string            `json:"detectedBy"`
	Malformed      bool              `json:"malformed,omitempty"`
}

// HasParent reports whether a parent code could be derived.
func (n Node) HasParent() bool { return n.Parent != "" }

// Resolve computes level, parent and children prefix. Malformed codes
// resolve to a parentless level-4 node in a family of their own.
func Resolve(code model.AccountCode) Node {
	segs, err := Parse(code)
	if err != nil {
		return Node{
			Code:           code,
			Level:          4,
			ChildrenPrefix: string(code),
			FamilyCode:     string(code),
			DetectedBy:     RuleMalformed,
			Malformed:      true,
		}
	}

	n := Node{Code: code, FamilyCode: string(code)[:FamilyCodeLen]}
	switch {
	case isZero(segs[1]) && isZero(segs[2]) && isZero(segs[3]):
		n.Level = 1
		n.DetectedBy = RuleRoot
		n.ChildrenPrefix = segs[0]
	case isZero(segs[2]) && isZero(segs[3]):
		n.Level = 2
		n.DetectedBy = RuleSubtotal
		n.Parent = segs.zeroed(1).Code()
		n.ChildrenPrefix = strings.Join(segs[:2], "-")
	case isZero(segs[3]):
		n.Level = 3
		n.DetectedBy = RuleSummary
		n.Parent = segs.zeroed(2).Code()
		n.ChildrenPrefix = strings.Join(segs[:3], "-")
	default:
		n.Level = 4
		n.DetectedBy = RuleDetail
		n.Parent = segs.zeroed(3).Code()
		n.ChildrenPrefix = string(code)
	}
	return n
}

// Level is shorthand for Resolve(code).Level.
func Level(code model.AccountCode) int { return Resolve(code).Level }

// Parent returns the derived parent code, if any.
func Parent(code model.AccountCode) (model.AccountCode, bool) {
	n := Resolve(code)
	return n.Parent, n.HasParent()
}

// Ancestors returns the derived ancestor chain, nearest first.
func Ancestors(code model.AccountCode) []model.AccountCode {
	var chain []model.AccountCode
	for p, ok := Parent(code); ok; p, ok = Parent(p) {
		chain = append(chain, p)
	}
	return chain
}

// IsAncestor reports whether anc lies on code's derived ancestor chain.
func IsAncestor(anc, code model.AccountCode) bool {
	for _, a := range Ancestors(code) {
		if a == anc {
			return true
		}
	}
	return false
}
