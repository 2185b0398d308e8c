// Package classify decides how complete an account's classification is and
// proposes classifications for unclassified accounts.
package classify

import (
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// Status is the classification state of one account.
type Status string

const (
	StatusClassified   Status = "CLASSIFIED"
	StatusPartial      Status = "PARTIAL"
	StatusUnclassified Status = "UNCLASSIFIED"
	StatusHierarchy    Status = "HIERARCHY" // grand-total control code, never classified
)

// Classifier maps tags onto statuses. Control codes are the reserved
// level-1 roots that exist only as reconciliation targets.
type Classifier struct {
	controls map[model.AccountCode]bool
}

// NewClassifier creates a Classifier that reports HIERARCHY for the given codes.
func NewClassifier(controls ...model.AccountCode) Classifier {
	c := Classifier{controls: make(map[model.AccountCode]bool, len(controls))}
	for _, code := range controls {
		if code != "" {
			c.controls[code] = true
		}
	}
	return c
}

// IsControl reports whether code is a reserved control total.
func (c Classifier) IsControl(code model.AccountCode) bool {
	return c.controls[code]
}

// Status classifies a tag carried by code.
func (c Classifier) Status(code model.AccountCode, tag model.Tag) Status {
	switch {
	case c.controls[code]:
		return StatusHierarchy
	case tag.Complete():
		return StatusClassified
	case tag.Tipo.IsSet() && !tag.Categoria.IsSet():
		return StatusPartial
	default:
		return StatusUnclassified
	}
}

// Statuses memoizes the status of every member of one pass.
type Statuses map[model.AccountCode]Status

// Of returns the status of code; codes outside the pass are UNCLASSIFIED.
func (s Statuses) Of(code model.AccountCode) Status {
	if st, ok := s[code]; ok {
		return st
	}
	return StatusUnclassified
}

// Classified reports whether code is CLASSIFIED.
func (s Statuses) Classified(code model.AccountCode) bool {
	return s[code] == StatusClassified
}

// StatusesOf classifies every member of idx.
func (c Classifier) StatusesOf(idx *hierarchy.Index) Statuses {
	st := make(Statuses, idx.Len())
	for _, m := range idx.Members() {
		st[m.Code] = c.Status(m.Code, m.Tag)
	}
	return st
}
