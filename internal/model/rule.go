package model

import "time"

// ClassificationRule is the reviewer-owned source of truth for a code's tag.
type ClassificationRule struct {
	ID                    string      `json:"id"`
	AccountCode           AccountCode `json:"accountCode"`
	Tag                   Tag         `json:"tag"`
	HierarchyLevel        int         `json:"hierarchyLevel"`
	FamilyCode            string      `json:"familyCode"`
	EffectiveFrom         time.Time   `json:"effectiveFrom"`
	EffectiveTo           *time.Time  `json:"effectiveTo,omitempty"`
	IsActive              bool        `json:"isActive"`
	AppliesToReportsCount int         `json:"appliesToReportsCount"`
	UpdatedBy             string      `json:"updatedBy,omitempty"`
	Reason                string      `json:"reason,omitempty"`
}

// ActiveAt reports whether the rule governs imports at t.
func (r ClassificationRule) ActiveAt(t time.Time) bool {
	if !r.IsActive || t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}
