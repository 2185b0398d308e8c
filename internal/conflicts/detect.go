// Package conflicts finds structural classification conflicts in an account
// tree and summarizes them per family. Findings are output, never errors.
package conflicts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// detector holds the per-pass state shared by the family checks.
type detector struct {
	idx *hierarchy.Index
	st  classify.Statuses
	// coveredAbove[code] is true when some present ancestor is CLASSIFIED.
	coveredAbove map[model.AccountCode]bool
}

// Detect walks every family bottom-up and returns its issues in a stable
// order: by family, then over-classification, level-4, level-3 and
// under-classification findings.
func Detect(idx *hierarchy.Index, st classify.Statuses) []model.Issue {
	d := &detector{idx: idx, st: st, coveredAbove: make(map[model.AccountCode]bool, idx.Len())}
	for _, m := range idx.Members() {
		for _, a := range idx.Ancestors(m.Code) {
			if st.Classified(a.Code) {
				d.coveredAbove[m.Code] = true
				break
			}
		}
	}

	var issues []model.Issue
	for _, fam := range idx.Families() {
		issues = append(issues, d.family(fam)...)
	}
	return issues
}

func (d *detector) family(fam *hierarchy.Family) []model.Issue {
	var issues []model.Issue
	issues = append(issues, d.overClassified(fam)...)
	issues = append(issues, d.mixedSiblings(fam, 4)...)
	issues = append(issues, d.mixedSiblings(fam, 3)...)
	if is, ok := d.underClassified(fam); ok {
		issues = append(issues, is)
	}
	return issues
}

// overClassified pairs every CLASSIFIED member with its nearest CLASSIFIED
// ancestor. Seen from the ancestor the pair is the same, so each double count
// is reported exactly once.
func (d *detector) overClassified(fam *hierarchy.Family) []model.Issue {
	var issues []model.Issue
	for _, m := range fam.Members {
		if !d.st.Classified(m.Code) {
			continue
		}
		for _, a := range d.idx.Ancestors(m.Code) {
			if !d.st.Classified(a.Code) {
				continue
			}
			issues = append(issues, model.Issue{
				ErrorType:       model.OverClassification,
				Severity:        model.SeverityCritical,
				FinancialImpact: m.Amount.Abs(),
				AffectedCodes:   []model.AccountCode{a.Code, m.Code},
				FamilyCode:      fam.Code,
				Message: fmt.Sprintf("%s and its ancestor %s are both classified; %s is counted twice",
					m.Code, a.Code, m.Amount.Abs().StringFixed(2)),
			})
			break
		}
	}
	return issues
}

// mixedSiblings flags sibling groups at level 3 or 4 where only part of the
// group is classified. Groups already covered by a classified ancestor are
// summary-classified and skipped. At level 3 a member also counts as
// classified when detail classification below it has started.
func (d *detector) mixedSiblings(fam *hierarchy.Family, level int) []model.Issue {
	groups := make(map[model.AccountCode][]*hierarchy.Member)
	var parents []model.AccountCode
	for _, m := range fam.Members {
		if m.Level != level || !m.HasParent() || d.st.Of(m.Code) == classify.StatusHierarchy {
			continue
		}
		if _, ok := groups[m.Parent]; !ok {
			parents = append(parents, m.Parent)
		}
		groups[m.Parent] = append(groups[m.Parent], m)
	}

	errType := model.MixedLevel4Siblings
	if level == 3 {
		errType = model.MixedLevel3Siblings
	}

	var issues []model.Issue
	for _, parent := range parents {
		group := groups[parent]
		if d.coveredAbove[group[0].Code] {
			continue
		}
		var unclassified []model.AccountCode
		impact := decimal.Zero
		for _, m := range group {
			if d.countsAsClassified(m, level) {
				continue
			}
			unclassified = append(unclassified, m.Code)
			impact = impact.Add(m.Amount.Abs())
		}
		if len(unclassified) == 0 || len(unclassified) == len(group) {
			continue
		}
		severity := model.SeverityMedium
		if 2*len(unclassified) > len(group) {
			severity = model.SeverityHigh
		}
		issues = append(issues, model.Issue{
			ErrorType:       errType,
			Severity:        severity,
			FinancialImpact: impact,
			AffectedCodes:   unclassified,
			FamilyCode:      fam.Code,
			Message: fmt.Sprintf("%d of %d level-%d accounts under %s are unclassified (%s not reported)",
				len(unclassified), len(group), level, parent, impact.StringFixed(2)),
		})
	}
	return issues
}

func (d *detector) countsAsClassified(m *hierarchy.Member, level int) bool {
	if d.st.Classified(m.Code) {
		return true
	}
	if level == 4 {
		return false
	}
	for _, c := range d.idx.Descendants(m.Code) {
		if d.st.Classified(c.Code) {
			return true
		}
	}
	return false
}

// underClassified reports a family where nothing is classified although it
// carries money: no member, no ancestor above it and no descendant in a child
// family is classified. The impact is taken from the shallowest members with
// a nonzero amount, so zero header rows defer to the accounts below them.
func (d *detector) underClassified(fam *hierarchy.Family) (model.Issue, bool) {
	var affected []model.AccountCode
	total := decimal.Zero
	for _, m := range fam.Members {
		st := d.st.Of(m.Code)
		if st == classify.StatusHierarchy {
			continue
		}
		if st == classify.StatusClassified || d.coveredAbove[m.Code] {
			return model.Issue{}, false
		}
		for _, c := range d.idx.Descendants(m.Code) {
			if d.st.Classified(c.Code) {
				return model.Issue{}, false
			}
		}
		if !m.Amount.IsZero() && !d.belowNonzero(fam, m) {
			affected = append(affected, m.Code)
			total = total.Add(m.Amount.Abs())
		}
	}
	if total.IsZero() {
		return model.Issue{}, false
	}
	return model.Issue{
		ErrorType:       model.UnderClassification,
		Severity:        model.SeverityMedium,
		FinancialImpact: total,
		AffectedCodes:   affected,
		FamilyCode:      fam.Code,
		Message:         fmt.Sprintf("family %s has no classified accounts; %s is not reported", fam.Code, total.StringFixed(2)),
	}, true
}

// belowNonzero reports whether some ancestor of m in its family, control
// totals aside, already carries a nonzero amount.
func (d *detector) belowNonzero(fam *hierarchy.Family, m *hierarchy.Member) bool {
	for _, a := range d.idx.Ancestors(m.Code) {
		if a.FamilyCode == fam.Code && d.st.Of(a.Code) != classify.StatusHierarchy && !a.Amount.IsZero() {
			return true
		}
	}
	return false
}

// topOfFamily reports whether m has no present ancestor inside its own
// family, control totals aside.
func topOfFamily(idx *hierarchy.Index, st classify.Statuses, fam *hierarchy.Family, m *hierarchy.Member) bool {
	for _, a := range idx.Ancestors(m.Code) {
		if a.FamilyCode == fam.Code && st.Of(a.Code) != classify.StatusHierarchy {
			return false
		}
	}
	return true
}
