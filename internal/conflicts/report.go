package conflicts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// Remediation approaches.
const (
	SummaryClassification = "SUMMARY_CLASSIFICATION"
	DetailClassification  = "DETAIL_CLASSIFICATION"
)

// FamilyResult is the validation outcome for one family.
type FamilyResult struct {
	FamilyCode             string          `json:"familyCode"`
	FamilyName             string          `json:"familyName"`
	TotalAmount            decimal.Decimal `json:"totalAmount"`
	Issues                 []model.Issue   `json:"issues"`
	FinancialImpact        decimal.Decimal `json:"financialImpact"`
	CompletenessPercentage float64         `json:"completenessPercentage"`
	RecommendedApproach    string          `json:"recommendedApproach"`
	Reasoning              string          `json:"reasoning"`
	Members                int             `json:"members"`
	Level4Members          int             `json:"level4Members"`
	Perfect                bool            `json:"perfect"`
}

// Summary aggregates every family of a pass, for prioritizing remediation.
type Summary struct {
	TotalFamilies        int                     `json:"totalFamilies"`
	PerfectFamilies      int                     `json:"perfectFamilies"`
	FamiliesByIssueType  map[model.ErrorType]int `json:"familiesByIssueType"`
	IssuesByType         map[model.ErrorType]int `json:"issuesByType"`
	TotalFinancialImpact decimal.Decimal         `json:"totalFinancialImpact"`
}

// ReportOptions tunes the remediation advice.
type ReportOptions struct {
	// SummaryLeafLimit is the level-4 member count above which classifying
	// once at level 3 is recommended.
	SummaryLeafLimit int
}

// Report groups issues per family and computes completeness and advice.
func Report(idx *hierarchy.Index, st classify.Statuses, issues []model.Issue, opts ReportOptions) ([]FamilyResult, Summary) {
	byFamily := make(map[string][]model.Issue)
	for _, is := range issues {
		byFamily[is.FamilyCode] = append(byFamily[is.FamilyCode], is)
	}

	sum := Summary{
		FamiliesByIssueType:  make(map[model.ErrorType]int),
		IssuesByType:         make(map[model.ErrorType]int),
		TotalFinancialImpact: decimal.Zero,
	}
	results := make([]FamilyResult, 0, len(idx.Families()))
	for _, fam := range idx.Families() {
		res := familyResult(idx, st, fam, byFamily[fam.Code], opts)
		results = append(results, res)

		sum.TotalFamilies++
		if res.Perfect {
			sum.PerfectFamilies++
		}
		seen := make(map[model.ErrorType]bool)
		for _, is := range res.Issues {
			sum.IssuesByType[is.ErrorType]++
			if !seen[is.ErrorType] {
				seen[is.ErrorType] = true
				sum.FamiliesByIssueType[is.ErrorType]++
			}
		}
		sum.TotalFinancialImpact = sum.TotalFinancialImpact.Add(res.FinancialImpact)
	}
	return results, sum
}

func familyResult(idx *hierarchy.Index, st classify.Statuses, fam *hierarchy.Family, issues []model.Issue, opts ReportOptions) FamilyResult {
	res := FamilyResult{
		FamilyCode:      fam.Code,
		FamilyName:      fam.Name,
		TotalAmount:     decimal.Zero,
		Issues:          issues,
		FinancialImpact: decimal.Zero,
		Members:         len(fam.Members),
		Perfect:         len(issues) == 0,
	}
	if res.Issues == nil {
		res.Issues = []model.Issue{}
	}
	for _, is := range issues {
		res.FinancialImpact = res.FinancialImpact.Add(is.FinancialImpact)
	}

	var leaves, covered int
	for _, m := range fam.Members {
		if m.Level == 4 {
			res.Level4Members++
		}
		if st.Of(m.Code) == classify.StatusHierarchy {
			continue
		}
		if topOfFamily(idx, st, fam, m) {
			res.TotalAmount = res.TotalAmount.Add(m.Amount)
		}
		if len(idx.Descendants(m.Code)) > 0 {
			continue
		}
		leaves++
		if coveredLeaf(idx, st, m) {
			covered++
		}
	}
	res.CompletenessPercentage = 100
	if leaves > 0 {
		res.CompletenessPercentage = float64(covered) / float64(leaves) * 100
	}

	if res.Level4Members > opts.SummaryLeafLimit {
		res.RecommendedApproach = SummaryClassification
		res.Reasoning = fmt.Sprintf("%d level-4 accounts exceed the limit of %d; classify once at level 3 and leave the detail accounts unclassified",
			res.Level4Members, opts.SummaryLeafLimit)
	} else {
		res.RecommendedApproach = DetailClassification
		res.Reasoning = fmt.Sprintf("%d level-4 accounts; classify each detail account and leave its summary parents unclassified",
			res.Level4Members)
	}
	return res
}

func coveredLeaf(idx *hierarchy.Index, st classify.Statuses, m *hierarchy.Member) bool {
	if st.Classified(m.Code) {
		return true
	}
	for _, a := range idx.Ancestors(m.Code) {
		if st.Classified(a.Code) {
			return true
		}
	}
	return false
}
