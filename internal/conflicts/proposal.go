package conflicts

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// ErrControlCode is the rejection reason for classifying a control total.
const ErrControlCode = "CONTROL_CODE"

// ProposalResult is the outcome of a pre-submission classification check.
type ProposalResult struct {
	Valid            bool                `json:"valid"`
	Error            string              `json:"error,omitempty"`
	Severity         model.Severity      `json:"severity,omitempty"`
	FinancialImpact  *decimal.Decimal    `json:"financialImpact,omitempty"`
	Message          string              `json:"message"`
	SuggestedAction  string              `json:"suggestedAction"`
	ConflictingCodes []model.AccountCode `json:"conflictingCodes,omitempty"`
	Warnings         []model.Warning     `json:"warnings,omitempty"`
}

// CheckProposal reports whether tagging code with proposed would create an
// over-classification against the accounts already classified in idx.
// code need not be present in idx.
func CheckProposal(idx *hierarchy.Index, cls classify.Classifier, st classify.Statuses, code model.AccountCode, proposed model.Tag) ProposalResult {
	node := hierarchy.Resolve(code)
	var res ProposalResult
	if node.Malformed {
		res.Warnings = append(res.Warnings, model.Warning{
			Kind: model.WarnMalformedCode, Code: code,
			Message: "code does not match the 4-4-3-3 pattern; ancestors and descendants cannot be derived",
		})
	} else if node.HasParent() && !idx.ParentExists(code) {
		res.Warnings = append(res.Warnings, model.Warning{
			Kind: model.WarnMissingParent, Code: code,
			Message: fmt.Sprintf("parent %s is not present in the report", node.Parent),
		})
	}

	if cls.IsControl(code) {
		res.Error = ErrControlCode
		res.Severity = model.SeverityCritical
		res.Message = fmt.Sprintf("%s is a control total used for reconciliation and cannot be classified", code)
		res.SuggestedAction = "classify the detail or summary accounts below it instead"
		return res
	}

	if cls.Status(code, proposed) != classify.StatusClassified {
		res.Valid = true
		res.Message = fmt.Sprintf("the proposed tag leaves %s %s; it cannot double count", code, cls.Status(code, proposed))
		res.SuggestedAction = "complete tipo, categoria_1 and clasificacion to include the account in reports"
		return res
	}

	amount := decimal.Zero
	if m, ok := idx.Get(code); ok {
		amount = m.Amount
	}

	for _, a := range idx.Ancestors(code) {
		if !st.Classified(a.Code) {
			continue
		}
		impact := amount.Abs()
		res.Error = string(model.OverClassification)
		res.Severity = model.SeverityCritical
		res.FinancialImpact = &impact
		res.ConflictingCodes = []model.AccountCode{a.Code}
		res.Message = fmt.Sprintf("ancestor %s is already classified; classifying %s would count %s twice",
			a.Code, code, impact.StringFixed(2))
		res.SuggestedAction = fmt.Sprintf("remove the classification from %s or leave %s unclassified", a.Code, code)
		return res
	}

	below := nearestClassifiedBelow(idx, st, code)
	if len(below) > 0 {
		impact := decimal.Zero
		names := make([]string, len(below))
		for i, m := range below {
			impact = impact.Add(m.Amount.Abs())
			names[i] = string(m.Code)
			res.ConflictingCodes = append(res.ConflictingCodes, m.Code)
		}
		res.Error = string(model.OverClassification)
		res.Severity = model.SeverityCritical
		res.FinancialImpact = &impact
		res.Message = fmt.Sprintf("%d descendants of %s are already classified (%s); classifying it would count %s twice",
			len(below), code, strings.Join(names, ", "), impact.StringFixed(2))
		res.SuggestedAction = fmt.Sprintf("classify only the detail accounts or clear them and classify %s once", code)
		return res
	}

	res.Valid = true
	res.Message = fmt.Sprintf("%s can be classified without double counting", code)
	res.SuggestedAction = "submit the classification"
	return res
}

// nearestClassifiedBelow returns the classified members under code that have
// no classified member between them and code.
func nearestClassifiedBelow(idx *hierarchy.Index, st classify.Statuses, code model.AccountCode) []*hierarchy.Member {
	var out []*hierarchy.Member
	for _, m := range idx.Members() {
		if !st.Classified(m.Code) || !hierarchy.IsAncestor(code, m.Code) {
			continue
		}
		nearest := true
		for _, a := range idx.Ancestors(m.Code) {
			if a.Code == code {
				break
			}
			if st.Classified(a.Code) {
				nearest = false
				break
			}
		}
		if nearest {
			out = append(out, m)
		}
	}
	return out
}
