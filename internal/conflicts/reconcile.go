package conflicts

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// Control names the authoritative ledger total for one tipo.
type Control struct {
	Tipo model.Tipo
	Code model.AccountCode
}

// ControlCheck compares a control total with what classification reports.
type ControlCheck struct {
	Tipo            model.Tipo        `json:"tipo"`
	ControlCode     model.AccountCode `json:"controlCode"`
	ControlPresent  bool              `json:"controlPresent"`
	ControlTotal    decimal.Decimal   `json:"controlTotal"`
	ClassifiedTotal decimal.Decimal   `json:"classifiedTotal"`
	Difference      decimal.Decimal   `json:"difference"`
	Balanced        bool              `json:"balanced"`
}

// Reconcile sums the CLASSIFIED members of each control's tipo and checks the
// sum against the control amount within epsilon. A missing control code
// counts as a zero total.
func Reconcile(idx *hierarchy.Index, st classify.Statuses, controls []Control, epsilon decimal.Decimal) []ControlCheck {
	out := make([]ControlCheck, 0, len(controls))
	for _, c := range controls {
		chk := ControlCheck{Tipo: c.Tipo, ControlCode: c.Code, ControlTotal: decimal.Zero, ClassifiedTotal: decimal.Zero}
		if m, ok := idx.Get(c.Code); ok {
			chk.ControlPresent = true
			chk.ControlTotal = m.Amount
		}
		for _, m := range idx.Members() {
			if st.Classified(m.Code) && m.Tag.Tipo == c.Tipo {
				chk.ClassifiedTotal = chk.ClassifiedTotal.Add(m.Amount)
			}
		}
		chk.Difference = chk.ClassifiedTotal.Sub(chk.ControlTotal)
		chk.Balanced = chk.Difference.Abs().LessThanOrEqual(epsilon)
		out = append(out, chk)
	}
	return out
}
