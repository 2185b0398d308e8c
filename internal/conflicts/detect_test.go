package conflicts

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

var cls = classify.NewClassifier("4100-0000-000-000", "5000-0000-000-000")

// rec builds a record; classified records get a complete tag whose tipo
// follows the leading digit of the code.
func rec(code, amount string, classified bool) model.AccountRecord {
	r := model.AccountRecord{
		ReportID: "2025-03",
		Code:     model.AccountCode(code),
		Concept:  "Cuenta " + code,
		Amount:   decimal.RequireFromString(amount),
	}
	if classified {
		tipo := "Egresos"
		if strings.HasPrefix(code, "4") {
			tipo = "Ingresos"
		}
		r.Tag = model.NewTag(tipo, "Operación", "", "Gasto")
	}
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func detect(records ...model.AccountRecord) (*hierarchy.Index, classify.Statuses, []model.Issue) {
	idx := hierarchy.Build(records)
	st := cls.StatusesOf(idx)
	return idx, st, Detect(idx, st)
}

func TestDetect_EndToEndScenario(t *testing.T) {
	_, _, issues := detect(
		rec("5000-2000-000-000", "-511203.51", true),
		rec("5000-2001-000-000", "304411.69", true),
		rec("5000-2001-000-001", "-165672.00", true),
	)

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, model.OverClassification, is.ErrorType)
	assert.Equal(t, model.SeverityCritical, is.Severity)
	assert.Equal(t, []model.AccountCode{"5000-2001-000-000", "5000-2001-000-001"}, is.AffectedCodes)
	assert.True(t, is.FinancialImpact.Equal(dec("165672.00")), "impact %s", is.FinancialImpact)
	assert.Equal(t, "5000-2001", is.FamilyCode)
}

func TestDetect_OverClassificationAcrossLevels(t *testing.T) {
	_, _, issues := detect(
		rec("5000-3000-000-000", "900", true),
		rec("5000-3000-004-000", "400", false),
		rec("5000-3000-004-001", "-250.50", true),
	)

	require.Len(t, issues, 1, "the pair is reported once, from the deeper side")
	assert.Equal(t, model.OverClassification, issues[0].ErrorType)
	assert.Equal(t, []model.AccountCode{"5000-3000-000-000", "5000-3000-004-001"}, issues[0].AffectedCodes)
	assert.True(t, issues[0].FinancialImpact.Equal(dec("250.50")))
}

func TestDetect_OverClassificationNearestAncestorOnly(t *testing.T) {
	_, _, issues := detect(
		rec("5000-3000-000-000", "900", true),
		rec("5000-3000-004-000", "400", true),
		rec("5000-3000-004-001", "100", true),
	)

	require.Len(t, issues, 2)
	assert.Equal(t, []model.AccountCode{"5000-3000-000-000", "5000-3000-004-000"}, issues[0].AffectedCodes)
	assert.Equal(t, []model.AccountCode{"5000-3000-004-000", "5000-3000-004-001"}, issues[1].AffectedCodes)
}

func TestDetect_MixedLevel4Siblings(t *testing.T) {
	_, _, issues := detect(
		rec("5000-3000-100-000", "60", false),
		rec("5000-3000-100-001", "10", true),
		rec("5000-3000-100-002", "20", false),
		rec("5000-3000-100-003", "-30", false),
		rec("5000-3000-200-001", "1", true),
		rec("5000-3000-200-002", "1", true),
		rec("5000-3000-200-003", "-5", false),
	)

	require.Len(t, issues, 2)

	assert.Equal(t, model.MixedLevel4Siblings, issues[0].ErrorType)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity, "2 of 3 unclassified")
	assert.Equal(t, []model.AccountCode{"5000-3000-100-002", "5000-3000-100-003"}, issues[0].AffectedCodes)
	assert.True(t, issues[0].FinancialImpact.Equal(dec("50")))

	assert.Equal(t, model.MixedLevel4Siblings, issues[1].ErrorType)
	assert.Equal(t, model.SeverityMedium, issues[1].Severity, "1 of 3 unclassified")
	assert.True(t, issues[1].FinancialImpact.Equal(dec("5")))
}

func TestDetect_PartialCountsAsUnclassified(t *testing.T) {
	partial := rec("5000-3000-100-002", "20", false)
	partial.Tag = model.NewTag("Egresos", "Sin Categoría", "", "")

	_, _, issues := detect(
		rec("5000-3000-100-001", "10", true),
		partial,
	)
	require.Len(t, issues, 1)
	assert.Equal(t, model.MixedLevel4Siblings, issues[0].ErrorType)
	assert.Equal(t, model.SeverityMedium, issues[0].Severity, "exactly half is not a majority")
}

func TestDetect_MixedLevel3Siblings(t *testing.T) {
	_, _, issues := detect(
		rec("5000-4000-000-000", "600", false),
		rec("5000-4000-001-000", "100", true),
		rec("5000-4000-002-000", "200", false),
		rec("5000-4000-003-000", "300", false),
		rec("5000-4000-003-001", "300", true),
	)

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, model.MixedLevel3Siblings, is.ErrorType)
	assert.Equal(t, model.SeverityMedium, is.Severity)
	assert.Equal(t, []model.AccountCode{"5000-4000-002-000"}, is.AffectedCodes,
		"003-000 counts as classified through its detail child")
	assert.True(t, is.FinancialImpact.Equal(dec("200")))
}

func TestDetect_SummaryClassificationIsAccepted(t *testing.T) {
	_, _, issues := detect(
		rec("5000-5000-001-000", "30", true),
		rec("5000-5000-001-001", "10", false),
		rec("5000-5000-001-002", "10", false),
		rec("5000-5000-001-003", "10", false),
	)
	assert.Empty(t, issues)
}

func TestDetect_UnderClassification(t *testing.T) {
	_, _, issues := detect(
		rec("4100-0000-000-000", "500", false),
		rec("4100-1000-000-000", "500", false),
		rec("4100-1000-001-000", "-500", false),
		rec("4100-2000-000-000", "0", false),
	)

	require.Len(t, issues, 1, "control-only and zero-total families are not reported")
	is := issues[0]
	assert.Equal(t, model.UnderClassification, is.ErrorType)
	assert.Equal(t, model.SeverityMedium, is.Severity)
	assert.Equal(t, "4100-1000", is.FamilyCode)
	assert.Equal(t, []model.AccountCode{"4100-1000-000-000"}, is.AffectedCodes)
	assert.True(t, is.FinancialImpact.Equal(dec("500")))
}

func TestDetect_UnderClassificationBehindZeroHeaders(t *testing.T) {
	_, _, issues := detect(
		rec("5000-3000-000-000", "0", false),
		rec("5000-3000-001-000", "0", false),
		rec("5000-3000-001-001", "1200.00", false),
		rec("5000-3000-001-002", "-800.00", false),
	)

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, model.UnderClassification, is.ErrorType)
	assert.Equal(t, "5000-3000", is.FamilyCode)
	assert.Equal(t, []model.AccountCode{"5000-3000-001-001", "5000-3000-001-002"}, is.AffectedCodes)
	assert.True(t, is.FinancialImpact.Equal(dec("2000")), is.FinancialImpact.String())
}

func TestDetect_UnderClassificationSeesDescendants(t *testing.T) {
	_, _, issues := detect(
		rec("6000-0000-000-000", "70", false),
		rec("6000-1000-000-000", "70", true),
	)
	assert.Empty(t, issues, "the root family is covered by the classified subtotal below it")
}

func TestDetect_Idempotent(t *testing.T) {
	records := []model.AccountRecord{
		rec("5000-2001-000-000", "304411.69", true),
		rec("5000-2001-000-001", "-165672.00", true),
		rec("5000-3000-100-001", "10", true),
		rec("5000-3000-100-002", "20", false),
		rec("4100-1000-000-000", "500", false),
	}
	idx := hierarchy.Build(records)
	st := cls.StatusesOf(idx)

	first := Detect(idx, st)
	second := Detect(idx, st)
	assert.Equal(t, first, second)

	rebuilt := hierarchy.Build(records)
	assert.Equal(t, first, Detect(rebuilt, cls.StatusesOf(rebuilt)))
}
