package hierarchy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/model"
)

func rec(code, concept, amount string) model.AccountRecord {
	return model.AccountRecord{
		ReportID: "2025-01",
		Code:     model.AccountCode(code),
		Concept:  concept,
		Plant:    "P1",
		Amount:   decimal.RequireFromString(amount),
	}
}

func codes(ms []*Member) []model.AccountCode {
	out := make([]model.AccountCode, len(ms))
	for i, m := range ms {
		out[i] = m.Code
	}
	return out
}

func TestBuild_AggregatesPlants(t *testing.T) {
	a := rec("5000-2001-017-001", "Refacciones", "100.50")
	b := a
	b.Plant = "P2"
	b.Amount = decimal.RequireFromString("-20.25")

	idx := Build([]model.AccountRecord{a, b})
	require.Equal(t, 1, idx.Len())

	m, ok := idx.Get("5000-2001-017-001")
	require.True(t, ok)
	assert.Equal(t, 2, m.Records)
	assert.Equal(t, "80.25", m.Amount.StringFixed(2))
}

func TestBuild_Families(t *testing.T) {
	idx := Build([]model.AccountRecord{
		rec("5000-2001-017-001", "Refacciones", "10"),
		rec("5000-2001-000-000", "Mantenimiento", "30"),
		rec("5000-2002-000-001", "Fletes", "5"),
		rec("5000-2001-017-000", "Planta", "10"),
	})

	fams := idx.Families()
	require.Len(t, fams, 2)
	assert.Equal(t, "5000-2001", fams[0].Code)
	assert.Equal(t, "Mantenimiento", fams[0].Name, "level-2 concept names the family")
	assert.Equal(t,
		[]model.AccountCode{"5000-2001-000-000", "5000-2001-017-000", "5000-2001-017-001"},
		codes(fams[0].Members))

	assert.Equal(t, "5000-2002", fams[1].Code)
	assert.Equal(t, "Fletes", fams[1].Name, "falls back to first member")
}

func TestBuild_FamilyNameFallsBackToLevel1(t *testing.T) {
	idx := Build([]model.AccountRecord{
		rec("4100-0000-001-000", "Ventas planta", "5"),
		rec("4100-0000-000-000", "Ingresos", "5"),
	})
	fam, ok := idx.Family("4100-0000")
	require.True(t, ok)
	assert.Equal(t, "Ingresos", fam.Name)
}

func TestSiblingsAndChildren(t *testing.T) {
	idx := Build([]model.AccountRecord{
		rec("5000-2001-000-000", "", "0"),
		rec("5000-2001-017-000", "", "0"),
		rec("5000-2001-017-001", "", "1"),
		rec("5000-2001-017-002", "", "2"),
		rec("5000-2001-018-000", "", "0"),
		rec("5000-2001-000-001", "", "3"),
	})

	assert.Equal(t,
		[]model.AccountCode{"5000-2001-017-001", "5000-2001-017-002"},
		codes(idx.Siblings("5000-2001-017-001")))
	assert.Equal(t,
		[]model.AccountCode{"5000-2001-017-000", "5000-2001-018-000"},
		codes(idx.Siblings("5000-2001-018-000")))
	assert.Equal(t,
		[]model.AccountCode{"5000-2001-000-001"},
		codes(idx.Siblings("5000-2001-000-001")), "level-4 child of a level-2 node is not a level-3 sibling")

	assert.Len(t, idx.Children("5000-2001-000-000"), 3)
	assert.Len(t, idx.Descendants("5000-2001-000-000"), 5)
}

func TestMissingIntermediateParent(t *testing.T) {
	idx := Build([]model.AccountRecord{
		rec("5000-1000-002-000", "Sin padre", "10"),
		rec("5000-1000-002-001", "Hoja", "10"),
		rec("5000-0000-000-000", "Egresos", "10"),
	})

	assert.False(t, idx.ParentExists("5000-1000-002-000"))
	_, ok := idx.Get("5000-1000-000-000")
	assert.False(t, ok, "missing parent must not be fabricated")

	var missing []model.AccountCode
	for _, w := range idx.Warnings() {
		if w.Kind == model.WarnMissingParent {
			missing = append(missing, w.Code)
		}
	}
	assert.Equal(t, []model.AccountCode{"5000-1000-002-000"}, missing)

	anc := idx.Ancestors("5000-1000-002-000")
	require.Len(t, anc, 1)
	assert.Equal(t, model.AccountCode("5000-0000-000-000"), anc[0].Code)
	assert.Len(t, idx.Descendants("5000-0000-000-000"), 2)
}

func TestBuild_Warnings(t *testing.T) {
	a := rec("5000-2001-017-001", "", "1")
	b := a
	b.Plant = "P2"
	b.Tag = model.NewTag("Egresos", "Operación", "", "Refacciones")
	c := b
	c.Plant = "P3"

	idx := Build([]model.AccountRecord{a, b, c, rec("XX-1", "", "1")})

	kinds := map[model.WarningKind]int{}
	for _, w := range idx.Warnings() {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[model.WarnInconsistentTags])
	assert.Equal(t, 1, kinds[model.WarnMalformedCode])
	m, _ := idx.Get("XX-1")
	assert.Equal(t, 4, m.Level)
}

func TestCompare(t *testing.T) {
	idx := Build([]model.AccountRecord{
		rec("5000-2001-000-000", "Mantenimiento", "1"),
		rec("5000-2001-000-001", "Hoja directa", "1"),
	})
	rows := Compare(idx)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Difference)
	assert.Equal(t, 3, rows[1].OriginalLevel)
	assert.Equal(t, 4, rows[1].ImprovedLevel)
	assert.Equal(t, 1, rows[1].Difference)
	assert.Equal(t, RuleDetail, rows[1].DetectedBy)
	assert.True(t, rows[1].ParentExists)
	assert.False(t, rows[0].ParentExists)
}
