package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/conflicts"
	"github.com/cleared-dev/acctree/internal/model"
)

func record(code, amount, clasif string) model.AccountRecord {
	r := model.AccountRecord{
		ReportID: "2025-03",
		Code:     model.AccountCode(code),
		Concept:  "Cuenta " + code,
		Amount:   decimal.RequireFromString(amount),
	}
	if clasif != "" {
		r.Tag = model.NewTag("Egresos", "Operación", "", clasif)
	}
	return r
}

func scenario() []model.AccountRecord {
	return []model.AccountRecord{
		record("5000-0000-000-000", "-372463.82", ""),
		record("5000-2000-000-000", "-511203.51", "Gastos generales"),
		record("5000-2001-000-000", "304411.69", "Mantenimiento"),
		record("5000-2001-000-001", "-165672.00", "Mantenimiento"),
		record("5000-3000-017-001", "10", "A"),
		record("5000-3000-017-002", "20", "A"),
		record("5000-3000-017-003", "30", "A"),
		record("5000-3000-017-004", "40", "B"),
		record("5000-3000-017-005", "50", ""),
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.ReconcileEpsilon.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.Classifier().IsControl(DefaultEgresosControl))
	assert.True(t, cfg.Classifier().IsControl(DefaultIngresosControl))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.RecommendThreshold = 0 }},
		{"threshold above one", func(c *Config) { c.RecommendThreshold = 1.2 }},
		{"negative confidence", func(c *Config) { c.RecommendConfidence = -0.1 }},
		{"negative leaf limit", func(c *Config) { c.SummaryLeafLimit = -1 }},
		{"negative epsilon", func(c *Config) { c.ReconcileEpsilon = decimal.NewFromInt(-1) }},
		{"malformed control", func(c *Config) { c.Controls[0].Code = "4100" }},
		{"control without tipo", func(c *Config) { c.Controls[1].Tipo = model.TipoIndefinido }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPass(t *testing.T) {
	p := NewPass(DefaultConfig(), scenario())

	require.Len(t, p.Issues(), 2)
	assert.Equal(t, model.OverClassification, p.Issues()[0].ErrorType)
	assert.Equal(t, model.MixedLevel4Siblings, p.Issues()[1].ErrorType)
	assert.Equal(t, classify.StatusHierarchy, p.Status("5000-0000-000-000"))
	assert.Equal(t, classify.StatusClassified, p.Status("5000-2001-000-001"))

	rec := p.Recommend("5000-3000-017-005", "")
	require.NotNil(t, rec.Classification)
	assert.Equal(t, "A", rec.Classification.Clasificacion.Or(""))

	res := p.CheckProposal("5000-2000-000-001", model.NewTag("Egresos", "Operación", "", "X"))
	assert.False(t, res.Valid)

	families, sum := p.Families()
	assert.Len(t, families, 4)
	assert.Equal(t, 2, sum.PerfectFamilies)

	checks := p.Reconcile()
	require.Len(t, checks, 2)
	assert.True(t, checks[0].Balanced, "nothing is classified as Ingresos")
	assert.False(t, checks[1].Balanced)
	assert.True(t, checks[1].Difference.Equal(decimal.NewFromInt(100)), "difference %s", checks[1].Difference)

	assert.Len(t, p.Compare(), len(scenario()))
	assert.NotEmpty(t, p.Warnings(), "5000-3000-017-000 is missing")
}

func TestPass_IdempotentFamilies(t *testing.T) {
	records := scenario()
	a, sa := NewPass(DefaultConfig(), records).Families()
	b, sb := NewPass(DefaultConfig(), records).Families()
	assert.Equal(t, a, b)
	assert.Equal(t, sa, sb)
}

func TestPass_CustomControls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Controls = []conflicts.Control{{Tipo: model.TipoEgresos, Code: "5000-2000-000-000"}}
	p := NewPass(cfg, scenario())
	assert.Equal(t, classify.StatusHierarchy, p.Status("5000-2000-000-000"))
	assert.Equal(t, classify.StatusUnclassified, p.Status("5000-0000-000-000"))
}
