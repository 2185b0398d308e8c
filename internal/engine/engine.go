// Package engine runs one validation pass over a reporting period's records.
// A Pass is built once from its inputs and never mutated, so passes over
// different record sets can run in parallel.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/conflicts"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/model"
)

// Default control totals.
const (
	DefaultIngresosControl model.AccountCode = "4100-0000-000-000"
	DefaultEgresosControl  model.AccountCode = "5000-0000-000-000"
)

// Config is everything a pass needs beyond the records.
type Config struct {
	RecommendThreshold  float64
	RecommendConfidence float64
	SummaryLeafLimit    int
	ReconcileEpsilon    decimal.Decimal
	Controls            []conflicts.Control
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		RecommendThreshold:  0.60,
		RecommendConfidence: 0.85,
		SummaryLeafLimit:    15,
		ReconcileEpsilon:    decimal.New(1, -2),
		Controls: []conflicts.Control{
			{Tipo: model.TipoIngresos, Code: DefaultIngresosControl},
			{Tipo: model.TipoEgresos, Code: DefaultEgresosControl},
		},
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.RecommendThreshold <= 0 || c.RecommendThreshold > 1:
		return fmt.Errorf("recommend threshold %v must be in (0, 1]", c.RecommendThreshold)
	case c.RecommendConfidence < 0 || c.RecommendConfidence > 1:
		return fmt.Errorf("recommend confidence %v must be in [0, 1]", c.RecommendConfidence)
	case c.SummaryLeafLimit < 0:
		return fmt.Errorf("summary leaf limit %d must not be negative", c.SummaryLeafLimit)
	case c.ReconcileEpsilon.IsNegative():
		return fmt.Errorf("reconcile epsilon %s must not be negative", c.ReconcileEpsilon)
	}
	for _, ctl := range c.Controls {
		if !ctl.Tipo.IsSet() {
			return fmt.Errorf("control %s has no tipo", ctl.Code)
		}
		if _, err := hierarchy.Parse(ctl.Code); err != nil {
			return fmt.Errorf("control for %s: %w", ctl.Tipo, err)
		}
	}
	return nil
}

// Classifier returns the status classifier for the configured controls.
func (c Config) Classifier() classify.Classifier {
	codes := make([]model.AccountCode, len(c.Controls))
	for i, ctl := range c.Controls {
		codes[i] = ctl.Code
	}
	return classify.NewClassifier(codes...)
}

// Pass is the memoized result of indexing, classifying and checking one
// record set.
type Pass struct {
	cfg    Config
	idx    *hierarchy.Index
	cls    classify.Classifier
	st     classify.Statuses
	issues []model.Issue
}

// NewPass indexes records and runs conflict detection.
func NewPass(cfg Config, records []model.AccountRecord) *Pass {
	p := &Pass{cfg: cfg, idx: hierarchy.Build(records), cls: cfg.Classifier()}
	p.st = p.cls.StatusesOf(p.idx)
	p.issues = conflicts.Detect(p.idx, p.st)
	return p
}

// Index exposes the grouping pass.
func (p *Pass) Index() *hierarchy.Index { return p.idx }

// Status returns the classification status of code.
func (p *Pass) Status(code model.AccountCode) classify.Status { return p.st.Of(code) }

// Statuses returns the status of every member.
func (p *Pass) Statuses() classify.Statuses { return p.st }

// Issues returns the conflicts found in the pass.
func (p *Pass) Issues() []model.Issue { return p.issues }

// Warnings returns data-quality findings.
func (p *Pass) Warnings() []model.Warning { return p.idx.Warnings() }

// Compare contrasts the legacy and canonical level heuristics.
func (p *Pass) Compare() []hierarchy.Comparison { return hierarchy.Compare(p.idx) }

// Families summarizes the issues per family.
func (p *Pass) Families() ([]conflicts.FamilyResult, conflicts.Summary) {
	return conflicts.Report(p.idx, p.st, p.issues, conflicts.ReportOptions{SummaryLeafLimit: p.cfg.SummaryLeafLimit})
}

// Recommend proposes a tag for code from its siblings.
func (p *Pass) Recommend(code model.AccountCode, concept string) classify.Recommendation {
	return classify.Recommend(p.idx, p.cls, code, concept, classify.RecommendOptions{
		Threshold:  p.cfg.RecommendThreshold,
		Confidence: p.cfg.RecommendConfidence,
	})
}

// CheckProposal validates a classification before it is submitted.
func (p *Pass) CheckProposal(code model.AccountCode, tag model.Tag) conflicts.ProposalResult {
	return conflicts.CheckProposal(p.idx, p.cls, p.st, code, tag)
}

// Reconcile checks classified totals against the configured controls.
func (p *Pass) Reconcile() []conflicts.ControlCheck {
	return conflicts.Reconcile(p.idx, p.st, p.cfg.Controls, p.cfg.ReconcileEpsilon)
}
