// Package service runs validation passes over stored reports and applies
// rule edits on behalf of the HTTP handlers and the CLI.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/acctree/internal/classify"
	"github.com/cleared-dev/acctree/internal/conflicts"
	"github.com/cleared-dev/acctree/internal/engine"
	"github.com/cleared-dev/acctree/internal/gitops"
	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/id"
	"github.com/cleared-dev/acctree/internal/ledger"
	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/observability"
	"github.com/cleared-dev/acctree/internal/rules"
)

// Options configures a Service.
type Options struct {
	Engine engine.Config
	// RepoRoot holds logs/audit-log.csv. Empty disables the audit log.
	RepoRoot string
	// Git commits rule edits when set.
	Git *gitops.Committer
}

// Service orchestrates the engine over a ledger and a rule repository.
type Service struct {
	store   ledger.Store
	rules   rules.Repository
	prop    *rules.Propagator
	opts    Options
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Service.
func New(store ledger.Store, repo rules.Repository, opts Options, metrics *observability.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		rules:   repo,
		prop:    rules.NewPropagator(repo, store),
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HierarchyResult lists the level comparison for every code of a record set.
type HierarchyResult struct {
	ReportID string                 `json:"reportId,omitempty"`
	Accounts []hierarchy.Comparison `json:"accounts"`
	Warnings []model.Warning        `json:"warnings"`
}

// FamiliesResult is the family validation of one report.
type FamiliesResult struct {
	ReportID string                   `json:"reportId"`
	Families []conflicts.FamilyResult `json:"families"`
	Summary  conflicts.Summary        `json:"summary"`
	Warnings []model.Warning          `json:"warnings"`
}

// ReconcileResult is the control-total check of one report.
type ReconcileResult struct {
	ReportID string                   `json:"reportId"`
	Balanced bool                     `json:"balanced"`
	Controls []conflicts.ControlCheck `json:"controls"`
}

// ProposalRequest asks whether a classification may be applied to a code.
type ProposalRequest struct {
	AccountCode            model.AccountCode `json:"accountCode"`
	ProposedClassification *model.Tag        `json:"proposedClassification"`
	ReportID               string            `json:"reportId"`
}

// RecommendRequest asks for a classification suggestion for a code.
type RecommendRequest struct {
	Code     model.AccountCode `json:"codigo"`
	Concept  string            `json:"concepto"`
	ReportID string            `json:"reportId"`
}

// pass runs the engine and records what it found.
func (s *Service) pass(op string, records []model.AccountRecord) *engine.Pass {
	start := time.Now()
	p := engine.NewPass(s.opts.Engine, records)
	s.metrics.RecordPass(op, time.Since(start))
	s.metrics.RecordIssues(p.Issues())
	s.metrics.RecordWarnings(p.Warnings())

	for _, w := range p.Warnings() {
		s.logger.Warn("data quality",
			zap.String("operation", op),
			zap.String("kind", string(w.Kind)),
			zap.String("code", string(w.Code)),
			zap.String("message", w.Message),
		)
	}
	s.logger.Debug("pass complete",
		zap.String("operation", op),
		zap.Int("records", len(records)),
		zap.Int("codes", p.Index().Len()),
		zap.Int("issues", len(p.Issues())),
	)
	return p
}

// load reads a stored report after checking its ID.
func (s *Service) load(ctx context.Context, field, reportID string) ([]model.AccountRecord, error) {
	if strings.TrimSpace(reportID) == "" {
		return nil, &model.ErrValidation{Field: field, Message: "is required"}
	}
	if !id.ValidReportID(reportID) {
		return nil, &model.ErrValidation{Field: field, Message: fmt.Sprintf("invalid report ID %q", reportID)}
	}
	return s.store.ReadReport(ctx, reportID)
}

// Compare resolves ad-hoc records and contrasts the level heuristics.
func (s *Service) Compare(ctx context.Context, records []model.AccountRecord) (HierarchyResult, error) {
	if len(records) == 0 {
		return HierarchyResult{}, &model.ErrValidation{Field: "accounts", Message: "at least one account is required"}
	}
	for i, r := range records {
		if strings.TrimSpace(string(r.Code)) == "" {
			return HierarchyResult{}, &model.ErrValidation{Field: fmt.Sprintf("accounts[%d].codigo", i), Message: "is required"}
		}
	}
	p := s.pass("compare", records)
	return HierarchyResult{Accounts: p.Compare(), Warnings: nonNil(p.Warnings())}, nil
}

// ReportHierarchy is Compare over a stored report.
func (s *Service) ReportHierarchy(ctx context.Context, reportID string) (HierarchyResult, error) {
	records, err := s.load(ctx, "reportId", reportID)
	if err != nil {
		return HierarchyResult{}, err
	}
	p := s.pass("hierarchy", records)
	return HierarchyResult{ReportID: reportID, Accounts: p.Compare(), Warnings: nonNil(p.Warnings())}, nil
}

// ValidateProposal checks a classification against the report it would land in.
func (s *Service) ValidateProposal(ctx context.Context, req ProposalRequest) (conflicts.ProposalResult, error) {
	switch {
	case strings.TrimSpace(string(req.AccountCode)) == "":
		return conflicts.ProposalResult{}, &model.ErrValidation{Field: "accountCode", Message: "is required"}
	case req.ProposedClassification == nil:
		return conflicts.ProposalResult{}, &model.ErrValidation{Field: "proposedClassification", Message: "is required"}
	}
	records, err := s.load(ctx, "reportId", req.ReportID)
	if err != nil {
		return conflicts.ProposalResult{}, err
	}
	p := s.pass("validate", records)
	res := p.CheckProposal(req.AccountCode, *req.ProposedClassification)
	if !res.Valid {
		s.logger.Info("proposal rejected",
			zap.String("report_id", req.ReportID),
			zap.String("code", string(req.AccountCode)),
			zap.String("error", res.Error),
		)
	}
	return res, nil
}

// Recommend suggests a classification for a code from its siblings.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (classify.Recommendation, error) {
	if strings.TrimSpace(string(req.Code)) == "" {
		return classify.Recommendation{}, &model.ErrValidation{Field: "codigo", Message: "is required"}
	}
	records, err := s.load(ctx, "reportId", req.ReportID)
	if err != nil {
		return classify.Recommendation{}, err
	}
	p := s.pass("recommend", records)
	rec := p.Recommend(req.Code, req.Concept)
	s.metrics.IncrRecommendation(rec.Source)
	return rec, nil
}

// Families validates every family of a stored report.
func (s *Service) Families(ctx context.Context, reportID string) (FamiliesResult, error) {
	records, err := s.load(ctx, "reportId", reportID)
	if err != nil {
		return FamiliesResult{}, err
	}
	return s.families(reportID, records), nil
}

func (s *Service) families(reportID string, records []model.AccountRecord) FamiliesResult {
	p := s.pass("families", records)
	fams, sum := p.Families()
	return FamiliesResult{ReportID: reportID, Families: fams, Summary: sum, Warnings: nonNil(p.Warnings())}
}

// BatchFamilies validates several reports concurrently. Results follow the
// order of reportIDs; the first failing read cancels the rest.
func (s *Service) BatchFamilies(ctx context.Context, reportIDs []string) ([]FamiliesResult, error) {
	if len(reportIDs) == 0 {
		return nil, &model.ErrValidation{Field: "reportIds", Message: "at least one report is required"}
	}
	for i, rid := range reportIDs {
		if !id.ValidReportID(rid) {
			return nil, &model.ErrValidation{Field: fmt.Sprintf("reportIds[%d]", i), Message: fmt.Sprintf("invalid report ID %q", rid)}
		}
	}

	out := make([]FamiliesResult, len(reportIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, rid := range reportIDs {
		i, rid := i, rid
		g.Go(func() error {
			records, err := s.store.ReadReport(gctx, rid)
			if err != nil {
				return err
			}
			out[i] = s.families(rid, records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Reconcile compares classified totals against the control codes.
func (s *Service) Reconcile(ctx context.Context, reportID string) (ReconcileResult, error) {
	records, err := s.load(ctx, "reportId", reportID)
	if err != nil {
		return ReconcileResult{}, err
	}
	p := s.pass("reconcile", records)
	checks := p.Reconcile()
	res := ReconcileResult{ReportID: reportID, Balanced: true, Controls: checks}
	for _, c := range checks {
		if !c.Balanced {
			res.Balanced = false
			s.logger.Warn("control total out of balance",
				zap.String("report_id", reportID),
				zap.String("tipo", string(c.Tipo)),
				zap.String("difference", c.Difference.StringFixed(2)),
			)
		}
	}
	return res, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
