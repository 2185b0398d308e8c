package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/auditlog"
	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/rules"
)

// ListRules returns the stored rules, optionally only those active now.
func (s *Service) ListRules(ctx context.Context, activeOnly bool) ([]model.ClassificationRule, error) {
	all, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return nonNil(all), nil
	}
	now := s.now()
	out := []model.ClassificationRule{}
	for _, r := range all {
		if r.ActiveAt(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateRule stores the first rule for an account code.
func (s *Service) CreateRule(ctx context.Context, req rules.CreateRequest) (model.ClassificationRule, error) {
	rule, err := s.prop.Create(ctx, req)
	if err != nil {
		return model.ClassificationRule{}, err
	}
	s.logger.Info("rule created",
		zap.String("rule_id", rule.ID),
		zap.String("code", string(rule.AccountCode)),
		zap.String("user", req.UserID),
	)

	s.audit([]auditlog.Entry{{
		Timestamp:   s.now(),
		User:        req.UserID,
		Action:      auditlog.ActionRuleCreated,
		RuleID:      rule.ID,
		AccountCode: string(rule.AccountCode),
		Reason:      req.Reason,
	}})
	s.commit(ctx, fmt.Sprintf("rules: classify %s", rule.AccountCode))
	return rule, nil
}

// UpdateRules applies a batch of rule edits. Retroactive edits rewrite the
// stored records of every report. The result lists the applied changes even
// when err is non-nil.
func (s *Service) UpdateRules(ctx context.Context, req rules.UpdateRequest) (rules.UpdateResult, error) {
	res, err := s.prop.Apply(ctx, req)

	var entries []auditlog.Entry
	for _, c := range res.Changes {
		action := auditlog.ActionRuleSuperseded
		ruleID := c.NewRuleID
		if c.Retroactive {
			action = auditlog.ActionRulePropagated
			ruleID = c.RuleID
			s.metrics.AddPropagated(c.AffectedRecords)
		}
		s.logger.Info("rule updated",
			zap.String("rule_id", ruleID),
			zap.String("code", string(c.AccountCode)),
			zap.Bool("retroactive", c.Retroactive),
			zap.Int("affected_records", c.AffectedRecords),
			zap.Int("affected_reports", c.AffectedReports),
		)
		entries = append(entries, auditlog.Entry{
			Timestamp:       s.now(),
			User:            req.UserID,
			Action:          action,
			RuleID:          ruleID,
			AccountCode:     string(c.AccountCode),
			AffectedRecords: c.AffectedRecords,
			AffectedReports: c.AffectedReports,
			Reason:          c.Reason,
		})
	}

	var pe *model.PropagationError
	if errors.As(err, &pe) {
		s.metrics.IncrPropagationFailure()
		s.logger.Error("propagation rolled back",
			zap.String("code", string(pe.Code)),
			zap.Int("not_updated", len(pe.NotUpdated)),
			zap.Error(pe.Err),
		)
		entries = append(entries, auditlog.Entry{
			Timestamp:       s.now(),
			User:            req.UserID,
			Action:          auditlog.ActionPropagationErr,
			AccountCode:     string(pe.Code),
			AffectedRecords: len(pe.NotUpdated),
			Reason:          pe.Error(),
		})
	}

	s.audit(entries)
	if len(res.Changes) > 0 {
		s.commit(ctx, fmt.Sprintf("rules: %d change(s) by %s", len(res.Changes), req.UserID))
	}
	return res, err
}

// commit records the working tree, audit log included, when git
// integration is on. Failures are logged; the edit itself has already been
// stored.
func (s *Service) commit(ctx context.Context, message string) {
	if s.opts.Git == nil {
		return
	}
	hash, err := s.opts.Git.CommitAll(ctx, message)
	if err != nil {
		s.logger.Error("git commit failed", zap.Error(err))
		return
	}
	if hash != "" {
		s.logger.Info("committed", zap.String("hash", hash), zap.String("message", message))
	}
}

func (s *Service) audit(entries []auditlog.Entry) {
	if s.opts.RepoRoot == "" {
		return
	}
	if err := auditlog.Append(s.opts.RepoRoot, entries); err != nil {
		s.logger.Error("writing audit log", zap.Error(err))
	}
}
