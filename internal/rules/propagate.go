package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/acctree/internal/hierarchy"
	"github.com/cleared-dev/acctree/internal/ledger"
	"github.com/cleared-dev/acctree/internal/model"
)

// Change edits one rule.
type Change struct {
	RuleID             string          `json:"ruleId"`
	TagUpdates         model.TagUpdate `json:"tagUpdates"`
	ApplyRetroactively bool            `json:"applyRetroactively"`
	Reason             string          `json:"reason"`
}

// UpdateRequest is a batch of rule edits by one user.
type UpdateRequest struct {
	Changes []Change `json:"changes"`
	UserID  string   `json:"userId"`
}

// Validate checks required fields before any rule is loaded.
func (r UpdateRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return &model.ErrValidation{Field: "userId", Message: "is required"}
	}
	if len(r.Changes) == 0 {
		return &model.ErrValidation{Field: "changes", Message: "at least one change is required"}
	}
	seen := make(map[string]bool, len(r.Changes))
	for i, c := range r.Changes {
		field := fmt.Sprintf("changes[%d]", i)
		switch {
		case strings.TrimSpace(c.RuleID) == "":
			return &model.ErrValidation{Field: field + ".ruleId", Message: "is required"}
		case seen[c.RuleID]:
			return &model.ErrValidation{Field: field + ".ruleId", Message: fmt.Sprintf("rule %s is edited twice", c.RuleID)}
		case c.TagUpdates.Empty():
			return &model.ErrValidation{Field: field + ".tagUpdates", Message: "at least one field must change"}
		case strings.TrimSpace(c.Reason) == "":
			return &model.ErrValidation{Field: field + ".reason", Message: "is required"}
		}
		if c.TagUpdates.Tipo != nil && strings.TrimSpace(*c.TagUpdates.Tipo) != model.SentinelTipo &&
			!model.ParseTipo(*c.TagUpdates.Tipo).IsSet() {
			return &model.ErrValidation{Field: field + ".tagUpdates.tipo", Message: fmt.Sprintf("unknown tipo %q", *c.TagUpdates.Tipo)}
		}
		seen[c.RuleID] = true
	}
	return nil
}

// ChangeResult describes one applied change.
type ChangeResult struct {
	RuleID          string            `json:"ruleId"`
	NewRuleID       string            `json:"newRuleId,omitempty"` // set when a new version superseded the rule
	AccountCode     model.AccountCode `json:"accountCode"`
	Retroactive     bool              `json:"retroactive"`
	Tag             model.Tag         `json:"tag"`
	Reason          string            `json:"reason"`
	AffectedRecords int               `json:"affectedRecords"`
	AffectedReports int               `json:"affectedReports"`
	Updated         []model.RecordRef `json:"updated,omitempty"`
}

// UpdateResult totals the applied changes.
type UpdateResult struct {
	AffectedRecords int            `json:"affectedRecords"`
	AffectedReports int            `json:"affectedReports"`
	Changes         []ChangeResult `json:"changes"`
}

// CreateRequest defines the first rule for an account code.
type CreateRequest struct {
	AccountCode model.AccountCode `json:"accountCode"`
	Tag         model.Tag         `json:"tag"`
	UserID      string            `json:"userId"`
	Reason      string            `json:"reason"`
}

// Propagator applies rule edits, rewriting historical records when asked.
// Edits to the same account code are serialized; different codes proceed
// in parallel.
type Propagator struct {
	rules  Repository
	ledger ledger.Store
	locks  codeLocks

	now   func() time.Time
	newID func() string
}

// NewPropagator creates a Propagator over a rule repository and a ledger.
func NewPropagator(rules Repository, store ledger.Store) *Propagator {
	return &Propagator{
		rules:  rules,
		ledger: store,
		locks:  codeLocks{m: make(map[model.AccountCode]*sync.Mutex)},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Create stores a new active rule. A code may have only one active rule.
func (p *Propagator) Create(ctx context.Context, req CreateRequest) (model.ClassificationRule, error) {
	switch {
	case req.AccountCode == "":
		return model.ClassificationRule{}, &model.ErrValidation{Field: "accountCode", Message: "is required"}
	case strings.TrimSpace(req.UserID) == "":
		return model.ClassificationRule{}, &model.ErrValidation{Field: "userId", Message: "is required"}
	case !req.Tag.Complete():
		return model.ClassificationRule{}, &model.ErrValidation{Field: "tag", Message: "tipo, categoria_1 and clasificacion are required"}
	}
	if _, err := hierarchy.Parse(req.AccountCode); err != nil {
		return model.ClassificationRule{}, &model.ErrValidation{Field: "accountCode", Message: err.Error()}
	}

	unlock := p.locks.lock(req.AccountCode)
	defer unlock()

	existing, err := p.rules.List(ctx)
	if err != nil {
		return model.ClassificationRule{}, err
	}
	now := p.now()
	if cur, ok := Active(existing, now)[req.AccountCode]; ok {
		return model.ClassificationRule{}, &model.ErrValidation{
			Field:   "accountCode",
			Message: fmt.Sprintf("%s already has active rule %s", req.AccountCode, cur.ID),
		}
	}

	node := hierarchy.Resolve(req.AccountCode)
	rule := model.ClassificationRule{
		ID:             p.newID(),
		AccountCode:    req.AccountCode,
		Tag:            req.Tag,
		HierarchyLevel: node.Level,
		FamilyCode:     node.FamilyCode,
		EffectiveFrom:  now,
		IsActive:       true,
		UpdatedBy:      req.UserID,
		Reason:         req.Reason,
	}
	if err := p.rules.Save(ctx, rule); err != nil {
		return model.ClassificationRule{}, fmt.Errorf("saving rule: %w", err)
	}
	return rule, nil
}

// Apply validates req, loads every rule it names and then applies the
// changes concurrently. Each retroactive change is all-or-nothing; the
// result holds the changes that were applied even when another failed.
func (p *Propagator) Apply(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	if err := req.Validate(); err != nil {
		return UpdateResult{}, err
	}

	codes := make(map[string]model.AccountCode, len(req.Changes))
	for i, c := range req.Changes {
		r, err := p.active(ctx, i, c.RuleID)
		if err != nil {
			return UpdateResult{}, err
		}
		codes[c.RuleID] = r.AccountCode
	}

	results := make([]*ChangeResult, len(req.Changes))
	var g errgroup.Group
	for i, c := range req.Changes {
		i, c := i, c
		g.Go(func() error {
			unlock := p.locks.lock(codes[c.RuleID])
			defer unlock()

			// Another edit may have superseded the rule while this one waited.
			cur, err := p.active(ctx, i, c.RuleID)
			if err != nil {
				return err
			}
			var res ChangeResult
			if c.ApplyRetroactively {
				res, err = p.retroactive(ctx, cur, c, req.UserID)
			} else {
				res, err = p.supersede(ctx, cur, c, req.UserID)
			}
			if err != nil {
				return err
			}
			results[i] = &res
			return nil
		})
	}
	err := g.Wait()

	var out UpdateResult
	reports := make(map[string]bool)
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Changes = append(out.Changes, *r)
		out.AffectedRecords += r.AffectedRecords
		for _, ref := range r.Updated {
			reports[ref.ReportID] = true
		}
	}
	out.AffectedReports = len(reports)
	return out, err
}

// active loads the rule edited by change i and rejects superseded versions.
func (p *Propagator) active(ctx context.Context, i int, ruleID string) (model.ClassificationRule, error) {
	r, err := p.rules.Get(ctx, ruleID)
	if err != nil {
		return model.ClassificationRule{}, err
	}
	if !r.IsActive {
		return model.ClassificationRule{}, &model.ErrValidation{
			Field:   fmt.Sprintf("changes[%d].ruleId", i),
			Message: fmt.Sprintf("rule %s is superseded", r.ID),
		}
	}
	return r, nil
}

// supersede closes old and stores a new active version. Historical records
// keep their tags. The caller holds the lock for old's code.
func (p *Propagator) supersede(ctx context.Context, old model.ClassificationRule, c Change, userID string) (ChangeResult, error) {
	now := p.now()

	next := old
	next.ID = p.newID()
	next.Tag = c.TagUpdates.Apply(old.Tag)
	next.EffectiveFrom = now
	next.EffectiveTo = nil
	next.IsActive = true
	next.AppliesToReportsCount = 0
	next.UpdatedBy = userID
	next.Reason = c.Reason

	old.EffectiveTo = &now
	old.IsActive = false

	if err := p.rules.Save(ctx, old, next); err != nil {
		return ChangeResult{}, fmt.Errorf("superseding rule %s: %w", old.ID, err)
	}
	return ChangeResult{
		RuleID:      old.ID,
		NewRuleID:   next.ID,
		AccountCode: old.AccountCode,
		Tag:         next.Tag,
		Reason:      c.Reason,
	}, nil
}

// retroactive updates old in place, then rewrites every record with its
// code. A failed rewrite restores the rule. The caller holds the lock for
// old's code.
func (p *Propagator) retroactive(ctx context.Context, old model.ClassificationRule, c Change, userID string) (ChangeResult, error) {
	next := old
	next.Tag = c.TagUpdates.Apply(old.Tag)
	next.UpdatedBy = userID
	next.Reason = c.Reason
	if err := p.rules.Save(ctx, next); err != nil {
		return ChangeResult{}, fmt.Errorf("updating rule %s: %w", old.ID, err)
	}

	refs, err := p.ledger.ApplyTag(ctx, old.AccountCode, next.Tag)
	if err != nil {
		var pe *model.PropagationError
		if !errors.As(err, &pe) {
			err = &model.PropagationError{Code: old.AccountCode, Err: err}
		}
		if rerr := p.rules.Save(ctx, old); rerr != nil {
			return ChangeResult{}, errors.Join(err, fmt.Errorf("restoring rule %s: %w", old.ID, rerr))
		}
		return ChangeResult{}, err
	}

	next.AppliesToReportsCount = ledger.Reports(refs)
	if err := p.rules.Save(ctx, next); err != nil {
		return ChangeResult{}, fmt.Errorf("recording report count for rule %s: %w", old.ID, err)
	}
	return ChangeResult{
		RuleID:          old.ID,
		AccountCode:     old.AccountCode,
		Retroactive:     true,
		Tag:             next.Tag,
		Reason:          c.Reason,
		AffectedRecords: len(refs),
		AffectedReports: next.AppliesToReportsCount,
		Updated:         refs,
	}, nil
}

// codeLocks hands out one mutex per account code.
type codeLocks struct {
	mu sync.Mutex
	m  map[model.AccountCode]*sync.Mutex
}

func (l *codeLocks) lock(code model.AccountCode) func() {
	l.mu.Lock()
	m, ok := l.m[code]
	if !ok {
		m = &sync.Mutex{}
		l.m[code] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
