// Package rules stores classification rules and propagates rule edits to
// the ledger.
package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/acctree/internal/model"
)

// RulesFile is the rule store's path relative to the repository root.
const RulesFile = "rules/classification-rules.yaml"

// Repository persists rules by ID.
type Repository interface {
	List(ctx context.Context) ([]model.ClassificationRule, error)
	Get(ctx context.Context, id string) (model.ClassificationRule, error)
	// Save upserts rules by ID in one write.
	Save(ctx context.Context, rules ...model.ClassificationRule) error
}

// ruleDoc is the YAML form of a rule.
type ruleDoc struct {
	ID                    string        `yaml:"id"`
	AccountCode           string        `yaml:"account_code"`
	Tag                   model.TagWire `yaml:"tag"`
	HierarchyLevel        int           `yaml:"hierarchy_level"`
	FamilyCode            string        `yaml:"family_code"`
	EffectiveFrom         time.Time     `yaml:"effective_from"`
	EffectiveTo           *time.Time    `yaml:"effective_to,omitempty"`
	IsActive              bool          `yaml:"is_active"`
	AppliesToReportsCount int           `yaml:"applies_to_reports_count"`
	UpdatedBy             string        `yaml:"updated_by,omitempty"`
	Reason                string        `yaml:"reason,omitempty"`
}

type rulesDoc struct {
	Rules []ruleDoc `yaml:"rules"`
}

func toDoc(r model.ClassificationRule) ruleDoc {
	return ruleDoc{
		ID:                    r.ID,
		AccountCode:           string(r.AccountCode),
		Tag:                   r.Tag.Wire(),
		HierarchyLevel:        r.HierarchyLevel,
		FamilyCode:            r.FamilyCode,
		EffectiveFrom:         r.EffectiveFrom,
		EffectiveTo:           r.EffectiveTo,
		IsActive:              r.IsActive,
		AppliesToReportsCount: r.AppliesToReportsCount,
		UpdatedBy:             r.UpdatedBy,
		Reason:                r.Reason,
	}
}

func (d ruleDoc) rule() model.ClassificationRule {
	return model.ClassificationRule{
		ID:                    d.ID,
		AccountCode:           model.AccountCode(d.AccountCode),
		Tag:                   d.Tag.Tag(),
		HierarchyLevel:        d.HierarchyLevel,
		FamilyCode:            d.FamilyCode,
		EffectiveFrom:         d.EffectiveFrom,
		EffectiveTo:           d.EffectiveTo,
		IsActive:              d.IsActive,
		AppliesToReportsCount: d.AppliesToReportsCount,
		UpdatedBy:             d.UpdatedBy,
		Reason:                d.Reason,
	}
}

// YAMLStore keeps every rule in one YAML file.
type YAMLStore struct {
	path string
	mu   sync.Mutex
}

// NewYAMLStore creates a store for <repoRoot>/rules/classification-rules.yaml.
func NewYAMLStore(repoRoot string) *YAMLStore {
	return &YAMLStore{path: filepath.Join(repoRoot, RulesFile)}
}

// List returns every rule, ordered by account code then effective date.
func (s *YAMLStore) List(ctx context.Context) ([]model.ClassificationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns one rule or *model.ErrNotFound.
func (s *YAMLStore) Get(ctx context.Context, id string) (model.ClassificationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return model.ClassificationRule{}, err
	}
	for _, r := range rules {
		if r.ID == id {
			return r, nil
		}
	}
	return model.ClassificationRule{}, &model.ErrNotFound{Resource: "classification rule", ID: id}
}

// Save upserts rules and rewrites the file through a temp file.
func (s *YAMLStore) Save(ctx context.Context, updated ...model.ClassificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.load()
	if err != nil {
		return err
	}
	pos := make(map[string]int, len(rules))
	for i, r := range rules {
		pos[r.ID] = i
	}
	for _, u := range updated {
		if u.ID == "" {
			return fmt.Errorf("saving rule for %s: missing ID", u.AccountCode)
		}
		if i, ok := pos[u.ID]; ok {
			rules[i] = u
			continue
		}
		pos[u.ID] = len(rules)
		rules = append(rules, u)
	}
	sortRules(rules)

	doc := rulesDoc{Rules: make([]ruleDoc, len(rules))}
	for i, r := range rules {
		doc.Rules[i] = toDoc(r)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing rules: %w", err)
	}
	return nil
}

func (s *YAMLStore) load() ([]model.ClassificationRule, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	rules := make([]model.ClassificationRule, len(doc.Rules))
	for i, d := range doc.Rules {
		rules[i] = d.rule()
	}
	sortRules(rules)
	return rules, nil
}

func sortRules(rules []model.ClassificationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].AccountCode != rules[j].AccountCode {
			return rules[i].AccountCode < rules[j].AccountCode
		}
		return rules[i].EffectiveFrom.Before(rules[j].EffectiveFrom)
	})
}

// Active returns, per account code, the rule governing imports at t. When
// several qualify the latest effective date wins.
func Active(rules []model.ClassificationRule, at time.Time) map[model.AccountCode]model.ClassificationRule {
	out := make(map[model.AccountCode]model.ClassificationRule)
	for _, r := range rules {
		if !r.ActiveAt(at) {
			continue
		}
		if cur, ok := out[r.AccountCode]; ok && !r.EffectiveFrom.After(cur.EffectiveFrom) {
			continue
		}
		out[r.AccountCode] = r
	}
	return out
}
