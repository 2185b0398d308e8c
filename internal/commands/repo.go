package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/config"
	"github.com/cleared-dev/acctree/internal/gitops"
	"github.com/cleared-dev/acctree/internal/ledger"
	"github.com/cleared-dev/acctree/internal/observability"
	"github.com/cleared-dev/acctree/internal/rules"
	"github.com/cleared-dev/acctree/internal/service"
)

// repo is an opened acctree project.
type repo struct {
	root    string
	cfg     *config.Config
	store   *ledger.FSStore
	rules   *rules.YAMLStore
	git     *gitops.Committer
	metrics *observability.Metrics
	logger  *zap.Logger
	svc     *service.Service
}

// repoRoot resolves the --repo flag.
func repoRoot(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("repo")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// openRepo loads acctree.yaml and wires the service. logLevel overrides the
// configured level when non-empty.
func openRepo(cmd *cobra.Command, logLevel string) (*repo, error) {
	root, err := repoRoot(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("loading %s (run acctree init first): %w", config.FileName, err)
	}
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logLevel = cfg.Server.LogLevel
	}

	r := &repo{
		root:    root,
		cfg:     cfg,
		store:   ledger.NewFSStore(root),
		rules:   rules.NewYAMLStore(root),
		metrics: observability.NewMetrics(),
		logger:  observability.NewLogger(logLevel),
	}
	if cfg.Git.AutoCommit && gitops.IsRepo(root) {
		r.git = &gitops.Committer{Dir: root, AuthorName: cfg.Git.AuthorName, AuthorEmail: cfg.Git.AuthorEmail}
	}
	r.svc = service.New(r.store, r.rules, service.Options{
		Engine:   engineCfg,
		RepoRoot: root,
		Git:      r.git,
	}, r.metrics, r.logger)
	return r, nil
}
