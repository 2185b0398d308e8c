package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/acctree/internal/config"
	"github.com/cleared-dev/acctree/internal/gitops"
	"github.com/cleared-dev/acctree/internal/rules"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new acctree project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, dir, name string) error {
	// Create directory structure.
	dirs := []string{
		"reports",
		"rules",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write acctree.yaml.
	cfg := config.Default(name)
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write empty classification rules.
	if err := os.WriteFile(filepath.Join(dir, rules.RulesFile), []byte("rules: []\n"), 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	// Write .gitignore.
	gitignore := "import/processed/\n*.tmp\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Keep the empty directories in git.
	for _, d := range []string{"import", "reports"} {
		if err := os.WriteFile(filepath.Join(dir, d, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	// Initialize git and create initial commit.
	ctx := cmd.Context()
	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}

	committer := gitops.Committer{Dir: dir, AuthorName: cfg.Git.AuthorName, AuthorEmail: cfg.Git.AuthorEmail}
	hash, err := committer.CommitAll(ctx, "init: Initialize "+name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized acctree project at %s (%s)\n", dir, hash)
	return nil
}
