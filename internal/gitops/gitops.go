// Package gitops records repository changes as git commits.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, nil, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Committer commits the working tree of one repository under a fixed identity.
type Committer struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Dirty reports whether the working tree has uncommitted changes.
func (c Committer) Dirty(ctx context.Context) (bool, error) {
	out, err := run(ctx, c.Dir, nil, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages everything and commits it. It returns the short hash, or
// "" when there was nothing to commit.
func (c Committer) CommitAll(ctx context.Context, message string) (string, error) {
	dirty, err := c.Dirty(ctx)
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", nil
	}

	if _, err := run(ctx, c.Dir, nil, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	env := []string{
		"GIT_AUTHOR_NAME=" + c.AuthorName,
		"GIT_AUTHOR_EMAIL=" + c.AuthorEmail,
		"GIT_COMMITTER_NAME=" + c.AuthorName,
		"GIT_COMMITTER_EMAIL=" + c.AuthorEmail,
	}
	if _, err := run(ctx, c.Dir, env, "commit", "--quiet", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	out, err := run(ctx, c.Dir, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func run(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
