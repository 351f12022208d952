// Package publish commits snapshot files to a git working tree and pushes
// them upstream by shelling out to the git CLI.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// GitError is returned when a git invocation exits unsuccessfully.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *GitError) Unwrap() error { return e.Err }

// Repository is a git working tree on disk.
type Repository struct {
	dir    string
	logger *slog.Logger
}

// Open returns the repository containing dir, rooted at its top level.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{dir: dir, logger: logger}
	top, err := r.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	r.dir = strings.TrimSpace(top)
	return r, nil
}

// Dir is the top level of the working tree.
func (r *Repository) Dir() string { return r.dir }

// Command builds a git command that runs inside the working tree.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	return cmd
}

// Run runs git with args and returns its stdout.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	cmd := r.Command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running git", "args", args, "dir", r.dir)
	if err := cmd.Run(); err != nil {
		return stdout.String(), &GitError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

// SetIdentity configures the committer for this repository only.
func (r *Repository) SetIdentity(ctx context.Context, name, email string) error {
	if name == "" || email == "" {
		return errors.New("identity requires both name and email")
	}
	if _, err := r.Run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := r.Run(ctx, "config", "user.email", email)
	return err
}

// HasChanges reports whether the working tree has anything to commit,
// untracked files included.
func (r *Repository) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit stages paths (everything when none are given) and commits them
// with message.
func (r *Repository) Commit(ctx context.Context, message string, paths ...string) error {
	add := []string{"add", "-A"}
	if len(paths) > 0 {
		add = append(append(add, "--"), paths...)
	}
	if _, err := r.Run(ctx, add...); err != nil {
		return err
	}
	commit := []string{"commit", "-m", message}
	if len(paths) > 0 {
		commit = append(append(commit, "--"), paths...)
	}
	_, err := r.Run(ctx, commit...)
	return err
}

// CurrentBranch returns the checked-out branch name.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", errors.New("detached HEAD")
	}
	return branch, nil
}

// Push pushes branch to remote. A non-fast-forward rejection is returned
// like any other failure.
func (r *Repository) Push(ctx context.Context, remote, branch string) error {
	_, err := r.Run(ctx, "push", remote, branch)
	return err
}
