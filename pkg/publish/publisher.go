package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// FinalCommitMessage is used for the catch-all commit made before pushing.
const FinalCommitMessage = "chore: Final commit for remaining changes"

// SnapshotCommitMessage is the per-snapshot commit message.
func SnapshotCommitMessage(label string, version int) string {
	return fmt.Sprintf("feat: Add %s version %d", label, version)
}

// Options control what the Publisher does.
type Options struct {
	Remote    string
	UserName  string
	UserEmail string
	// NoPush commits but never pushes.
	NoPush bool
}

// Result describes what Publish did.
type Result struct {
	Committed bool
	Pushed    bool
	Branch    string
}

// Publisher commits snapshots and pushes them. It makes one attempt at
// every step and never retries. It must not share a repository with another
// concurrent writer.
type Publisher struct {
	repo   *Repository
	opts   Options
	logger *slog.Logger
}

// NewPublisher wraps repo. When both identity fields are set they are
// written to the repository config.
func NewPublisher(ctx context.Context, repo *Repository, opts Options, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.UserName != "" && opts.UserEmail != "" {
		if err := repo.SetIdentity(ctx, opts.UserName, opts.UserEmail); err != nil {
			return nil, fmt.Errorf("set identity: %w", err)
		}
	}
	return &Publisher{repo: repo, opts: opts, logger: logger}, nil
}

// CommitFile commits a single written snapshot file. A relative path is
// taken relative to the process working directory, not the repository.
func (p *Publisher) CommitFile(ctx context.Context, path, label string, version int) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	msg := SnapshotCommitMessage(label, version)
	if err := p.repo.Commit(ctx, msg, path); err != nil {
		return err
	}
	p.logger.Info("committed snapshot", "path", path, "message", msg)
	return nil
}

// Publish commits whatever is left in the working tree, then pushes the
// current branch to the configured remote.
func (p *Publisher) Publish(ctx context.Context) (Result, error) {
	var res Result

	dirty, err := p.repo.HasChanges(ctx)
	if err != nil {
		return res, fmt.Errorf("status: %w", err)
	}
	if dirty {
		if err := p.repo.Commit(ctx, FinalCommitMessage); err != nil {
			return res, fmt.Errorf("final commit: %w", err)
		}
		res.Committed = true
		p.logger.Info("committed remaining changes")
	} else {
		p.logger.Info("no changes to commit")
	}

	if p.opts.NoPush {
		p.logger.Info("push disabled")
		return res, nil
	}

	branch, err := p.repo.CurrentBranch(ctx)
	if err != nil {
		return res, fmt.Errorf("current branch: %w", err)
	}
	res.Branch = branch

	if err := p.repo.Push(ctx, p.opts.Remote, branch); err != nil {
		return res, fmt.Errorf("push: %w", err)
	}
	res.Pushed = true
	p.logger.Info("pushed", "remote", p.opts.Remote, "branch", branch)
	return res, nil
}
