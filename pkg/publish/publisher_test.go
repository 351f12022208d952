package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// newWorkTree creates a bare remote and a clone-like working tree on branch
// main tracking it.
func newWorkTree(t *testing.T) (work, remote string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	root := t.TempDir()
	remote = filepath.Join(root, "remote.git")
	work = filepath.Join(root, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}

	git(t, root, "init", "--bare", remote)
	git(t, work, "init")
	git(t, work, "symbolic-ref", "HEAD", "refs/heads/main")
	git(t, work, "remote", "add", "origin", remote)
	return work, remote
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPublisher(t *testing.T, work string, opts Options) (*Repository, *Publisher) {
	t.Helper()
	ctx := context.Background()
	repo, err := Open(ctx, work, discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opts.UserName == "" {
		opts.UserName, opts.UserEmail = "Snapshot Bot", "bot@example.com"
	}
	pub, err := NewPublisher(ctx, repo, opts, discard)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return repo, pub
}

func TestOpen_ResolvesTopLevel(t *testing.T) {
	work, _ := newWorkTree(t)
	sub := filepath.Join(work, "data", "codeforces")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	repo, err := Open(context.Background(), sub, discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want, _ := filepath.EvalSymlinks(work)
	got, _ := filepath.EvalSymlinks(repo.Dir())
	if got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	_, err := Open(context.Background(), t.TempDir(), discard)

	var gerr *GitError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GitError, got %v", err)
	}
}

func TestPublisher_CommitFileAndPublish(t *testing.T) {
	work, remote := newWorkTree(t)
	repo, pub := newPublisher(t, work, Options{})
	ctx := context.Background()

	info := filepath.Join(work, "data", "codeforces", "codeforces_info_1.json")
	other := filepath.Join(work, "data", "leetcode", "leetcode_info_1.json")
	writeFile(t, info, "{}\n")
	writeFile(t, other, "{}\n")

	if err := pub.CommitFile(ctx, info, "Codeforces info", 1); err != nil {
		t.Fatalf("CommitFile: %v", err)
	}
	if got := git(t, work, "log", "-1", "--format=%s"); got != "feat: Add Codeforces info version 1" {
		t.Errorf("last commit = %q", got)
	}
	if got := git(t, work, "show", "--name-only", "--format=", "HEAD"); got != "data/codeforces/codeforces_info_1.json" {
		t.Errorf("per-snapshot commit touched %q", got)
	}

	dirty, err := repo.HasChanges(ctx)
	if err != nil || !dirty {
		t.Fatalf("HasChanges = (%v, %v), want true", dirty, err)
	}

	res, err := pub.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Committed || !res.Pushed || res.Branch != "main" {
		t.Errorf("Publish result = %+v", res)
	}
	if got := git(t, remote, "log", "-1", "--format=%s", "main"); got != FinalCommitMessage {
		t.Errorf("remote head = %q, want %q", got, FinalCommitMessage)
	}
	if got := git(t, remote, "log", "-1", "--format=%an <%ae>", "main"); got != "Snapshot Bot <bot@example.com>" {
		t.Errorf("author = %q", got)
	}
}

func TestPublisher_NothingToCommitStillPushes(t *testing.T) {
	work, remote := newWorkTree(t)
	_, pub := newPublisher(t, work, Options{})
	ctx := context.Background()

	path := filepath.Join(work, "codeforces_info_1.json")
	writeFile(t, path, "{}\n")
	if err := pub.CommitFile(ctx, path, "Codeforces info", 1); err != nil {
		t.Fatal(err)
	}

	res, err := pub.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Committed {
		t.Error("expected no final commit on a clean tree")
	}
	if got := git(t, remote, "log", "-1", "--format=%s", "main"); got != "feat: Add Codeforces info version 1" {
		t.Errorf("remote head = %q", got)
	}
}

func TestPublisher_NoPush(t *testing.T) {
	work, remote := newWorkTree(t)
	_, pub := newPublisher(t, work, Options{NoPush: true})

	writeFile(t, filepath.Join(work, "x_1.json"), "{}\n")
	res, err := pub.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Committed || res.Pushed {
		t.Errorf("Publish result = %+v", res)
	}

	cmd := exec.Command("git", "rev-parse", "--verify", "main")
	cmd.Dir = remote
	if err := cmd.Run(); err == nil {
		t.Error("remote should have no main branch")
	}
}

func TestPublisher_PushRejected(t *testing.T) {
	work, remote := newWorkTree(t)
	_, pub := newPublisher(t, work, Options{})
	ctx := context.Background()

	writeFile(t, filepath.Join(work, "x_1.json"), "{}\n")
	if _, err := pub.Publish(ctx); err != nil {
		t.Fatalf("first Publish: %v", err)
	}

	// Another writer pushes a diverging history.
	other := filepath.Join(t.TempDir(), "other")
	git(t, filepath.Dir(other), "clone", "-b", "main", remote, other)
	git(t, other, "-c", "user.name=o", "-c", "user.email=o@example.com", "commit", "--allow-empty", "-m", "other")
	git(t, other, "push", "origin", "main")

	writeFile(t, filepath.Join(work, "x_2.json"), "{}\n")
	res, err := pub.Publish(ctx)
	if err == nil {
		t.Fatal("expected non-fast-forward push to fail")
	}
	if !res.Committed || res.Pushed {
		t.Errorf("Publish result = %+v", res)
	}
	var gerr *GitError
	if !errors.As(err, &gerr) || gerr.Args[0] != "push" {
		t.Errorf("expected push GitError, got %v", err)
	}
}

func TestRepository_CurrentBranchDetached(t *testing.T) {
	work, _ := newWorkTree(t)
	repo, pub := newPublisher(t, work, Options{NoPush: true})
	ctx := context.Background()

	writeFile(t, filepath.Join(work, "x_1.json"), "{}\n")
	if _, err := pub.Publish(ctx); err != nil {
		t.Fatal(err)
	}
	git(t, work, "checkout", "--detach")

	if _, err := repo.CurrentBranch(ctx); err == nil {
		t.Error("expected error on detached HEAD")
	}
}

func TestSnapshotCommitMessage(t *testing.T) {
	if got := SnapshotCommitMessage("LeetCode submissions", 12); got != "feat: Add LeetCode submissions version 12" {
		t.Errorf("got %q", got)
	}
}
