package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/metrics"
	"github.com/HatiCode/profilesnap/pkg/adapters"
	"github.com/HatiCode/profilesnap/pkg/history"
	"github.com/HatiCode/profilesnap/pkg/lock"
	"github.com/HatiCode/profilesnap/pkg/publish"
	"github.com/HatiCode/profilesnap/pkg/storage"
)

// Publisher is the git side of a run.
type Publisher interface {
	CommitFile(ctx context.Context, path, label string, version int) error
	Publish(ctx context.Context) (publish.Result, error)
}

// Recorder keeps the outcome of every fetch.
type Recorder interface {
	Insert(ctx context.Context, e history.Entry) error
}

// Source pairs an adapter with the directory its snapshots go to.
type Source struct {
	Adapter adapters.Adapter
	Store   *storage.FileStore
}

// Report summarizes one run. Ended is set when a failure's policy stopped the
// run before publishing.
type Report struct {
	RunID      string
	Started    time.Time
	Duration   time.Duration
	Saved      []storage.Snapshot
	Skipped    int
	Failed     int
	Publish    publish.Result
	PublishErr error
	Ended      bool
}

// Options configure an Updater. Publisher and Recorder may be nil.
type Options struct {
	Publisher   Publisher
	Recorder    Recorder
	Locker      lock.Locker
	Metrics     *metrics.Metrics
	CommitEach  bool
	SourceDelay time.Duration
	Logger      *slog.Logger
}

// Updater orchestrates a run: for each source and category, fetch → write →
// commit, then one final commit and push.
type Updater struct {
	sources     []Source
	publisher   Publisher
	recorder    Recorder
	locker      lock.Locker
	metrics     *metrics.Metrics
	commitEach  bool
	sourceDelay time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	last      *Report
	observers []func(Report)
}

// NewUpdater creates an Updater over sources, visited in order.
func NewUpdater(sources []Source, opts Options) *Updater {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Locker == nil {
		opts.Locker = lock.Nop{}
	}
	return &Updater{
		sources:     sources,
		publisher:   opts.Publisher,
		recorder:    opts.Recorder,
		locker:      opts.Locker,
		metrics:     opts.Metrics,
		commitEach:  opts.CommitEach,
		sourceDelay: opts.SourceDelay,
		logger:      opts.Logger,
	}
}

// OnReport registers fn to be called after every completed run.
func (u *Updater) OnReport(fn func(Report)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.observers = append(u.observers, fn)
}

// Last returns the most recent completed run.
func (u *Updater) Last() (Report, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.last == nil {
		return Report{}, false
	}
	return *u.last, true
}

// Run executes a run at regular intervals.
// Blocks until context is canceled.
func (u *Updater) Run(ctx context.Context, interval time.Duration) error {
	u.logger.Info("starting snapshot loop", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.tickAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("snapshot loop stopped")
			return ctx.Err()
		case <-ticker.C:
			u.tickAndLog(ctx)
		}
	}
}

func (u *Updater) tickAndLog(ctx context.Context) {
	if _, err := u.Tick(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, lock.ErrLocked) {
			u.logger.Warn("another run holds the lock, skipping this tick")
			return
		}
		u.logger.Error("snapshot run failed", "error", err)
	}
}

// Tick performs one run. It returns an error only when the run could not
// start (lock held or unavailable) or was canceled; every per-category and
// git failure is logged, recorded and reflected in the Report instead.
func (u *Updater) Tick(ctx context.Context) (Report, error) {
	unlock, err := u.locker.TryLock(ctx)
	if err != nil {
		reason := "unavailable"
		if errors.Is(err, lock.ErrLocked) {
			reason = "held"
		}
		u.recordError("lock", reason)
		return Report{}, fmt.Errorf("acquire %s lock: %w", u.locker.Name(), err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			u.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	rep := Report{RunID: uuid.NewString(), Started: time.Now()}
	log := u.logger.With("run_id", rep.RunID)
	log.Info("starting run", "sources", len(u.sources), "commit_each", u.commitEach)

sources:
	for i, src := range u.sources {
		if i > 0 && u.sourceDelay > 0 {
			if err := sleep(ctx, u.sourceDelay); err != nil {
				return rep, err
			}
		}
		for _, cat := range src.Adapter.Categories() {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			if u.handle(ctx, log, src, src.Adapter.Fetch(ctx, cat), &rep) == ActionEndRun {
				log.Warn("ending run early", "source", src.Adapter.Name(), "category", cat.Prefix)
				rep.Ended = true
				break sources
			}
		}
	}

	if u.publisher != nil && !rep.Ended {
		rep.Publish, rep.PublishErr = u.publisher.Publish(ctx)
		if rep.PublishErr != nil {
			log.Error("publish failed", "error", rep.PublishErr, "action", actionFor(FailurePublish))
			u.recordPublish("publish", "error")
			u.recordError("git", "publish")
		} else {
			if rep.Publish.Committed {
				u.recordPublish("final_commit", "ok")
			}
			if rep.Publish.Pushed {
				u.recordPublish("push", "ok")
			}
		}
	}

	rep.Duration = time.Since(rep.Started)
	if u.metrics != nil {
		u.metrics.MarkRun(time.Now())
	}
	log.Info("run complete",
		"saved", len(rep.Saved),
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"pushed", rep.Publish.Pushed,
		"total_ms", rep.Duration.Milliseconds(),
	)

	u.finish(rep)
	return rep, nil
}

// handle persists one fetch result and, when enabled, commits it. It returns
// the policy action for whatever failed, or ActionContinue.
func (u *Updater) handle(ctx context.Context, log *slog.Logger, src Source, res adapters.Result, rep *Report) Action {
	source, cat := src.Adapter.Name(), res.Category
	entry := history.Entry{
		RunID:      rep.RunID,
		Source:     source,
		Category:   cat.Prefix,
		DurationMs: res.Duration.Milliseconds(),
		FetchedAt:  time.Now().UTC(),
	}
	if u.metrics != nil {
		defer func() {
			u.metrics.RecordFetch(source, cat.Prefix, entry.Outcome, res.Duration.Seconds())
		}()
	}

	if res.Err != nil {
		failure := fetchFailure(res.Err)
		action := actionFor(failure)
		log.Warn("fetch failed",
			"source", source,
			"category", cat.Prefix,
			"kind", failure,
			"action", action,
			"error", res.Err,
		)
		rep.Skipped++
		u.recordError("adapter", string(failure))
		entry.Outcome = history.OutcomeSkipped
		entry.ErrorMessage = res.Err.Error()
		u.record(ctx, log, entry)
		return action
	}

	snap, err := src.Store.Put(storage.Snapshot{Category: cat.Prefix, Payload: res.Payload})
	if err != nil {
		action := actionFor(FailureWrite)
		log.Error("failed to write snapshot",
			"source", source,
			"category", cat.Prefix,
			"action", action,
			"error", err,
		)
		rep.Failed++
		u.recordError("storage", string(FailureWrite))
		entry.Outcome = history.OutcomeFailed
		entry.ErrorMessage = err.Error()
		u.record(ctx, log, entry)
		return action
	}

	rep.Saved = append(rep.Saved, snap)
	if u.metrics != nil {
		u.metrics.SetSnapshotVersion(cat.Prefix, snap.Version)
	}
	log.Info("snapshot saved",
		"source", source,
		"category", cat.Prefix,
		"version", snap.Version,
		"path", snap.Path,
		"fetch_ms", res.Duration.Milliseconds(),
	)
	entry.Outcome = history.OutcomeSaved
	entry.Version = snap.Version
	entry.Path = snap.Path
	u.record(ctx, log, entry)

	if !u.commitEach || u.publisher == nil {
		return ActionContinue
	}
	if err := u.publisher.CommitFile(ctx, snap.Path, cat.Label, snap.Version); err != nil {
		action := actionFor(FailureCommit)
		log.Error("failed to commit snapshot",
			"path", snap.Path,
			"action", action,
			"error", err,
		)
		u.recordPublish("commit", "error")
		u.recordError("git", string(FailureCommit))
		return action
	}
	u.recordPublish("commit", "ok")
	return ActionContinue
}

func (u *Updater) record(ctx context.Context, log *slog.Logger, e history.Entry) {
	if u.recorder == nil {
		return
	}
	if err := u.recorder.Insert(ctx, e); err != nil {
		log.Warn("failed to record fetch history", "category", e.Category, "error", err)
		u.recordError("history", "insert")
	}
}

func (u *Updater) recordError(component, reason string) {
	if u.metrics != nil {
		u.metrics.RecordError(component, reason)
	}
}

func (u *Updater) recordPublish(step, status string) {
	if u.metrics != nil {
		u.metrics.RecordPublish(step, status)
	}
}

func (u *Updater) finish(rep Report) {
	u.mu.Lock()
	u.last = &rep
	observers := append([]func(Report){}, u.observers...)
	u.mu.Unlock()

	for _, fn := range observers {
		fn(rep)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
