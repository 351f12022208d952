// Package lock enforces that only one profilesnap run writes snapshots and
// commits to a repository at a time.
//
// Snapshot version numbers are derived from a directory scan, so two
// overlapping runs could compute the same version and overwrite each other's
// file. Taking a Locker before a run makes that impossible:
//
//   - FileLock: flock(2) on a local file (single host)
//   - RedisLock: SET NX with expiry in Redis (several hosts, one remote)
//   - Nop: no locking
package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("lock is held by another run")

// Unlock releases a lock obtained from TryLock.
type Unlock func(ctx context.Context) error

// Locker acquires an exclusive run lock without blocking.
type Locker interface {
	TryLock(ctx context.Context) (Unlock, error)
	Name() string
}

// Nop never blocks anyone.
type Nop struct{}

func (Nop) TryLock(context.Context) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

func (Nop) Name() string { return "none" }
