// Package runlock builds the run lock selected by the configuration.
//
// Supported backends:
//
//   - file: flock on a local file. The default path lives under the temp dir
//     and is derived from the repository's top level, so two runs against
//     the same working tree share it while the tree itself stays clean.
//
//   - redis: SET NX with expiry, for several hosts publishing to one remote.
//     The connection is verified with PING before the lock is returned.
//
//   - none: no locking at all.
package runlock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/config"
	"github.com/HatiCode/profilesnap/pkg/lock"
	"github.com/HatiCode/profilesnap/pkg/publish"
)

// New returns the Locker selected by cfg.Lock and a function that releases
// any connection it holds. Unlike a failed TryLock, an error here means the
// backend itself is unusable and the run must not start.
func New(cfg *config.Config, logger *slog.Logger) (lock.Locker, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Lock {
	case config.LockRedis:
		logger.Info("initializing redis run lock",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"key", cfg.RedisKey,
			"ttl", cfg.LockTTL,
		)
		rl, err := lock.NewRedisLock(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey, cfg.LockTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rl.Ping(ctx); err != nil {
			rl.Close()
			return nil, noop, fmt.Errorf("redis health check: %w", err)
		}
		return rl, rl.Close, nil

	case config.LockFile:
		if !lock.FileLockSupported {
			return nil, noop, fmt.Errorf("lock backend %q is not supported on %s, use redis or none", cfg.Lock, runtime.GOOS)
		}
		path := cfg.LockPath
		if path == "" {
			p, err := DefaultPath(cfg.RepoDir)
			if err != nil {
				return nil, noop, err
			}
			path = p
		}
		logger.Debug("using file run lock", "path", path)
		return lock.NewFileLock(path), noop, nil

	case config.LockNone:
		return lock.Nop{}, noop, nil

	default:
		return nil, noop, fmt.Errorf("invalid lock backend %q", cfg.Lock)
	}
}

// DefaultPath returns the lock file used for repoDir when none is configured.
// The key is the working tree's top level with symlinks resolved, so every
// directory of one repository maps to the same lock. Outside a git repository
// the resolved repoDir is used.
func DefaultPath(repoDir string) (string, error) {
	root, err := repoRoot(repoDir)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(os.TempDir(), "profilesnap-"+hex.EncodeToString(sum[:6])+".lock"), nil
}

func repoRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve repo dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if repo, err := publish.Open(ctx, abs, nil); err == nil {
		abs = repo.Dir()
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs), nil
}
