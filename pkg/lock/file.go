package lock

import "errors"

// ErrUnsupported is returned by FileLock.TryLock on platforms without flock.
var ErrUnsupported = errors.New("file lock is not supported on this platform")

// FileLock holds an advisory flock(2) on Path. The lock is tied to the open
// file descriptor, so it disappears if the process dies.
type FileLock struct {
	Path string
}

// NewFileLock returns a lock on path. The file is created when missing.
func NewFileLock(path string) *FileLock {
	return &FileLock{Path: path}
}

func (l *FileLock) Name() string { return "file" }
