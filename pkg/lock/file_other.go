//go:build !unix

package lock

import (
	"context"
	"fmt"
	"runtime"
)

// FileLockSupported reports whether FileLock works on this platform.
const FileLockSupported = false

// TryLock implements Locker. It always fails here.
func (l *FileLock) TryLock(context.Context) (Unlock, error) {
	return nil, fmt.Errorf("%s on %s: %w", l.Path, runtime.GOOS, ErrUnsupported)
}
