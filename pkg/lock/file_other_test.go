//go:build !unix

package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileLock_Unsupported(t *testing.T) {
	_, err := NewFileLock(filepath.Join(t.TempDir(), "run.lock")).TryLock(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("TryLock err = %v, want ErrUnsupported", err)
	}
}
