package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Ext is the extension of every snapshot file.
const Ext = ".json"

// FileName returns the snapshot file name for a category and version.
func FileName(prefix string, version int) string {
	return fmt.Sprintf("%s_%d%s", prefix, version, Ext)
}

// ParseVersion extracts the version encoded in name for the given prefix.
// name must start with prefix and end with ".json", and the text between the
// last '_' and ".json" must consist of ASCII digits only.
func ParseVersion(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Ext) {
		return 0, false
	}
	stem := strings.TrimSuffix(name, Ext)
	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return 0, false
	}
	digits := stem[i+1:]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		// Out of int range.
		return 0, false
	}
	return n, true
}

// VersionedFile is one snapshot file found by ScanFiles.
type VersionedFile struct {
	Name    string
	Version int
}

// ErrVersionsExhausted is returned when a category already holds the largest
// representable version.
var ErrVersionsExhausted = errors.New("snapshot versions exhausted")

// ScanFiles lists dir and returns every file matching prefix, ordered by
// version. When two files carry the same version the canonical name
// (FileName(prefix, version)) sorts last. A missing directory yields no
// files.
//
// The scan is a full directory listing, O(files in dir), on every call.
func ScanFiles(dir, prefix string) ([]VersionedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var files []VersionedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if v, ok := ParseVersion(e.Name(), prefix); ok {
			files = append(files, VersionedFile{Name: e.Name(), Version: v})
		}
	}
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		ac, bc := a.Name == FileName(prefix, a.Version), b.Name == FileName(prefix, b.Version)
		if ac != bc {
			return bc
		}
		return a.Name < b.Name
	})
	return files, nil
}

// ScanVersions returns, in ascending order, every version ScanFiles finds
// for prefix.
func ScanVersions(dir, prefix string) ([]int, error) {
	files, err := ScanFiles(dir, prefix)
	if err != nil {
		return nil, err
	}
	var versions []int
	for _, f := range files {
		versions = append(versions, f.Version)
	}
	return versions, nil
}

// NextVersionedPath returns the path <dir>/<prefix>_<N>.json where N is one
// greater than the highest version ScanVersions finds, or 1 when there is
// none. It fails with ErrVersionsExhausted rather than wrap around.
//
// Numbering is per (dir, prefix). There is no locking here: two processes
// calling this for the same category at the same time can compute the same
// N, and the later write replaces the earlier one. Callers that may run
// concurrently must hold a run lock (see package lock).
func NextVersionedPath(dir, prefix string) (string, int, error) {
	versions, err := ScanVersions(dir, prefix)
	if err != nil {
		return "", 0, err
	}
	next := 1
	if n := len(versions); n > 0 {
		if versions[n-1] == math.MaxInt {
			return "", 0, fmt.Errorf("%s in %s: %w", prefix, dir, ErrVersionsExhausted)
		}
		next = versions[n-1] + 1
	}
	return filepath.Join(dir, FileName(prefix, next)), next, nil
}
