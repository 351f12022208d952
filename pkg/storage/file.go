package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the snapshots of one source as flat files in a single
// directory. It is not safe for concurrent writers.
type FileStore struct {
	source string
	dir    string
	now    func() time.Time
}

// NewFileStore returns a store rooted at dir for the named source.
// The directory is created on first write.
func NewFileStore(source, dir string) *FileStore {
	return &FileStore{source: source, dir: dir, now: time.Now}
}

func (s *FileStore) Source() string { return s.source }

func (s *FileStore) Dir() string { return s.dir }

// Put implements Store.
func (s *FileStore) Put(snap Snapshot) (Snapshot, error) {
	if snap.Category == "" {
		return Snapshot{}, fmt.Errorf("put: empty category")
	}
	path, version, err := NextVersionedPath(s.dir, snap.Category)
	if err != nil {
		return Snapshot{}, err
	}
	if err := WriteJSON(path, snap.Payload); err != nil {
		return Snapshot{}, err
	}

	snap.Source = s.source
	snap.Version = version
	snap.Path = path
	snap.WrittenAt = s.now().UTC()
	return snap, nil
}

// GetLatest implements Store. It reads the file the scan found, which may
// carry a longer name sharing the category prefix. The payload is returned
// exactly as stored.
func (s *FileStore) GetLatest(category string) (Snapshot, bool, error) {
	files, err := ScanFiles(s.dir, category)
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(files) == 0 {
		return Snapshot{}, false, nil
	}

	latest := files[len(files)-1]
	version := latest.Version
	path := filepath.Join(s.dir, latest.Name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return Snapshot{}, false, fmt.Errorf("read %s: invalid JSON", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, false, err
	}

	return Snapshot{
		Source:    s.source,
		Category:  category,
		Version:   version,
		Path:      path,
		WrittenAt: info.ModTime().UTC(),
		Payload:   json.RawMessage(data),
	}, true, nil
}

// Summary describes the stored series of one category.
type Summary struct {
	Source   string
	Category string
	Dir      string
	Count    int
	Latest   int
}

// Summarize reports the stored versions of each category.
func (s *FileStore) Summarize(categories ...string) ([]Summary, error) {
	out := make([]Summary, 0, len(categories))
	for _, c := range categories {
		versions, err := ScanVersions(s.dir, c)
		if err != nil {
			return nil, err
		}
		sum := Summary{Source: s.source, Category: c, Dir: s.dir, Count: len(versions)}
		if n := len(versions); n > 0 {
			sum.Latest = versions[n-1]
		}
		out = append(out, sum)
	}
	return out, nil
}
