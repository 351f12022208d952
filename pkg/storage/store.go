// Package storage persists fetched profile payloads as immutable, versioned
// snapshot files.
//
// Every snapshot category (for example "codeforces_info") owns an independent
// version counter inside its directory. The counter is not stored anywhere:
// it is recovered on every write by scanning the directory for files named
// <category>_<N>.json and taking the maximum N. See NextVersionedPath.
package storage

import (
	"encoding/json"
	"time"
)

// Snapshot is one captured upstream response together with the metadata the
// store assigns when it is written.
type Snapshot struct {
	Source    string
	Category  string
	Version   int
	Path      string
	WrittenAt time.Time
	Payload   json.RawMessage
}

// Store persists snapshots and reads back the most recent one per category.
type Store interface {
	// Put assigns the next version for s.Category, writes the payload and
	// returns s with Version, Path and WrittenAt filled in.
	Put(s Snapshot) (Snapshot, error)
	GetLatest(category string) (Snapshot, bool, error)
}
