package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const indent = "    "

// WriteJSON writes v to path as JSON indented with four spaces and a trailing
// newline. Raw JSON ([]byte or json.RawMessage) is re-indented as is, keeping
// the upstream key order; any other value goes through json.MarshalIndent.
//
// The parent directory is created when missing. Data lands in a temporary
// file that is renamed over path, so an existing file is replaced atomically
// and a failed write leaves nothing at path.
func WriteJSON(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Encode renders v exactly as WriteJSON stores it.
func Encode(v any) ([]byte, error) {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	}
	if raw != nil {
		// json.Indent keeps trailing whitespace.
		raw = bytes.TrimRight(raw, " \t\r\n")
	}

	var buf bytes.Buffer
	if raw != nil {
		if err := json.Indent(&buf, raw, "", indent); err != nil {
			return nil, err
		}
	} else {
		data, err := json.MarshalIndent(v, "", indent)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
