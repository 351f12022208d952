package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteJSON_IndentsRawPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codeforces_info_1.json")

	raw := json.RawMessage(`{"status":"OK","result":[{"handle":"tourist","rating":3800}]}`)
	if err := WriteJSON(path, raw); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
    "status": "OK",
    "result": [
        {
            "handle": "tourist",
            "rating": 3800
        }
    ]
}
`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("file content mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_TrailingWhitespace(t *testing.T) {
	got, err := Encode(json.RawMessage("  {\"status\":\"OK\"}\r\n\n"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "{\n    \"status\": \"OK\"\n}\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}

	// Re-encoding stored output is stable.
	again, err := Encode(json.RawMessage(got))
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != want {
		t.Errorf("re-encode = %q, want %q", again, want)
	}
}

func TestWriteJSON_MarshalsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_1.json")
	if err := WriteJSON(path, map[string]any{"b": 1, "a": []int{2}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, _ := os.ReadFile(path)
	want := "{\n    \"a\": [\n        2\n    ],\n    \"b\": 1\n}\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteJSON_InvalidRawLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x_1.json")

	if err := WriteJSON(path, json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty dir, found %d entries", len(entries))
	}
}

func TestWriteJSON_OverwritesCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_1.json")
	if err := WriteJSON(path, json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(path, json.RawMessage(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if !strings.Contains(string(got), `"v": 2`) {
		t.Errorf("expected second write to win, got %s", got)
	}
}

func TestWriteJSON_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	if err := WriteJSON(filepath.Join(dir, "x_1.json"), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error writing into read-only dir")
	}
}

func TestFileStore_PutIncrements(t *testing.T) {
	store := NewFileStore("codeforces", t.TempDir())

	_, before, err := NextVersionedPath(store.Dir(), "codeforces_info")
	if err != nil {
		t.Fatal(err)
	}

	snap, err := store.Put(Snapshot{Category: "codeforces_info", Payload: json.RawMessage(`{"status":"OK"}`)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if snap.Version != before {
		t.Errorf("Version = %d, want %d", snap.Version, before)
	}
	if snap.Source != "codeforces" {
		t.Errorf("Source = %q, want codeforces", snap.Source)
	}
	if filepath.Base(snap.Path) != "codeforces_info_1.json" {
		t.Errorf("Path = %q", snap.Path)
	}

	_, after, err := NextVersionedPath(store.Dir(), "codeforces_info")
	if err != nil {
		t.Fatal(err)
	}
	if after <= before {
		t.Errorf("next version after write = %d, want > %d", after, before)
	}
}

func TestFileStore_IndependentCategories(t *testing.T) {
	store := NewFileStore("codeforces", t.TempDir())
	payload := json.RawMessage(`{"status":"OK"}`)

	order := []string{
		"codeforces_info",
		"codeforces_submissions",
		"codeforces_submissions",
		"codeforces_info",
		"codeforces_submissions",
		"codeforces_info",
		"codeforces_info",
	}
	got := map[string][]int{}
	for _, c := range order {
		snap, err := store.Put(Snapshot{Category: c, Payload: payload})
		if err != nil {
			t.Fatalf("Put(%s): %v", c, err)
		}
		got[c] = append(got[c], snap.Version)
	}

	want := map[string][]int{
		"codeforces_info":        {1, 2, 3, 4},
		"codeforces_submissions": {1, 2, 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_FailedWriteConsumesNoVersion(t *testing.T) {
	store := NewFileStore("leetcode", t.TempDir())

	if _, err := store.Put(Snapshot{Category: "leetcode_info", Payload: json.RawMessage(`{broken`)}); err == nil {
		t.Fatal("expected error")
	}
	snap, err := store.Put(Snapshot{Category: "leetcode_info", Payload: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 1 {
		t.Errorf("Version = %d, want 1", snap.Version)
	}
}

func TestFileStore_GetLatest(t *testing.T) {
	store := NewFileStore("leetcode", t.TempDir())

	if _, found, err := store.GetLatest("leetcode_info"); err != nil || found {
		t.Fatalf("GetLatest on empty store = (found=%v, err=%v)", found, err)
	}

	for _, body := range []string{`{"n":1}`, `{"n":2}`} {
		if _, err := store.Put(Snapshot{Category: "leetcode_info", Payload: json.RawMessage(body)}); err != nil {
			t.Fatal(err)
		}
	}

	snap, found, err := store.GetLatest("leetcode_info")
	if err != nil || !found {
		t.Fatalf("GetLatest = (found=%v, err=%v)", found, err)
	}
	if snap.Version != 2 {
		t.Errorf("Version = %d, want 2", snap.Version)
	}
	var body struct{ N int }
	if err := json.Unmarshal(snap.Payload, &body); err != nil {
		t.Fatal(err)
	}
	if body.N != 2 {
		t.Errorf("payload n = %d, want 2", body.N)
	}
}

func TestFileStore_GetLatest_PrefixSharingName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "codeforces_info_1.json"), []byte(`{"n":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "codeforces_info_x_9.json"), []byte(`{"n":9}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore("codeforces", dir)

	snap, found, err := store.GetLatest("codeforces_info")
	if err != nil || !found {
		t.Fatalf("GetLatest = (found=%v, err=%v)", found, err)
	}
	if snap.Version != 9 {
		t.Errorf("Version = %d, want 9", snap.Version)
	}
	if want := filepath.Join(dir, "codeforces_info_x_9.json"); snap.Path != want {
		t.Errorf("Path = %q, want %q", snap.Path, want)
	}
	if string(snap.Payload) != `{"n":9}` {
		t.Errorf("Payload = %s", snap.Payload)
	}

	// The next write continues after the highest version seen.
	next, err := store.Put(Snapshot{Category: "codeforces_info", Payload: json.RawMessage(`{"n":10}`)})
	if err != nil {
		t.Fatal(err)
	}
	if next.Version != 10 {
		t.Errorf("Put version = %d, want 10", next.Version)
	}
	latest, _, err := store.GetLatest("codeforces_info")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Path != next.Path {
		t.Errorf("GetLatest path = %q, want %q", latest.Path, next.Path)
	}
}

func TestFileStore_GetLatest_PrefersCanonicalName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "leetcode_info_3.json", "leetcode_info_old_3.json")

	snap, found, err := NewFileStore("leetcode", dir).GetLatest("leetcode_info")
	if err != nil || !found {
		t.Fatalf("GetLatest = (found=%v, err=%v)", found, err)
	}
	if filepath.Base(snap.Path) != "leetcode_info_3.json" {
		t.Errorf("Path = %q, want leetcode_info_3.json", snap.Path)
	}
}

func TestFileStore_Summarize(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "leetcode_info_1.json", "leetcode_info_4.json", "leetcode_recent_submissions_2.json")
	store := NewFileStore("leetcode", dir)

	got, err := store.Summarize("leetcode_info", "leetcode_recent_submissions", "leetcode_contest")
	if err != nil {
		t.Fatal(err)
	}
	want := []Summary{
		{Source: "leetcode", Category: "leetcode_info", Dir: dir, Count: 2, Latest: 4},
		{Source: "leetcode", Category: "leetcode_recent_submissions", Dir: dir, Count: 1, Latest: 2},
		{Source: "leetcode", Category: "leetcode_contest", Dir: dir, Count: 0, Latest: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}
