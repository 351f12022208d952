package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func parse(t *testing.T, args ...string) (*Config, *pflag.FlagSet) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := Bind(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg, fs
}

func TestConfig_Defaults(t *testing.T) {
	cfg, _ := parse(t)

	if cfg.CodeforcesDir != "data/codeforces" {
		t.Errorf("CodeforcesDir = %q, want %q", cfg.CodeforcesDir, "data/codeforces")
	}
	if cfg.LeetCodeDir != "data/leetcode" {
		t.Errorf("LeetCodeDir = %q, want %q", cfg.LeetCodeDir, "data/leetcode")
	}
	if cfg.SourceDelay != time.Second {
		t.Errorf("SourceDelay = %v, want 1s", cfg.SourceDelay)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if !cfg.CommitEach {
		t.Error("CommitEach should default to true")
	}
	if cfg.Remote != "origin" {
		t.Errorf("Remote = %q, want origin", cfg.Remote)
	}
	if cfg.Lock != LockFile {
		t.Errorf("Lock = %q, want %q", cfg.Lock, LockFile)
	}
	if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
		t.Errorf("log = %s/%s, want text/info", cfg.LogFormat, cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_CustomValues(t *testing.T) {
	cfg, _ := parse(t,
		"--codeforces-handle=tourist",
		"--leetcode-username=alice",
		"--source-delay=250ms",
		"--commit-each=false",
		"--no-push",
		"--log-format=json",
	)

	if cfg.CodeforcesHandle != "tourist" || cfg.LeetCodeUsername != "alice" {
		t.Errorf("handles = %q/%q", cfg.CodeforcesHandle, cfg.LeetCodeUsername)
	}
	if cfg.SourceDelay != 250*time.Millisecond {
		t.Errorf("SourceDelay = %v, want 250ms", cfg.SourceDelay)
	}
	if cfg.CommitEach {
		t.Error("CommitEach should be false")
	}
	if !cfg.NoPush {
		t.Error("NoPush should be true")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestConfig_EnvFallback(t *testing.T) {
	t.Setenv("PROFILESNAP_CODEFORCES_HANDLE", "from-env")
	t.Setenv("PROFILESNAP_HTTP_TIMEOUT", "5s")
	t.Setenv("PROFILESNAP_NO_PUSH", "true")

	cfg, _ := parse(t)
	if cfg.CodeforcesHandle != "from-env" {
		t.Errorf("CodeforcesHandle = %q, want from-env", cfg.CodeforcesHandle)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if !cfg.NoPush {
		t.Error("NoPush should come from the environment")
	}

	cfg, _ = parse(t, "--codeforces-handle=from-flag")
	if cfg.CodeforcesHandle != "from-flag" {
		t.Errorf("flag should win over env, got %q", cfg.CodeforcesHandle)
	}
}

func TestConfig_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("PROFILESNAP_HTTP_TIMEOUT", "soon")
	t.Setenv("PROFILESNAP_REDIS_DB", "x")

	cfg, _ := parse(t)
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want default", cfg.HTTPTimeout)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
}

func TestApplyFile_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profilesnap.yaml")
	content := `codeforces-handle: from-file
leetcode-username: file-user
source-delay: 3s
commit-each: false
leetcode-recent-limit: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROFILESNAP_LEETCODE_USERNAME", "env-user")

	cfg, fs := parse(t, "--codeforces-handle=flag-user")
	if err := ApplyFile(fs, path); err != nil {
		t.Fatalf("ApplyFile() error = %v", err)
	}

	if cfg.CodeforcesHandle != "flag-user" {
		t.Errorf("flag should win over file, got %q", cfg.CodeforcesHandle)
	}
	if cfg.LeetCodeUsername != "env-user" {
		t.Errorf("env should win over file, got %q", cfg.LeetCodeUsername)
	}
	if cfg.SourceDelay != 3*time.Second {
		t.Errorf("SourceDelay = %v, want 3s from file", cfg.SourceDelay)
	}
	if cfg.CommitEach {
		t.Error("CommitEach should be false from file")
	}
	if cfg.LeetCodeRecentLimit != 5 {
		t.Errorf("LeetCodeRecentLimit = %d, want 5", cfg.LeetCodeRecentLimit)
	}
}

func TestApplyFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "colour: blue\n", want: "unknown setting"},
		{name: "bad value", content: "http-timeout: soon\n", want: "http-timeout"},
		{name: "bad yaml", content: "codeforces-handle: [\n", want: "parse config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, fs := parse(t)
			err := ApplyFile(fs, path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ApplyFile() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	_, fs := parse(t)
	if err := ApplyFile(fs, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "defaults", wantErr: false},
		{name: "bad log format", args: []string{"--log-format=xml"}, wantErr: true},
		{name: "bad log level", args: []string{"--log-level=trace"}, wantErr: true},
		{name: "bad lock", args: []string{"--lock=etcd"}, wantErr: true},
		{name: "redis without addr", args: []string{"--lock=redis", "--redis-addr="}, wantErr: true},
		{name: "redis lock", args: []string{"--lock=redis"}, wantErr: false},
		{name: "zero timeout", args: []string{"--http-timeout=0s"}, wantErr: true},
		{name: "negative delay", args: []string{"--source-delay=-1s"}, wantErr: true},
		{name: "empty dir", args: []string{"--codeforces-dir="}, wantErr: true},
		{name: "zero limit", args: []string{"--leetcode-recent-limit=0"}, wantErr: true},
		{name: "name without email", args: []string{"--git-user-name=bot"}, wantErr: true},
		{name: "full identity", args: []string{"--git-user-name=bot", "--git-user-email=bot@example.com"}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := parse(t, tt.args...)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireSource(t *testing.T) {
	cfg, _ := parse(t)
	if err := cfg.RequireSource(); err == nil {
		t.Error("no handles should fail")
	}
	cfg, _ = parse(t, "--leetcode-username=alice")
	if err := cfg.RequireSource(); err != nil {
		t.Errorf("RequireSource() error = %v", err)
	}
}

func TestEnvKey(t *testing.T) {
	if got := EnvKey("codeforces-handle"); got != "PROFILESNAP_CODEFORCES_HANDLE" {
		t.Errorf("EnvKey() = %q", got)
	}
}
