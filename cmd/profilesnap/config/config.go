// Package config implements the profilesnap configuration.
//
// Every setting has a command-line flag and a PROFILESNAP_* environment
// variable. Flags win over the environment, the environment wins over the
// optional YAML file named by --config, and the file wins over the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to the upper-cased flag name to form its environment
// variable, e.g. --codeforces-handle reads PROFILESNAP_CODEFORCES_HANDLE.
const EnvPrefix = "PROFILESNAP_"

// Lock backends.
const (
	LockFile  = "file"
	LockRedis = "redis"
	LockNone  = "none"
)

// Config holds all profilesnap configuration.
type Config struct {
	ConfigFile string

	// Sources
	CodeforcesHandle    string
	CodeforcesURL       string
	CodeforcesDir       string
	LeetCodeUsername    string
	LeetCodeURL         string
	LeetCodeDir         string
	LeetCodeRecentLimit int

	// HTTP
	HTTPTimeout     time.Duration
	RequestInterval time.Duration
	SourceDelay     time.Duration

	// Git
	RepoDir      string
	Remote       string
	GitUserName  string
	GitUserEmail string
	CommitEach   bool
	NoPush       bool
	NoGit        bool

	// Run lock
	Lock          string
	LockPath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	LockTTL       time.Duration

	// History and metrics
	HistoryDB      string
	PushgatewayURL string

	// Watch mode
	Interval   time.Duration
	Listen     string
	GRPCListen string

	LogFormat string
	LogLevel  string
}

// Bind registers every setting on fs and returns the Config the flags write
// into. Environment variables are read here and become the flag defaults.
func Bind(fs *pflag.FlagSet) *Config {
	cfg := &Config{}

	fs.StringVar(&cfg.ConfigFile, "config", getEnv("config", ""), "YAML config file")

	// Sources
	fs.StringVar(&cfg.CodeforcesHandle, "codeforces-handle", getEnv("codeforces-handle", ""), "Codeforces handle to snapshot")
	fs.StringVar(&cfg.CodeforcesURL, "codeforces-url", getEnv("codeforces-url", "https://codeforces.com"), "Codeforces API base URL")
	fs.StringVar(&cfg.CodeforcesDir, "codeforces-dir", getEnv("codeforces-dir", "data/codeforces"), "Directory for Codeforces snapshots")
	fs.StringVar(&cfg.LeetCodeUsername, "leetcode-username", getEnv("leetcode-username", ""), "LeetCode username to snapshot")
	fs.StringVar(&cfg.LeetCodeURL, "leetcode-url", getEnv("leetcode-url", "https://leetcode.com"), "LeetCode base URL")
	fs.StringVar(&cfg.LeetCodeDir, "leetcode-dir", getEnv("leetcode-dir", "data/leetcode"), "Directory for LeetCode snapshots")
	fs.IntVar(&cfg.LeetCodeRecentLimit, "leetcode-recent-limit", getEnvInt("leetcode-recent-limit", 20), "Number of recent accepted LeetCode submissions")

	// HTTP
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", getEnvDuration("http-timeout", 30*time.Second), "Per-request HTTP timeout")
	fs.DurationVar(&cfg.RequestInterval, "request-interval", getEnvDuration("request-interval", 0), "Minimum spacing between two requests to the same source")
	fs.DurationVar(&cfg.SourceDelay, "source-delay", getEnvDuration("source-delay", time.Second), "Pause between the Codeforces and LeetCode fetchers")

	// Git
	fs.StringVar(&cfg.RepoDir, "repo-dir", getEnv("repo-dir", "."), "Git working tree that holds the snapshots")
	fs.StringVar(&cfg.Remote, "remote", getEnv("remote", "origin"), "Git remote to push to")
	fs.StringVar(&cfg.GitUserName, "git-user-name", getEnv("git-user-name", ""), "Commit author name (set with --git-user-email)")
	fs.StringVar(&cfg.GitUserEmail, "git-user-email", getEnv("git-user-email", ""), "Commit author email (set with --git-user-name)")
	fs.BoolVar(&cfg.CommitEach, "commit-each", getEnvBool("commit-each", true), "Commit every snapshot as soon as it is written")
	fs.BoolVar(&cfg.NoPush, "no-push", getEnvBool("no-push", false), "Commit but do not push")
	fs.BoolVar(&cfg.NoGit, "no-git", getEnvBool("no-git", false), "Write snapshots without touching git")

	// Run lock
	fs.StringVar(&cfg.Lock, "lock", getEnv("lock", LockFile), "Run lock backend: file, redis or none")
	fs.StringVar(&cfg.LockPath, "lock-file", getEnv("lock-file", ""), "Lock file path (default: derived from --repo-dir under the temp dir)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("redis-addr", "localhost:6379"), "Redis address for --lock=redis")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("redis-password", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("redis-db", 0), "Redis database number")
	fs.StringVar(&cfg.RedisKey, "redis-key", getEnv("redis-key", "profilesnap:lock"), "Redis lock key")
	fs.DurationVar(&cfg.LockTTL, "lock-ttl", getEnvDuration("lock-ttl", 30*time.Minute), "Redis lock expiry")

	// History and metrics
	fs.StringVar(&cfg.HistoryDB, "history-db", getEnv("history-db", ""), "SQLite file recording every fetch outcome (empty disables)")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", getEnv("pushgateway-url", ""), "Prometheus Pushgateway URL for one-shot runs")

	// Watch mode
	fs.DurationVar(&cfg.Interval, "interval", getEnvDuration("interval", 6*time.Hour), "Snapshot interval in watch mode")
	fs.StringVar(&cfg.Listen, "listen", getEnv("listen", ":8080"), "HTTP listen address in watch mode")
	fs.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("grpc-listen", ":9090"), "gRPC health listen address in watch mode (empty disables)")

	// Logging
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("log-format", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("log-level", "info"), "Log level: debug, info, warn, error")

	return cfg
}

// ApplyFile loads the YAML file at path and sets every flag it names that
// was neither given on the command line nor through the environment. Keys are
// flag names; an unknown key is an error.
func ApplyFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for key, v := range values {
		f := fs.Lookup(key)
		if f == nil {
			return fmt.Errorf("config file %s: unknown setting %q", path, key)
		}
		if f.Changed || os.Getenv(EnvKey(key)) != "" {
			continue
		}
		if err := fs.Set(key, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, key, err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --log-format %q: want text or json", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level %q: want debug, info, warn or error", c.LogLevel)
	}
	switch c.Lock {
	case LockFile, LockNone:
	case LockRedis:
		if c.RedisAddr == "" {
			return errors.New("--redis-addr is required with --lock=redis")
		}
	default:
		return fmt.Errorf("invalid --lock %q: want file, redis or none", c.Lock)
	}
	if c.CodeforcesDir == "" || c.LeetCodeDir == "" {
		return errors.New("--codeforces-dir and --leetcode-dir must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("--http-timeout must be positive")
	}
	if c.RequestInterval < 0 || c.SourceDelay < 0 {
		return errors.New("--request-interval and --source-delay must not be negative")
	}
	if c.LeetCodeRecentLimit <= 0 {
		return errors.New("--leetcode-recent-limit must be positive")
	}
	if (c.GitUserName == "") != (c.GitUserEmail == "") {
		return errors.New("--git-user-name and --git-user-email must be set together")
	}
	return nil
}

// RequireSource reports an error when no profile is configured.
func (c *Config) RequireSource() error {
	if c.CodeforcesHandle == "" && c.LeetCodeUsername == "" {
		return errors.New("at least one of --codeforces-handle and --leetcode-username is required")
	}
	return nil
}

// EnvKey returns the environment variable read for the flag name.
func EnvKey(name string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func getEnv(name, defaultValue string) string {
	if value := os.Getenv(EnvKey(name)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(name string, defaultValue int) int {
	if value := os.Getenv(EnvKey(name)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(name string, defaultValue bool) bool {
	if value := os.Getenv(EnvKey(name)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(name string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvKey(name)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
