// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Supported database backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory scoring job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the scoring job deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit and GET /winners?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ScoreRetryAttempts is how many times a worker tries to persist a score.
	ScoreRetryAttempts int `koanf:"score_retry_attempts"`

	// ScoreRetryBackoffMS is the base backoff between persistence attempts.
	ScoreRetryBackoffMS int `koanf:"score_retry_backoff_ms"`

	// SubmissionTimeoutMS bounds how long a results submission waits for its bets.
	SubmissionTimeoutMS int `koanf:"submission_timeout_ms"`

	// DBBackend is one of sqlite, postgres, mysql.
	DBBackend string `koanf:"db_backend"`

	// DBDSN is the driver-specific data source name.
	DBDSN string `koanf:"db_dsn"`

	// AdminToken guards result submission and catalogue writes. Empty disables them.
	AdminToken string `koanf:"admin_token"`

	// MinPredictedPositions is the minimum number of filled positions per bet.
	MinPredictedPositions int `koanf:"min_predicted_positions"`

	// TelegramToken and TelegramChatID enable race-scored notifications.
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID int64  `koanf:"telegram_chat_id"`

	// SeedOnStart loads drivers and races from SeedFile, or the built-in
	// grid when SeedFile is empty, before serving.
	SeedOnStart bool   `koanf:"seed_on_start"`
	SeedFile    string `koanf:"seed_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		DedupeSize:            100_000,
		MaxLeaderboardLimit:   100,
		ScoreRetryAttempts:    3,
		ScoreRetryBackoffMS:   50,
		SubmissionTimeoutMS:   30_000,
		DBBackend:             BackendSQLite,
		DBDSN:                 "file:pitwall.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		MinPredictedPositions: 10,
	}
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
