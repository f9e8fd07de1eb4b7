package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	transcribe "github.com/arpit-jain-mygit/doc-transcribe-worker"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/queue"
)

// Config holds all process configuration sourced from environment variables.
type Config struct {
	// ── Redis ────────────────────────────────────────────────────────────────
	RedisURL string `env:"REDIS_URL"`

	// ── Queues ───────────────────────────────────────────────────────────────
	QueueMode              string `env:"QUEUE_MODE"               envDefault:"single"`
	QueueName              string `env:"QUEUE_NAME"`
	DLQName                string `env:"DLQ_NAME"`
	LocalQueueName         string `env:"LOCAL_QUEUE_NAME"`
	LocalDLQName           string `env:"LOCAL_DLQ_NAME"`
	CloudQueueName         string `env:"CLOUD_QUEUE_NAME"`
	CloudDLQName           string `env:"CLOUD_DLQ_NAME"`
	OCRQueueName           string `env:"OCR_QUEUE_NAME"`
	OCRDLQName             string `env:"OCR_DLQ_NAME"`
	TranscriptionQueueName string `env:"TRANSCRIPTION_QUEUE_NAME"`
	TranscriptionDLQName   string `env:"TRANSCRIPTION_DLQ_NAME"`

	// ── Worker ───────────────────────────────────────────────────────────────
	WorkerID                 string        `env:"WORKER_ID"`
	Concurrency              int           `env:"WORKER_CONCURRENCY"                envDefault:"4"`
	PopTimeout               time.Duration `env:"WORKER_POP_TIMEOUT"                envDefault:"5s"`
	ShutdownTimeout          time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT"           envDefault:"30s"`
	JobTimeout               time.Duration `env:"WORKER_JOB_TIMEOUT"                envDefault:"0s"`
	MaxInflightOCR           int           `env:"WORKER_MAX_INFLIGHT_OCR"           envDefault:"2"`
	MaxInflightTranscription int           `env:"WORKER_MAX_INFLIGHT_TRANSCRIPTION" envDefault:"2"`
	CancelPollInterval       time.Duration `env:"CANCEL_POLL_INTERVAL"              envDefault:"2s"`
	StatusTTL                time.Duration `env:"STATUS_TTL"                        envDefault:"24h"`

	// ── Retry ────────────────────────────────────────────────────────────────
	RetryBudgetTransient int            `env:"RETRY_BUDGET_TRANSIENT" envDefault:"3"`
	RetryBudgetMedia     int            `env:"RETRY_BUDGET_MEDIA"     envDefault:"1"`
	RetryBudgetDefault   int            `env:"RETRY_BUDGET_DEFAULT"   envDefault:"2"`
	RetryBudgetByType    map[string]int `env:"RETRY_BUDGET_BY_TYPE"`
	RetryBackoffBase     time.Duration  `env:"RETRY_BACKOFF_BASE"     envDefault:"1s"`
	RetryBackoffMax      time.Duration  `env:"RETRY_BACKOFF_MAX"      envDefault:"30s"`

	// ── Capabilities ─────────────────────────────────────────────────────────
	// Command lines of the external engines. A blank command leaves the
	// capability unregistered.
	OCRCommand        string `env:"OCR_COMMAND"`
	TranscribeCommand string `env:"TRANSCRIBE_COMMAND"`

	// ── Admin ────────────────────────────────────────────────────────────────
	// Empty disables the admin HTTP server.
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":8090"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// AuditLog writes one audit record per job lifecycle transition.
	AuditLog bool `env:"AUDIT_LOG" envDefault:"false"`
}

// ValidationError lists every problem found in the environment.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid environment: " + strings.Join(e.Problems, "; ")
}

// Load parses Config from environment variables.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses Config from the given variables, ignoring the process
// environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and resolves the queue targets. All
// problems are reported together.
func (c *Config) Validate() (queue.Targets, error) {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch url := strings.TrimSpace(c.RedisURL); {
	case url == "":
		add("REDIS_URL is required")
	case !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://"):
		add("REDIS_URL must start with redis:// or rediss://")
	}

	var targets queue.Targets
	mode, err := queue.ParseMode(c.QueueMode)
	if err != nil {
		add("QUEUE_MODE must be one of 'single', 'both', 'partitioned'")
	} else {
		targets, err = queue.Resolve(mode, c.queueNames())
		var missing *queue.MissingError
		switch {
		case errors.As(err, &missing):
			for _, k := range missing.Keys {
				add("%s is required", k)
			}
		case err != nil:
			add("%s", err.Error())
		}
	}

	if c.Concurrency < 1 {
		add("WORKER_CONCURRENCY must be >= 1")
	}
	if c.PopTimeout <= 0 {
		add("WORKER_POP_TIMEOUT must be > 0")
	}
	if c.JobTimeout < 0 {
		add("WORKER_JOB_TIMEOUT must be >= 0")
	}
	intRange := func(key string, v, lo, hi int) {
		if v < lo {
			add("%s must be >= %d", key, lo)
		}
		if v > hi {
			add("%s must be <= %d", key, hi)
		}
	}
	intRange("WORKER_MAX_INFLIGHT_OCR", c.MaxInflightOCR, 0, 100)
	intRange("WORKER_MAX_INFLIGHT_TRANSCRIPTION", c.MaxInflightTranscription, 0, 100)
	intRange("RETRY_BUDGET_TRANSIENT", c.RetryBudgetTransient, ledger.MinBudget, ledger.MaxBudget)
	intRange("RETRY_BUDGET_MEDIA", c.RetryBudgetMedia, ledger.MinBudget, ledger.MaxBudget)
	intRange("RETRY_BUDGET_DEFAULT", c.RetryBudgetDefault, ledger.MinBudget, ledger.MaxBudget)
	for k, v := range c.RetryBudgetByType {
		if _, ok := fault.ParseType(k); !ok {
			add("RETRY_BUDGET_BY_TYPE has unknown failure type %q", k)
			continue
		}
		intRange("RETRY_BUDGET_BY_TYPE["+strings.ToUpper(k)+"]", v, ledger.MinBudget, ledger.MaxBudget)
	}
	if c.RetryBackoffBase <= 0 || c.RetryBackoffMax < c.RetryBackoffBase {
		add("RETRY_BACKOFF_BASE must be > 0 and <= RETRY_BACKOFF_MAX")
	}
	if c.StatusTTL <= 0 {
		add("STATUS_TTL must be > 0")
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		add("LOG_FORMAT must be json or text")
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return targets, nil
}

func (c *Config) queueNames() queue.Names {
	return queue.Names{
		Queue:              c.QueueName,
		DLQ:                c.DLQName,
		LocalQueue:         c.LocalQueueName,
		LocalDLQ:           c.LocalDLQName,
		CloudQueue:         c.CloudQueueName,
		CloudDLQ:           c.CloudDLQName,
		OCRQueue:           c.OCRQueueName,
		OCRDLQ:             c.OCRDLQName,
		TranscriptionQueue: c.TranscriptionQueueName,
		TranscriptionDLQ:   c.TranscriptionDLQName,
	}
}

// Worker returns the worker-level configuration.
func (c *Config) Worker() transcribe.Config {
	wc := transcribe.DefaultConfig()
	if c.WorkerID != "" {
		wc.WorkerID = c.WorkerID
	}
	wc.Concurrency = c.Concurrency
	wc.PopTimeout = c.PopTimeout
	wc.ShutdownTimeout = c.ShutdownTimeout
	wc.JobTimeout = c.JobTimeout
	wc.CancelPollInterval = c.CancelPollInterval
	wc.StatusTTL = c.StatusTTL
	wc.MaxInflightOCR = c.MaxInflightOCR
	wc.MaxInflightTranscription = c.MaxInflightTranscription
	wc.RetryBudgetTransient = c.RetryBudgetTransient
	wc.RetryBudgetMedia = c.RetryBudgetMedia
	wc.RetryBudgetDefault = c.RetryBudgetDefault
	wc.RetryBudgetByType = c.RetryBudgetByType
	wc.RetryBackoffBase = c.RetryBackoffBase
	wc.RetryBackoffMax = c.RetryBackoffMax
	return wc
}
