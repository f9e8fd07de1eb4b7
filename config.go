package transcribe

import (
	"os"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/id"
)

// Config holds configuration for the Worker.
type Config struct {
	// WorkerID identifies this process in status records and dead-letter
	// entries. Defaults to the hostname, or a generated wkr_ TypeID when
	// the hostname is unavailable.
	WorkerID string

	// Concurrency is the number of polling goroutines. Each one claims and
	// processes a single job at a time.
	Concurrency int

	// PopTimeout bounds each blocking pop. A timeout is the loop's liveness
	// heartbeat, not an error.
	PopTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight jobs during
	// graceful shutdown before their contexts are cancelled.
	ShutdownTimeout time.Duration

	// JobTimeout bounds a single capability call. Zero means no limit.
	JobTimeout time.Duration

	// CancelPollInterval is how often an in-flight job's cancel flag is
	// re-read while the capability runs. Zero disables in-flight polling;
	// the pre-dispatch check always happens.
	CancelPollInterval time.Duration

	// StatusTTL is how long a status record survives after its last write.
	StatusTTL time.Duration

	// MaxInflightOCR and MaxInflightTranscription cap concurrently executing
	// jobs per capability. Zero means no capability-specific cap.
	MaxInflightOCR           int
	MaxInflightTranscription int

	// Retry budgets per recovery category (maximum total attempts).
	RetryBudgetTransient int
	RetryBudgetMedia     int
	RetryBudgetDefault   int

	// RetryBudgetByType overrides the category budget for a failure type
	// ("IO", "MODEL", "SYSTEM"). VALIDATION is never retried.
	RetryBudgetByType map[string]int

	// RetryBackoffBase and RetryBackoffMax shape the delay before a failed
	// job is re-enqueued.
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerID:                 hostname(),
		Concurrency:              4,
		PopTimeout:               5 * time.Second,
		ShutdownTimeout:          30 * time.Second,
		CancelPollInterval:       2 * time.Second,
		StatusTTL:                24 * time.Hour,
		MaxInflightOCR:           2,
		MaxInflightTranscription: 2,
		RetryBudgetTransient:     3,
		RetryBudgetMedia:         1,
		RetryBudgetDefault:       2,
		RetryBackoffBase:         1 * time.Second,
		RetryBackoffMax:          30 * time.Second,
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return id.NewWorkerID().String()
	}
	return h
}
