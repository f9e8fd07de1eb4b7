package redis

// Redis key naming. Queue and DLQ keys are the configured list names
// verbatim so producers and operators share them.

// statusKey returns the hash key of a job's status record.
func statusKey(jobID string) string { return "job_status:" + jobID }

// attemptsKey returns the counter key of a job's attempts.
func attemptsKey(jobID string) string { return "job_attempts:" + jobID }
