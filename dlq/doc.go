// Package dlq defines the dead-letter record, its store contract, and the
// push and replay service.
//
// A job lands in a dead-letter queue when its failure is terminal
// (VALIDATION or permanent) or its retry budget is spent. Each target has
// its own DLQ and a failed job always goes to the DLQ of the target it was
// popped from.
//
// # Record
//
// [Entry] is schema version v1. Fields are only ever added. The payload is
// the job body exactly as it was popped, embedded as raw JSON (or as a
// JSON string when the body was not valid JSON). It is never modified.
//
// # Push
//
// [Service.Push] retries the DLQ write with [backoff.RedisPolicy]. If the
// write still fails the raw payload is pushed back onto its origin queue
// so it is not lost, and the error is returned.
//
// # Replay
//
// [Service.Replay] re-enqueues a dead-lettered payload as a new job: the
// job_id is replaced with a fresh UUID and replay_of records the old id.
// Every other payload field is copied verbatim.
package dlq
