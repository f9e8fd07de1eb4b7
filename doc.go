// Package transcribe is the queue orchestration and reliability core of the
// document transcription worker. It consumes OCR and transcription jobs from
// one or more durable queues, tracks each job's status lifecycle, enforces
// per-category retry budgets, and routes permanently failed work to a
// dead-letter queue without loss.
//
// The execution engines themselves (OCR, speech-to-text) are not part of
// this module. They plug in as capabilities:
//
//	w, err := transcribe.New(
//	    transcribe.WithStore(redisStore),
//	    transcribe.WithConcurrency(4),
//	)
//	eng, err := engine.Build(w,
//	    engine.WithCapability(route.OCR, ocrEngine),
//	    engine.WithCapability(route.Transcription, sttEngine),
//	)
//	eng.Start(ctx)
//
// # Architecture
//
// Each subsystem owns its entity types and its store contract: queue
// (targets, push/pop), status (lifecycle records), ledger (attempt counters
// and budgets), dlq (dead-letter records). A single backend under store/
// implements all of them. The worker package drives the per-job state
// machine:
//
//	IDLE → pop → CLAIMED → DISPATCHED → COMPLETED | RETRY_SCHEDULED | DEAD_LETTERED | CANCELLED → IDLE
//
// Delivery is at-least-once. The backing queue's atomic pop plus the
// PROCESSING status write (the claim) guarantee at most one active
// execution per job id.
package transcribe
