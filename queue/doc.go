// Package queue resolves the configured queue targets and defines the
// queue store contract.
//
// A [Target] pairs a work queue with its dead-letter queue and a short
// label used in logs and DLQ records. [Resolve] builds the ordered target
// list for a mode:
//
//	single       [{QUEUE_NAME, DLQ_NAME, "single"}]
//	both         [{LOCAL_QUEUE_NAME, LOCAL_DLQ_NAME, "local"},
//	              {CLOUD_QUEUE_NAME, CLOUD_DLQ_NAME, "cloud"}]
//	partitioned  [{OCR_QUEUE_NAME, OCR_DLQ_NAME, "ocr"},
//	              {TRANSCRIPTION_QUEUE_NAME, TRANSCRIPTION_DLQ_NAME, "transcription"}]
//
// The order is the poll order of a multi-key blocking pop, so earlier
// targets win when several queues have work.
//
// A popped payload is always mapped back to its originating target with
// [Targets.ByQueue]; retries go back onto that queue and failures go to
// that target's DLQ.
package queue
