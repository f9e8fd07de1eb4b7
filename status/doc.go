// Package status defines the job status record, its guarded transition
// table, and the status store contract.
//
// A status record is a flat field map, stored as a Redis hash at
// job_status:{job_id}. The canonical fields are listed as Field*
// constants; no alternate names are written.
//
// Every write is a [Patch] checked against the current status:
//
//	none        -> any
//	QUEUED      -> QUEUED, PROCESSING, COMPLETED, FAILED, CANCELLED
//	PROCESSING  -> PROCESSING, COMPLETED, FAILED, CANCELLED
//	COMPLETED   -> COMPLETED (ignored)
//	FAILED      -> FAILED (ignored)
//	CANCELLED   -> CANCELLED (ignored)
//
// A patch without a status (stage, progress, cancel flag) is applied only
// while the record is not terminal. A blocked write returns
// [ErrTransitionBlocked] and leaves the record untouched. The check and
// the write happen atomically in every backend.
//
// [Writer] is the lifecycle writer used by the orchestrator: it stamps
// updated_at, applies the TTL, and logs blocked transitions.
package status
