// Package job defines the queued job payload and its parsed form.
//
// # Payload
//
// Producers push JSON objects onto a queue:
//
//	{
//	  "job_id":     "ocr-009",
//	  "job_type":   "OCR" | "TRANSCRIPTION",
//	  "input_type": "PDF" | "VIDEO" | "AUDIO",
//	  "local_path": "samples/scan.pdf",
//	  "url":        "https://...",
//	  "source":     "ocr",
//	  "request_id": "req-1",
//	  "metadata":   { ... }
//	}
//
// [Parse] decodes the body, validates it against an embedded JSON Schema,
// and shapes it into a [Job] whose Spec is exactly one of [*OCR] or
// [*Transcription]. PDF input implies OCR; VIDEO and AUDIO imply
// TRANSCRIPTION. Any other combination is rejected as a VALIDATION failure
// and never reaches the router.
//
// The job keeps the raw body verbatim in Raw. Retries and dead-letter
// records always carry Raw, never a re-encoding of the parsed form.
package job
