// Package admission bounds how many jobs of each capability execute at
// once.
//
// Each capability gets an independent weighted semaphore
// (golang.org/x/sync/semaphore), so saturating OCR never delays
// transcription. A capability may also carry a token-bucket rate
// (golang.org/x/time/rate) applied before the semaphore.
//
//	c := admission.New(
//	    admission.Limit{Capability: "ocr", MaxInFlight: 2},
//	    admission.Limit{Capability: "transcription", MaxInFlight: 4, RatePerSec: 1, Burst: 2},
//	)
//	p, err := c.Acquire(ctx, "ocr")
//	if err != nil {
//	    return err // ctx cancelled while waiting
//	}
//	defer p.Release()
//
// A MaxInFlight of zero means the capability is not capped.
package admission
