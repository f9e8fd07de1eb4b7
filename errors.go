package transcribe

import "errors"

var (
	// Store errors.
	ErrNoStore = errors.New("transcribe: no store configured")

	// Wiring errors.
	ErrNoCapabilities = errors.New("transcribe: no capabilities registered")
	ErrNoTargets      = errors.New("transcribe: no queue targets resolved")

	// Lifecycle errors.
	ErrAlreadyStarted = errors.New("transcribe: worker already started")
)
