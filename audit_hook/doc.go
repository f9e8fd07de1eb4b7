// Package audithook is a worker extension that turns job lifecycle events
// into structured audit events and hands them to a [Recorder].
//
// Claims and completions are info, retries are warnings, dead letters are
// critical. Metadata carries the job type, input type, queue, request id,
// attempt and, for failures, the catalog error code. Raw error text is
// never included; the reason is the user-facing catalog message.
//
// # Logging recorder
//
//	eng, err := engine.Build(w,
//	    engine.WithExtension(audithook.New(audithook.LogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobDeadLettered,
//	        audithook.ActionJobCancelled,
//	    ),
//	)
package audithook
