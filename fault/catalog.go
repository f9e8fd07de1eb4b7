package fault

import (
	"errors"
	"io/fs"
	"strings"
)

// Catalog codes.
const (
	CodeInfraStorage          = "INFRA_STORAGE"
	CodeInfraRedis            = "INFRA_REDIS"
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeMediaDecodeFailed     = "MEDIA_DECODE_FAILED"
	CodeInputNotFound         = "INPUT_NOT_FOUND"
	CodeProcessingFailed      = "PROCESSING_FAILED"
	CodeValidationSchema      = "VALIDATION_SCHEMA"
	CodeValidationUnsupported = "VALIDATION_UNSUPPORTED"
	CodeModelProvider         = "MODEL_PROVIDER_FAILED"
	CodeIOReadFailed          = "IO_READ_FAILED"
)

var messages = map[string]string{
	CodeInfraStorage:          "Storage service connection issue while uploading output. Please retry.",
	CodeInfraRedis:            "Queue/storage connection issue while processing.",
	CodeRateLimitExceeded:     "Service is busy right now. Please retry shortly.",
	CodeMediaDecodeFailed:     "Input media could not be decoded. Please upload a supported file.",
	CodeInputNotFound:         "Input file was not found for processing.",
	CodeProcessingFailed:      "Processing failed due to an internal error.",
	CodeValidationSchema:      "Job payload is malformed.",
	CodeValidationUnsupported: "Job type or input type is not supported.",
	CodeModelProvider:         "The processing engine failed. Please retry.",
	CodeIOReadFailed:          "Input could not be read.",
}

// MessageFor returns the user-facing message for a catalog code.
func MessageFor(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[CodeProcessingFailed]
}

var (
	connectionMarkers = []string{
		"remote end closed connection",
		"remotedisconnected",
		"connection aborted",
		"connection reset",
		"httpsconnectionpool",
		"sslerror",
		"tls handshake",
	}
	storageMarkers = []string{
		"storage.googleapis.com",
		"googleapis.com/storage",
		"gcs",
		"s3",
		"signed_url",
		"upload",
		"download",
		"blob",
		"bucket",
	}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Classify maps a raw error onto a catalog code and user message.
// Order matters: storage connection issues are checked before the generic
// connection markers used for the queue store.
func Classify(err error) (code, message string) {
	if err == nil {
		return "", ""
	}
	low := strings.ToLower(err.Error())

	switch {
	case containsAny(low, connectionMarkers) && containsAny(low, storageMarkers):
		code = CodeInfraStorage
	case strings.Contains(low, "resource exhausted") || strings.Contains(low, "429") || strings.Contains(low, "quota"):
		code = CodeRateLimitExceeded
	case strings.Contains(low, "ffmpeg") || strings.Contains(low, "decoding failed") || strings.Contains(low, "could not decode"):
		code = CodeMediaDecodeFailed
	case errors.Is(err, fs.ErrNotExist) || strings.Contains(low, "no such file"):
		code = CodeInputNotFound
	case strings.Contains(low, "redis") || strings.Contains(low, "connection closed") ||
		strings.Contains(low, "closed by server") || strings.Contains(low, "timeout"):
		code = CodeInfraRedis
	default:
		code = CodeProcessingFailed
	}
	return code, MessageFor(code)
}

// TypeForCode maps a catalog code onto its failure type. A missing input
// file is an IO failure and is retried under the IO budget.
func TypeForCode(code string) Type {
	c := strings.ToUpper(code)
	switch {
	case c == CodeInputNotFound:
		return IO
	case strings.HasPrefix(c, "INPUT_"), strings.HasPrefix(c, "VALIDATION_"):
		return Validation
	case strings.HasPrefix(c, "MEDIA_"), strings.HasPrefix(c, "MODEL_"), strings.HasPrefix(c, "RATE_"):
		return Model
	case strings.HasPrefix(c, "IO_"):
		return IO
	default:
		return System
	}
}
