package dlq

import (
	"encoding/json"
	"time"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/id"
)

// SchemaVersion is written into every entry.
const SchemaVersion = "v1"

// Entry is a dead-lettered job.
type Entry struct {
	SchemaVersion string          `json:"schema_version"`
	ID            id.ID           `json:"id"`
	JobID         string          `json:"job_id"`
	RequestID     string          `json:"request_id"`
	JobType       string          `json:"job_type"`
	InputType     string          `json:"input_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Error         string          `json:"error"`
	ErrorCode     string          `json:"error_code"`
	ErrorType     fault.Type      `json:"error_type"`
	ErrorDetail   string          `json:"error_detail,omitempty"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	FailedAt      time.Time       `json:"failed_at"`
	FailedStage   string          `json:"failed_stage"`
	QueueName     string          `json:"queue_name"`
	DLQName       string          `json:"dlq_name"`
	QueueSource   string          `json:"queue_source"`
	WorkerID      string          `json:"worker_id"`
}

// RawPayload embeds body as JSON. Bodies that are not valid JSON are
// embedded as a JSON string so the record always encodes.
func RawPayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(string(body))
	return json.RawMessage(b)
}

// PayloadBytes returns the original body: the raw JSON, or the unquoted
// string for a body that was stored as a JSON string.
func (e *Entry) PayloadBytes() []byte {
	if len(e.Payload) > 0 && e.Payload[0] == '"' {
		var s string
		if err := json.Unmarshal(e.Payload, &s); err == nil {
			return []byte(s)
		}
	}
	return e.Payload
}
