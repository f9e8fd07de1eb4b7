package status

import (
	"strconv"
	"time"
)

// Canonical record fields.
const (
	FieldJobID           = "job_id"
	FieldStatus          = "status"
	FieldStage           = "stage"
	FieldProgress        = "progress"
	FieldUpdatedAt       = "updated_at"
	FieldDurationSec     = "duration_sec"
	FieldOutputPath      = "output_path"
	FieldOutputFilename  = "output_filename"
	FieldTotalPages      = "total_pages"
	FieldError           = "error"
	FieldErrorCode       = "error_code"
	FieldJobType         = "job_type"
	FieldInputType       = "input_type"
	FieldRequestID       = "request_id"
	FieldAttempts        = "attempts"
	FieldQueue           = "queue"
	FieldWorkerID        = "worker_id"
	FieldCancelRequested = "cancel_requested"
)

// Record is the decoded status of one job.
type Record struct {
	JobID           string    `json:"job_id"`
	Status          Status    `json:"status"`
	Stage           string    `json:"stage,omitempty"`
	Progress        *int      `json:"progress,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
	DurationSec     *float64  `json:"duration_sec,omitempty"`
	OutputPath      string    `json:"output_path,omitempty"`
	OutputFilename  string    `json:"output_filename,omitempty"`
	TotalPages      *int      `json:"total_pages,omitempty"`
	Error           string    `json:"error,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	InputType       string    `json:"input_type,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	Attempts        int       `json:"attempts,omitempty"`
	Queue           string    `json:"queue,omitempty"`
	WorkerID        string    `json:"worker_id,omitempty"`
	CancelRequested bool      `json:"cancel_requested"`
}

// Decode builds a Record from a stored field map. Malformed numeric
// fields are left unset.
func Decode(jobID string, fields map[string]string) *Record {
	r := &Record{
		JobID:           fields[FieldJobID],
		Status:          Normalize(fields[FieldStatus]),
		Stage:           fields[FieldStage],
		OutputPath:      fields[FieldOutputPath],
		OutputFilename:  fields[FieldOutputFilename],
		Error:           fields[FieldError],
		ErrorCode:       fields[FieldErrorCode],
		JobType:         fields[FieldJobType],
		InputType:       fields[FieldInputType],
		RequestID:       fields[FieldRequestID],
		Queue:           fields[FieldQueue],
		WorkerID:        fields[FieldWorkerID],
		CancelRequested: fields[FieldCancelRequested] == "1",
	}
	if r.JobID == "" {
		r.JobID = jobID
	}
	if v, ok := fields[FieldProgress]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			r.Progress = &n
		}
	}
	if v, ok := fields[FieldTotalPages]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			r.TotalPages = &n
		}
	}
	if v, ok := fields[FieldDurationSec]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.DurationSec = &f
		}
	}
	if v, ok := fields[FieldAttempts]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			r.Attempts = n
		}
	}
	if v, ok := fields[FieldUpdatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			r.UpdatedAt = t
		}
	}
	return r
}

// IsCancelled reports whether the record asks the job to stop.
func (r *Record) IsCancelled() bool {
	return r.CancelRequested || r.Status == Cancelled
}
