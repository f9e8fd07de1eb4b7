package status

import (
	"strconv"
	"time"
)

// Patch is a partial status write. Zero-valued fields are not written;
// pointer fields are written whenever they are non-nil, which allows an
// explicit empty value.
type Patch struct {
	Status    Status
	Stage     string
	Progress  *int
	UpdatedAt time.Time

	DurationSec    *float64
	OutputPath     string
	OutputFilename string
	TotalPages     *int
	Error          *string
	ErrorCode      *string

	JobID     string
	JobType   string
	InputType string
	RequestID string
	Attempts  int
	Queue     string
	WorkerID  string

	CancelRequested bool
}

// Fields returns the hash fields the patch writes.
func (p Patch) Fields() map[string]string {
	f := make(map[string]string, 8)
	set := func(k, v string) {
		if v != "" {
			f[k] = v
		}
	}
	set(FieldStatus, string(p.Status))
	set(FieldStage, p.Stage)
	set(FieldOutputPath, p.OutputPath)
	set(FieldOutputFilename, p.OutputFilename)
	set(FieldJobID, p.JobID)
	set(FieldJobType, p.JobType)
	set(FieldInputType, p.InputType)
	set(FieldRequestID, p.RequestID)
	set(FieldQueue, p.Queue)
	set(FieldWorkerID, p.WorkerID)
	if p.Progress != nil {
		f[FieldProgress] = strconv.Itoa(*p.Progress)
	}
	if p.DurationSec != nil {
		f[FieldDurationSec] = strconv.FormatFloat(*p.DurationSec, 'f', 3, 64)
	}
	if p.TotalPages != nil {
		f[FieldTotalPages] = strconv.Itoa(*p.TotalPages)
	}
	if p.Error != nil {
		f[FieldError] = *p.Error
	}
	if p.ErrorCode != nil {
		f[FieldErrorCode] = *p.ErrorCode
	}
	if p.Attempts > 0 {
		f[FieldAttempts] = strconv.Itoa(p.Attempts)
	}
	if !p.UpdatedAt.IsZero() {
		f[FieldUpdatedAt] = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if p.CancelRequested {
		f[FieldCancelRequested] = "1"
	}
	return f
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T { return &v }
