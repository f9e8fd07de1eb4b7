package job

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "job.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("job: add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("job: compile schema: %w", err)
	}
	return schema, nil
})

type wire struct {
	JobID     string          `json:"job_id"`
	JobType   string          `json:"job_type"`
	InputType string          `json:"input_type"`
	LocalPath string          `json:"local_path"`
	URL       string          `json:"url"`
	Source    string          `json:"source"`
	Filename  string          `json:"filename"`
	RequestID string          `json:"request_id"`
	CreatedAt string          `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Parse decodes and validates a raw queue payload. Every failure is a
// *fault.Error of type VALIDATION; when the payload carried a job_id the
// error's JobID is set so the dead-letter record stays attributable.
func Parse(raw []byte) (*Job, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fault.Invalid(fault.CodeValidationSchema, "payload is not valid JSON")
	}

	jobID := ""
	if m, ok := doc.(map[string]any); ok {
		if s, ok := m["job_id"].(string); ok {
			jobID = s
		}
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, invalid(jobID, fault.CodeValidationSchema, "payload does not match the job schema: %s", schemaReason(err))
	}

	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(jobID, fault.CodeValidationSchema, "payload does not match the job schema")
	}

	j := &Job{
		ID:        w.JobID,
		Type:      Type(strings.ToUpper(strings.TrimSpace(w.JobType))),
		InputType: InputType(strings.ToUpper(strings.TrimSpace(w.InputType))),
		Source:    w.Source,
		Filename:  w.Filename,
		RequestID: w.RequestID,
		CreatedAt: w.CreatedAt,
		Metadata:  w.Metadata,
		Raw:       raw,
	}

	switch j.Type {
	case TypeOCR:
		if j.InputType != InputPDF {
			return nil, invalid(jobID, fault.CodeValidationUnsupported, "OCR jobs require input_type=PDF, got %s", j.InputType)
		}
		if w.LocalPath == "" {
			return nil, invalid(jobID, fault.CodeValidationSchema, "OCR jobs require local_path")
		}
		j.Spec = &OCR{LocalPath: w.LocalPath}
	case TypeTranscription:
		if j.InputType != InputVideo && j.InputType != InputAudio {
			return nil, invalid(jobID, fault.CodeValidationUnsupported, "TRANSCRIPTION jobs require input_type=VIDEO or AUDIO, got %s", j.InputType)
		}
		if w.URL == "" && w.LocalPath == "" {
			return nil, invalid(jobID, fault.CodeValidationSchema, "TRANSCRIPTION jobs require url or local_path")
		}
		j.Spec = &Transcription{URL: w.URL, LocalPath: w.LocalPath}
	default:
		return nil, invalid(jobID, fault.CodeValidationUnsupported, "unsupported job_type %s", j.Type)
	}
	return j, nil
}

func invalid(jobID, code, format string, args ...any) *fault.Error {
	e := fault.Invalid(code, format, args...)
	e.JobID = jobID
	return e
}

// schemaReason returns the innermost validation message, which names the
// offending field.
func schemaReason(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
