package job

import (
	"encoding/json"
	"path"
	"strings"
)

// Type is the requested processing kind.
type Type string

const (
	// TypeOCR extracts text from a document.
	TypeOCR Type = "OCR"
	// TypeTranscription converts speech in a media file to text.
	TypeTranscription Type = "TRANSCRIPTION"
)

// InputType is the kind of the input artifact.
type InputType string

const (
	InputPDF   InputType = "PDF"
	InputVideo InputType = "VIDEO"
	InputAudio InputType = "AUDIO"
)

// Spec is the type-specific part of a job. It is sealed: the only
// implementations are *OCR and *Transcription.
type Spec interface {
	// Kind returns the job type the spec belongs to.
	Kind() Type
	// Input returns the path or URL of the input artifact.
	Input() string

	sealed()
}

// OCR is the spec of a document OCR job.
type OCR struct {
	LocalPath string
}

// Kind implements Spec.
func (*OCR) Kind() Type { return TypeOCR }

// Input implements Spec.
func (o *OCR) Input() string { return o.LocalPath }

func (*OCR) sealed() {}

// Transcription is the spec of an audio or video transcription job. At
// least one of URL and LocalPath is set; LocalPath wins when both are.
type Transcription struct {
	URL       string
	LocalPath string
}

// Kind implements Spec.
func (*Transcription) Kind() Type { return TypeTranscription }

// Input implements Spec.
func (t *Transcription) Input() string {
	if t.LocalPath != "" {
		return t.LocalPath
	}
	return t.URL
}

func (*Transcription) sealed() {}

// Job is a parsed, validated queue payload.
type Job struct {
	ID        string
	Type      Type
	InputType InputType
	Source    string
	Filename  string
	RequestID string
	CreatedAt string

	// Metadata is passed through verbatim and never interpreted.
	Metadata json.RawMessage

	Spec Spec

	// Raw is the body exactly as it was popped.
	Raw []byte

	// Queue is the queue the job was popped from. Set by the consumer.
	Queue string
}

// Name returns the display name of the input: Filename when set, the base
// of the input path otherwise.
func (j *Job) Name() string {
	if j.Filename != "" {
		return j.Filename
	}
	if j.Spec == nil {
		return ""
	}
	in := j.Spec.Input()
	if i := strings.IndexAny(in, "?#"); i >= 0 {
		in = in[:i]
	}
	return path.Base(in)
}
