// Package route decides which capability executes a job and holds the
// capability registry.
//
// Rules, first match wins:
//
//  1. source is "ocr" (any case) or job_type is OCR => ocr
//  2. the input path or filename ends in an image or PDF extension => ocr
//  3. otherwise => transcription
//
// Route is pure: the same job always yields the same capability id.
package route

import (
	"path"
	"strings"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/capability"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

var ocrExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// Route returns the capability id for j.
func Route(j *job.Job) string {
	if strings.EqualFold(strings.TrimSpace(j.Source), "ocr") || j.Type == job.TypeOCR {
		return capability.OCR
	}
	if looksLikeOCRInput(j.Filename) {
		return capability.OCR
	}
	if j.Spec != nil {
		if t, ok := j.Spec.(*job.Transcription); ok && looksLikeOCRInput(t.LocalPath) {
			return capability.OCR
		}
	}
	return capability.Transcription
}

func looksLikeOCRInput(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return ocrExtensions[strings.ToLower(path.Ext(name))]
}
