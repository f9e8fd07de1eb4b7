package job

// Result is the normalised outcome of one execution.
type Result struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	DurationSec float64 `json:"duration_sec"`
	OutputPath  string  `json:"output_path,omitempty"`
	Pages       int     `json:"pages,omitempty"`
	Error       string  `json:"error,omitempty"`
}
