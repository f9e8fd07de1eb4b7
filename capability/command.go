package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/job"
)

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("capability: empty command line")

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, stdin []byte, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Command runs an external program per job. The command line is split
// with shell quoting rules and these placeholders are substituted in each
// argument:
//
//	{job_id} {input} {input_type} {request_id} {filename}
//
// The raw job payload is written to the program's stdin. On success the
// program prints either a JSON object {"output_path": "...", "pages": N}
// or a bare output path on stdout. A non-zero exit is classified from
// stderr.
type Command struct {
	name   string
	args   []string
	runner Runner
	logger *slog.Logger
}

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithRunner replaces the process runner.
func WithRunner(r Runner) CommandOption {
	return func(c *Command) { c.runner = r }
}

// WithCommandLogger sets the command logger.
func WithCommandLogger(l *slog.Logger) CommandOption {
	return func(c *Command) { c.logger = l }
}

// NewCommand parses line into a Command.
func NewCommand(line string, opts ...CommandOption) (*Command, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("capability: parse command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	c := &Command{
		name:   argv[0],
		args:   argv[1:],
		runner: execRunner{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Execute implements Capability.
func (c *Command) Execute(ctx context.Context, j *job.Job) (*job.Result, error) {
	r := strings.NewReplacer(
		"{job_id}", j.ID,
		"{input}", j.Spec.Input(),
		"{input_type}", string(j.InputType),
		"{request_id}", j.RequestID,
		"{filename}", j.Name(),
	)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = r.Replace(a)
	}

	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.name, j.Raw, args...)
	dur := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		c.logger.Error("command failed",
			slog.String("job_id", j.ID),
			slog.String("cmd", c.name),
			slog.Int64("duration_ms", dur.Milliseconds()),
			slog.String("stderr", truncate(fault.Scrub(msg), 8<<10)),
		)
		return nil, fmt.Errorf("%s: %s: %w", c.name, msg, err)
	}

	c.logger.Debug("command ok",
		slog.String("job_id", j.ID),
		slog.String("cmd", c.name),
		slog.Int64("duration_ms", dur.Milliseconds()),
		slog.Int("stdout_bytes", len(stdout)),
	)
	return parseOutput(stdout), nil
}

func parseOutput(stdout []byte) *job.Result {
	out := bytes.TrimSpace(stdout)
	res := &job.Result{}
	if len(out) > 0 && out[0] == '{' {
		var v struct {
			OutputPath string `json:"output_path"`
			Pages      int    `json:"pages"`
		}
		if err := json.Unmarshal(out, &v); err == nil {
			res.OutputPath = v.OutputPath
			res.Pages = v.Pages
			return res
		}
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			res.OutputPath = line
			break
		}
	}
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
