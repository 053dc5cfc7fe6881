// Package shell runs local commands and decodes their console output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns trimmed stdout, or trimmed stderr when stdout is empty.
func (r Result) Output() string {
	if s := strings.TrimSpace(r.Stdout); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stderr)
}

// Runner starts a process and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.Code, e.Output)
}

// Decoder returns the text encoding for a console code page name. UTF-8
// output (and the empty name) needs no decoding and returns nil.
func Decoder(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "cp65001":
		return nil, nil
	case "cp857", "ibm857":
		return charmap.CodePage857, nil
	case "cp850", "ibm850":
		return charmap.CodePage850, nil
	case "cp437", "ibm437":
		return charmap.CodePage437, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported console encoding %q", name)
	}
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	enc    encoding.Encoding
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner decoding output from the named code page.
func NewExecRunner(encodingName string, logger *slog.Logger) (*ExecRunner, error) {
	enc, err := Decoder(encodingName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecRunner{enc: enc, logger: logger}, nil
}

// Run executes name with args. A non-zero exit returns the result together
// with an *ExitError; a cancelled or expired context is wrapped with %w.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   r.decode(stdout.Bytes()),
		Stderr:   r.decode(stderr.Bytes()),
	}
	line := CommandLine(name, args...)
	r.logger.Debug("command finished", "command", line, "exitCode", res.ExitCode, "duration", time.Since(start))

	if runErr == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", line, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, &ExitError{Command: name, Code: exitErr.ExitCode(), Output: firstLine(res.Stderr, res.Stdout)}
	}
	return res, fmt.Errorf("running %s: %w", name, runErr)
}

func (r *ExecRunner) decode(b []byte) string {
	if r.enc == nil || len(b) == 0 {
		return string(b)
	}
	out, err := r.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// CommandLine joins a command and its arguments for logs and details.
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func firstLine(candidates ...string) string {
	for _, c := range candidates {
		for _, l := range strings.Split(c, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				return l
			}
		}
	}
	return ""
}
