// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/dwsmith1983/autosetup/internal/shell"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String returns the command line of the call.
func (c Call) String() string { return shell.CommandLine(c.Name, c.Args...) }

type response struct {
	res shell.Result
	err error
}

type rule struct {
	prefix    string
	responses []response
	next      int
}

// Fake answers commands by command-line prefix. Rules are tried in
// registration order; each rule replays its responses in order and then
// repeats the last one. Unmatched commands succeed with empty output.
type Fake struct {
	mu    sync.Mutex
	rules []*rule
	calls []Call
	block map[string]bool
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{block: make(map[string]bool)}
}

// On queues a response for commands starting with prefix.
func (f *Fake) On(prefix string, res shell.Result, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.prefix == prefix {
			r.responses = append(r.responses, response{res: res, err: err})
			return f
		}
	}
	f.rules = append(f.rules, &rule{prefix: prefix, responses: []response{{res: res, err: err}}})
	return f
}

// OnOutput queues a successful response with the given stdout.
func (f *Fake) OnOutput(prefix, stdout string) *Fake {
	return f.On(prefix, shell.Result{Stdout: stdout}, nil)
}

// OnFailure queues a non-zero exit with the given code and stderr.
func (f *Fake) OnFailure(prefix string, code int, stderr string) *Fake {
	return f.On(prefix, shell.Result{ExitCode: code, Stderr: stderr},
		&shell.ExitError{Command: strings.Fields(prefix)[0], Code: code, Output: stderr})
}

// Block makes commands starting with prefix wait for context cancellation.
func (f *Fake) Block(prefix string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[prefix] = true
	return f
}

// Run implements shell.Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	line := call.String()

	f.mu.Lock()
	f.calls = append(f.calls, call)
	blocked := false
	for p := range f.block {
		if strings.HasPrefix(line, p) {
			blocked = true
		}
	}
	var resp *response
	if !blocked {
		for _, r := range f.rules {
			if strings.HasPrefix(line, r.prefix) {
				i := r.next
				if i < len(r.responses)-1 {
					r.next++
				}
				resp = &r.responses[i]
				break
			}
		}
	}
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return shell.Result{ExitCode: -1}, ctx.Err()
	}
	if resp == nil {
		return shell.Result{}, nil
	}
	return resp.res, resp.err
}

// Calls returns the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded command lines in order.
func (f *Fake) Lines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.String())
	}
	return out
}
