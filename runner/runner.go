// Package runner executes extracted code files, either locally
// through an interpreter or by handing them to a remote execution
// service over HTTP.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/stevegt/decant/core"
	"github.com/stevegt/envi"
)

// ExecRequest asks for one file to be run.
type ExecRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin,omitempty"`
}

// ExecResponse reports what happened.  Success is false for any
// failure the code itself caused; transport and infrastructure
// failures surface as errors instead.
type ExecResponse struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output,omitempty"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"executionTime,omitempty"`
}

// Runner executes code.
type Runner interface {
	Exec(ctx context.Context, req ExecRequest) (ExecResponse, error)
}

// FromEnv returns the runner selected by the DECANT_RUNNER environment
// variable: a URL selects the HTTP runner, empty or "local" selects
// the local one.
func FromEnv() Runner {
	val := envi.String("DECANT_RUNNER", "")
	if val == "" || val == "local" {
		return NewLocalRunner()
	}
	return NewHTTPRunner(val)
}

// LocalRunner runs code with an interpreter on this machine.
type LocalRunner struct {
	// Interpreters maps a language to the command line that runs a
	// file of that language.  The filename gets appended as the last
	// argument.
	Interpreters map[string]string
	// Timeout bounds each run.  Zero means no limit.
	Timeout time.Duration
}

// NewLocalRunner returns a LocalRunner with the stock interpreter
// table and a 30 second timeout.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{
		Interpreters: map[string]string{
			"python":     "python3",
			"javascript": "node",
			"ruby":       "ruby",
			"bash":       "bash",
			"sh":         "sh",
		},
		Timeout: 30 * time.Second,
	}
}

// Exec writes the code to a temp file and runs it.  A nonzero exit,
// a missing interpreter, or an unsupported language all come back as
// Success false; err is reserved for failures setting the run up.
func (r *LocalRunner) Exec(ctx context.Context, req ExecRequest) (resp ExecResponse, err error) {
	cmdline, ok := r.Interpreters[req.Language]
	if !ok {
		resp.Error = fmt.Sprintf("no interpreter for language %q", req.Language)
		return
	}
	parts, err := shlex.Split(cmdline)
	if err != nil {
		return
	}

	dir, err := os.MkdirTemp("", "decant-run")
	if err != nil {
		return
	}
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "main."+core.Ext(req.Language))
	err = os.WriteFile(fn, []byte(req.Code), 0644)
	if err != nil {
		return
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	args := append(parts[1:], fn)
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = strings.NewReader(req.Stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	resp.ExecutionTime = time.Since(start).Seconds()
	resp.Output = stdout.String()

	if runErr == nil {
		resp.Success = true
		resp.Error = stderr.String()
		return
	}
	resp.Error = stderr.String()
	if strings.TrimSpace(resp.Error) == "" {
		resp.Error = runErr.Error()
	}
	if ctx.Err() == context.DeadlineExceeded {
		resp.Error = fmt.Sprintf("timed out after %v: %s", r.Timeout, resp.Error)
	}
	return
}

// HTTPRunner posts execution requests to a remote service that speaks
// the same request and response JSON.
type HTTPRunner struct {
	Endpoint string
	// Token, when set, is sent as a bearer token.
	Token string
}

// NewHTTPRunner returns an HTTPRunner for the given endpoint.  The
// bearer token comes from DECANT_RUNNER_TOKEN when set.
func NewHTTPRunner(endpoint string) *HTTPRunner {
	return &HTTPRunner{
		Endpoint: endpoint,
		Token:    envi.String("DECANT_RUNNER_TOKEN", ""),
	}
}

// Exec posts the request and decodes the service's response.
func (r *HTTPRunner) Exec(ctx context.Context, req ExecRequest) (resp ExecResponse, err error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return
	}
	hreq, err := http.NewRequestWithContext(ctx, "POST", r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return
	}
	hreq.Header.Set("Content-Type", "application/json")
	if r.Token != "" {
		hreq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.Token))
	}

	client := &http.Client{}
	hresp, err := client.Do(hreq)
	if err != nil {
		return
	}
	defer hresp.Body.Close()

	if hresp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(hresp.Body)
		err = fmt.Errorf("runner at %s returned status %d: %s", r.Endpoint, hresp.StatusCode, string(body))
		return
	}

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		return
	}
	err = json.Unmarshal(body, &resp)
	return
}
