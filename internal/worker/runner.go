package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// RunResult is what the remote runner reports for one job.
type RunResult struct {
	Output      string  `json:"output"`
	ErrorOutput string  `json:"error_output"`
	ExitCode    int     `json:"exit_code"`
	Duration    float64 `json:"duration"`
}

// Runner executes code somewhere that is not this process.
type Runner interface {
	Run(ctx context.Context, exec *domain.Execution) (*RunResult, error)
}

// HTTPRunner talks to the sandboxed execution service over HTTP.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRunner(baseURL string) *HTTPRunner {
	if baseURL == "" {
		panic("runner base URL cannot be empty for HTTPRunner")
	}
	return &HTTPRunner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type runnerRequest struct {
	Language   string `json:"language"`
	SourceCode string `json:"source_code"`
	Input      string `json:"input"`
}

// Run submits the job and waits for the result. The runner enforces its
// own time and memory limits; a non-zero exit code is a normal result,
// not an error.
func (r *HTTPRunner) Run(ctx context.Context, exec *domain.Execution) (*RunResult, error) {
	body, err := json.Marshal(runnerRequest{
		Language:   exec.Language,
		SourceCode: exec.SourceCode,
		Input:      exec.Input,
	})
	if err != nil {
		return nil, fmt.Errorf("runner: marshal request for execution %s: %w", exec.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runner: build request for execution %s: %w", exec.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runner: submit execution %s: %w", exec.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("runner: execution %s got status %d: %s", exec.ID, resp.StatusCode, respBody)
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("runner: decode result for execution %s: %w", exec.ID, err)
	}
	return &result, nil
}
