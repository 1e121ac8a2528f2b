package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultAction is the no-op action substituted when the inference
// service stays unreachable past the retry budget
const DefaultAction int = 0

// Client issues action-selection requests to the inference server on
// behalf of an actor's environment loops. Requests that time out are
// retried a bounded number of times; when the budget is exhausted the
// client falls back to DefaultAction so the environment loop can keep
// stepping.
type Client struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
}

// Result is the outcome of one inference call. Fallback marks results
// substituted after exhausted retries; their log probability and value
// are zero and must not be trained on.
type Result struct {
	Action        int
	LogProb       float64
	Value         float64
	ParamsVersion int64
	Fallback      bool
}

// NewClient creates a client for the inference service at addr
// (host:port)
func NewClient(addr string, timeout time.Duration, retries int,
	backoff time.Duration) *Client {
	return &Client{
		url:     "http://" + addr + "/inference",
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: backoff,
	}
}

// Infer requests an action for one observation. The returned Result is
// a fallback when every attempt failed; the last error is returned
// alongside it for logging.
func (c *Client) Infer(ctx context.Context, task int, runID string,
	obs []float64) (Result, error) {
	request := Request{Task: task, RunID: runID, Obs: obs}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fallback(), ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		resp, err := c.post(ctx, request)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}

	return fallback(), fmt.Errorf("infer: retries exhausted: %w", lastErr)
}

// post performs one request round trip
func (c *Client) post(ctx context.Context, request Request) (Result,
	error) {
	body, err := json.Marshal(request)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("post: server returned %v",
			resp.StatusCode)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, err
	}

	return Result{
		Action:        payload.Action,
		LogProb:       payload.LogProb,
		Value:         payload.Value,
		ParamsVersion: payload.ParamsVersion,
	}, nil
}

func fallback() Result {
	return Result{Action: DefaultAction, Fallback: true}
}
