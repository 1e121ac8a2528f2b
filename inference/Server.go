// Package inference implements the centralized action-selection
// service: actors ship observations to the learner process, which
// batches concurrent requests and answers them from one parameter
// snapshot at a time.
package inference

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
)

// Request is one action-selection request from an actor's environment
// loop
type Request struct {
	Task  int       `json:"task"`
	RunID string    `json:"run_id"`
	Obs   []float64 `json:"obs"`
}

// Response carries the selected action together with the behaviour
// policy's log probability and value estimate, and the parameter
// version that served the request
type Response struct {
	Action        int     `json:"action"`
	LogProb       float64 `json:"log_prob"`
	Value         float64 `json:"value"`
	ParamsVersion int64   `json:"params_version"`
}

// pending is one request waiting for batch assembly
type pending struct {
	request Request
	reply   chan Response
}

// Server batches concurrent inference requests and serves them from
// the latest published parameter snapshot. Requests assembled into one
// batch are all answered by the same snapshot version: snapshots are
// swapped in only between batches.
type Server struct {
	policy   agent.Policy
	maxBatch int
	maxWait  time.Duration

	requests chan pending
	params   chan agent.Params
	done     chan struct{}
	version  atomic.Int64 // version serving batches, readable off-loop
}

// NewServer creates an inference server answering requests with the
// given policy. maxBatch bounds how many requests are served from one
// batch; maxWait bounds how long assembly waits for stragglers once
// the first request of a batch has arrived.
func NewServer(policy agent.Policy, maxBatch int,
	maxWait time.Duration) (*Server, error) {
	if maxBatch < 1 {
		return nil, fmt.Errorf("newServer: max batch must be positive, "+
			"got %v", maxBatch)
	}

	s := &Server{
		policy:   policy,
		maxBatch: maxBatch,
		maxWait:  maxWait,
		requests: make(chan pending, maxBatch),
		params:   make(chan agent.Params, 1),
		done:     make(chan struct{}),
	}
	s.version.Store(policy.ParamsVersion())
	go s.serve()

	return s, nil
}

// Publish hands the server a new parameter snapshot. The snapshot is
// swapped in before the next batch; a snapshot published while another
// is still pending replaces it.
func (s *Server) Publish(p agent.Params) {
	for {
		select {
		case s.params <- p:
			return
		default:
			select {
			case <-s.params: // discard the stale pending snapshot
			default:
			}
		}
	}
}

// ParamsVersion returns the version of the snapshot currently serving
// batches. Safe to call from any goroutine: the batch loop owns the
// policy, so the version is mirrored rather than read through it.
func (s *Server) ParamsVersion() int64 {
	return s.version.Load()
}

// Close stops the batch loop. In-flight requests are answered first.
func (s *Server) Close() {
	close(s.done)
}

// Handler returns the HTTP handler answering inference requests
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Obs) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		reply := make(chan Response, 1)
		select {
		case s.requests <- pending{request: req, reply: reply}:
		case <-s.done:
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		select {
		case resp := <-reply:
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				log.Printf("inference: encode response: %v", err)
			}
		case <-r.Context().Done():
			w.WriteHeader(http.StatusRequestTimeout)
		}
	})
}

// serve is the batch-assembly loop. It gathers requests until the
// batch is full or maxWait has passed since the first request, swaps
// in any pending snapshot, and answers the whole batch from it.
func (s *Server) serve() {
	for {
		var batch []pending

		select {
		case first := <-s.requests:
			batch = append(batch, first)
		case <-s.done:
			return
		}

		timeout := time.NewTimer(s.maxWait)
	assemble:
		for len(batch) < s.maxBatch {
			select {
			case next := <-s.requests:
				batch = append(batch, next)
			case <-timeout.C:
				break assemble
			}
		}
		timeout.Stop()

		// Swap in a newly published snapshot between batches only, so
		// every request below sees one version
		select {
		case params := <-s.params:
			if err := s.policy.SetParams(params); err != nil {
				log.Printf("inference: rejected snapshot v%v: %v",
					params.Version, err)
			}
		default:
		}

		version := s.policy.ParamsVersion()
		s.version.Store(version)
		for _, p := range batch {
			obs := mat.NewVecDense(len(p.request.Obs), p.request.Obs)
			decision := s.policy.SelectAction(obs, p.request.Task)
			p.reply <- Response{
				Action:        decision.Action,
				LogProb:       decision.LogProb,
				Value:         decision.Value,
				ParamsVersion: version,
			}
		}
	}
}
