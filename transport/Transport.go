// Package transport moves trajectories from actor processes to the
// learner over a websocket stream. One actor holds one stream; the
// learner side feeds every received trajectory into the trajectory
// queue and acknowledges each one, so producers observe backpressure.
package transport

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sfneuman.com/stampede/replay"
)

// Ack is the learner's per-trajectory acknowledgement. Dropped reports
// that accepting this trajectory forced an older one out of the queue.
type Ack struct {
	Accepted bool   `json:"accepted"`
	Dropped  bool   `json:"dropped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Handler returns the HTTP handler accepting actor trajectory streams
// and feeding them into the queue. Malformed trajectories are rejected
// in the acknowledgement and never reach the queue.
func Handler(queue *replay.Queue) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1 << 16,
		WriteBufferSize: 1 << 10,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("transport: upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var traj replay.Trajectory
			if err := conn.ReadJSON(&traj); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway) {
					log.Printf("transport: read: %v", err)
				}
				return
			}

			ack := Ack{Accepted: true}
			if err := traj.Validate(); err != nil {
				ack = Ack{Error: err.Error()}
			} else {
				dropped, err := queue.Enqueue(r.Context(), traj)
				if err != nil {
					ack = Ack{Error: err.Error()}
				}
				ack.Dropped = dropped
			}

			if err := conn.WriteJSON(ack); err != nil {
				log.Printf("transport: ack: %v", err)
				return
			}
		}
	})
}

// Stream is the actor-side half of the trajectory transport. A Stream
// dials lazily and re-dials after failures, so a learner restart does
// not kill the actor. Send preserves the order of one actor's
// trajectories: there is no concurrent sending on one Stream.
type Stream struct {
	url     string
	backoff time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStream creates a trajectory stream to the learner at addr
// (host:port)
func NewStream(addr string, backoff time.Duration) *Stream {
	return &Stream{
		url:     "ws://" + addr + "/trajectories",
		backoff: backoff,
	}
}

// Send ships one trajectory and waits for the learner's
// acknowledgement. A send over a broken connection re-dials once,
// after the stream's backoff.
func (s *Stream) Send(ctx context.Context, traj replay.Trajectory) (Ack,
	error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if err := s.ensure(ctx); err != nil {
			return Ack{}, fmt.Errorf("send: %w", err)
		}

		if err := s.conn.WriteJSON(traj); err != nil {
			s.drop()
			if err := s.wait(ctx); err != nil {
				return Ack{}, err
			}
			continue
		}

		var ack Ack
		if err := s.conn.ReadJSON(&ack); err != nil {
			s.drop()
			if err := s.wait(ctx); err != nil {
				return Ack{}, err
			}
			continue
		}
		if ack.Error != "" {
			return ack, fmt.Errorf("send: rejected: %v", ack.Error)
		}
		return ack, nil
	}

	return Ack{}, fmt.Errorf("send: connection lost")
}

// Close shuts the stream down
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
	s.conn = nil
	return err
}

// ensure dials the learner if the stream is not connected
func (s *Stream) ensure(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ensure: dial %v: %w", s.url, err)
	}
	s.conn = conn
	return nil
}

// drop discards a broken connection
func (s *Stream) drop() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// wait sleeps for the stream's backoff, honoring cancellation
func (s *Stream) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.backoff):
		return nil
	}
}
