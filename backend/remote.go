package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/ipc"
)

// Remote forwards every call to a worker process over an ipc.Client.
// Requests are strictly one at a time; only RequestCandidates waits for a
// reply.
type Remote struct {
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	client *ipc.Client
	// stale counts replies still owed for requests that timed out. They
	// arrive in order ahead of any newer reply and are dropped.
	stale int
}

// NewRemote wraps an established client. A zero timeout waits for replies
// forever.
func NewRemote(client *ipc.Client, timeout time.Duration, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{client: client, timeout: timeout, logger: logger}
}

// ResetComposingText clears the worker's composing buffer.
func (r *Remote) ResetComposingText(ctx context.Context) error {
	return r.send(ctx, ipc.ResetComposingText())
}

// InsertAtCursorPosition appends text to the worker's composing buffer. The
// worker pre-processes it.
func (r *Remote) InsertAtCursorPosition(ctx context.Context, text string) error {
	return r.send(ctx, ipc.InsertAtCursorPosition(text))
}

func (r *Remote) send(ctx context.Context, m ipc.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("ipc send", "kind", m.Kind)
	return r.client.Send(m)
}

// RequestCandidates asks the worker for candidates and waits for the reply.
// Messages of other kinds are discarded while waiting. A closed channel or
// an expired timeout yields no candidates and an error.
func (r *Remote) RequestCandidates(ctx context.Context, leftContext string) ([]clipime.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.Send(ipc.RequestCandidates(leftContext)); err != nil {
		return nil, err
	}

	var deadline time.Time
	if r.timeout > 0 {
		deadline = time.Now().Add(r.timeout)
	}
	for {
		var wait time.Duration
		if !deadline.IsZero() {
			wait = time.Until(deadline)
			if wait <= 0 {
				r.stale++
				return nil, fmt.Errorf("request candidates: %w", ipc.ErrTimeout)
			}
		}

		m, err := r.client.Recv(wait)
		if err != nil {
			if errors.Is(err, ipc.ErrTimeout) {
				r.stale++
			}
			return nil, fmt.Errorf("request candidates: %w", err)
		}
		if m.Kind != ipc.KindCandidates {
			r.logger.Debug("discarding unexpected message", "kind", m.Kind)
			continue
		}
		if r.stale > 0 {
			r.stale--
			r.logger.Debug("discarding late reply", "candidates", len(m.Candidates))
			continue
		}
		r.logger.Debug("ipc reply", "candidates", clipime.Texts(m.Candidates))
		return m.Candidates, nil
	}
}

// Close ends the worker session.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
