// Package backend provides the conversion backends a convert.Session
// drives: Direct runs a conversion engine inside this process and Remote
// forwards every call to an isolated worker process.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	clipime "github.com/Paranoid-AF/clipime"
)

// ErrClosed is returned by calls on a closed backend.
var ErrClosed = errors.New("backend closed")

// Engine is a kana-kanji conversion library. Implementations are not
// expected to be safe for concurrent use.
type Engine interface {
	// Candidates converts composing, given the already-committed text to
	// its left, and returns ranked candidates.
	Candidates(composing, leftContext string) []clipime.Candidate
}

type directState struct {
	engine    Engine
	composing strings.Builder
}

// Direct owns an Engine and its composing buffer on a single goroutine.
// Every call is handed to that goroutine and runs to completion before the
// next one starts.
type Direct struct {
	logger *slog.Logger
	state  directState

	calls     chan func(*directState)
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewDirect starts the goroutine owning engine. Close stops it.
func NewDirect(engine Engine, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Direct{
		logger: logger,
		state:  directState{engine: engine},
		calls:  make(chan func(*directState)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Direct) run() {
	defer close(d.done)
	for {
		select {
		case call := <-d.calls:
			call(&d.state)
		case <-d.quit:
			return
		}
	}
}

// do runs fn on the owner goroutine. Once accepted, fn is not interrupted
// by ctx.
func (d *Direct) do(ctx context.Context, fn func(*directState)) error {
	var panicked any
	finished := make(chan struct{})
	call := func(st *directState) {
		defer close(finished)
		defer func() { panicked = recover() }()
		fn(st)
	}

	select {
	case d.calls <- call:
	case <-d.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished

	if panicked != nil {
		d.logger.Error("conversion engine panicked", "panic", panicked)
		return fmt.Errorf("conversion engine panicked: %v", panicked)
	}
	return nil
}

// ResetComposingText clears the composing buffer.
func (d *Direct) ResetComposingText(ctx context.Context) error {
	return d.do(ctx, func(st *directState) {
		st.composing.Reset()
	})
}

// InsertAtCursorPosition pre-processes text and appends it to the
// composing buffer.
func (d *Direct) InsertAtCursorPosition(ctx context.Context, text string) error {
	processed := PreProcess(text)
	return d.do(ctx, func(st *directState) {
		st.composing.WriteString(processed)
	})
}

// RequestCandidates converts the composing buffer.
func (d *Direct) RequestCandidates(ctx context.Context, leftContext string) ([]clipime.Candidate, error) {
	var candidates []clipime.Candidate
	err := d.do(ctx, func(st *directState) {
		candidates = st.engine.Candidates(st.composing.String(), leftContext)
	})
	if err != nil {
		return nil, err
	}
	candidates = PostProcessCandidates(candidates)
	d.logger.Debug("candidates", "context", leftContext, "candidates", clipime.Texts(candidates))
	return candidates, nil
}

// Close stops the owner goroutine. It is safe to call more than once.
func (d *Direct) Close() error {
	d.closeOnce.Do(func() {
		close(d.quit)
		<-d.done
	})
	return nil
}
