// Package convert implements incremental conversion of copied text and the
// reconversion protocol that cycles through alternate candidates when the
// same text is presented again.
package convert

import (
	"context"
	"errors"
	"log/slog"

	clipime "github.com/Paranoid-AF/clipime"
)

var (
	// ErrNoCandidates is returned when the backend produced nothing for an
	// initial conversion.
	ErrNoCandidates = errors.New("no conversion candidates")
	// ErrInvalidState marks a reconversion sequencing bug.
	ErrInvalidState = errors.New("invalid reconversion state")
)

// Backend is the conversion capability a Session drives. A reset, zero or
// more inserts and one candidate request form one composing episode.
type Backend interface {
	ResetComposingText(ctx context.Context) error
	InsertAtCursorPosition(ctx context.Context, text string) error
	RequestCandidates(ctx context.Context, leftContext string) ([]clipime.Candidate, error)
}

// Mode is the reconversion state of a Session.
type Mode int

const (
	// Fresh means no reconversion episode is in progress.
	Fresh Mode = iota
	// Reconversion means candidates are being cycled.
	Reconversion
)

func (m Mode) String() string {
	switch m {
	case Fresh:
		return "fresh"
	case Reconversion:
		return "reconversion"
	}
	return "unknown"
}

type step int

const (
	stepInitial step = iota
	stepCycle
)

// Session holds the conversion history of one text source. It is not safe
// for concurrent use; callers serialize Convert.
type Session struct {
	backend Backend
	logger  *slog.Logger

	outputs history
	inputs  history

	mode         Mode
	commonPrefix *string
	cycler       Cycler
}

// NewSession creates a session in Fresh mode with empty histories.
func NewSession(backend Backend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend: backend,
		logger:  logger,
		outputs: newHistory(HistoryLimit),
		inputs:  newHistory(HistoryLimit),
	}
}

// Mode returns the current reconversion state.
func (s *Session) Mode() Mode {
	return s.mode
}

// Outputs returns a copy of the output history, oldest first.
func (s *Session) Outputs() []string {
	return s.outputs.snapshot()
}

// Inputs returns a copy of the input history, oldest first.
func (s *Session) Inputs() []string {
	return s.inputs.snapshot()
}

// Convert converts text. New text is converted incrementally against the
// last output; text equal to the last output starts or continues a
// reconversion episode.
func (s *Session) Convert(ctx context.Context, text string) (string, error) {
	s.logger.Debug("convert", "text", text, "mode", s.mode, "outputs", s.outputs.entries, "inputs", s.inputs.entries)

	switch s.transition(text) {
	case stepInitial:
		return s.convertInitial(ctx, text)
	default:
		return s.convertCycle(ctx, text)
	}
}

// transition decides the branch for text and applies the mode change. A
// changed input always cancels a running episode.
func (s *Session) transition(text string) step {
	isRepeat := s.outputs.len() > 0 && text == s.outputs.fromEnd(0)

	if !isRepeat {
		if s.mode == Reconversion {
			s.logger.Debug("input changed, cancelling reconversion")
			s.reset()
		}
		return stepInitial
	}
	s.mode = Reconversion
	return stepCycle
}

func (s *Session) reset() {
	s.mode = Fresh
	s.commonPrefix = nil
	s.cycler.Reset()
}

func (s *Session) convertInitial(ctx context.Context, text string) (string, error) {
	prev := s.outputs.fromEnd(0)
	prefix, delta := splitAt(text, divergence(prev, text))
	s.logger.Debug("initial conversion", "prefix", prefix, "delta", delta)

	candidates := s.generate(ctx, delta, "")
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	result := prefix + candidates[0].Text
	s.record(result, text)
	s.logger.Info("converted", "input", text, "output", result)
	return result, nil
}

func (s *Session) convertCycle(ctx context.Context, text string) (string, error) {
	if s.commonPrefix == nil {
		prevOutput := s.outputs.fromEnd(1)
		prevInput := s.inputs.fromEnd(0)
		prefix, delta := splitAt(prevInput, divergence(prevOutput, prevInput))
		s.commonPrefix = &prefix
		s.logger.Debug("reconversion started", "prefix", prefix, "delta", delta)

		texts := []string{delta}
		for _, c := range s.generate(ctx, delta, prefix) {
			texts = append(texts, c.Text)
		}
		if err := s.cycler.Populate(texts); err != nil {
			return "", err
		}
	}

	candidate, err := s.cycler.Advance()
	if err != nil {
		return "", err
	}

	result := *s.commonPrefix + candidate
	s.record(result, text)
	s.logger.Info("reconverted", "input", text, "output", result, "index", s.cycler.Index(), "of", len(s.cycler.Candidates()))
	return result, nil
}

// generate runs one composing episode. Backend failures are logged and
// reported as an empty list.
func (s *Session) generate(ctx context.Context, delta, leftContext string) []clipime.Candidate {
	if err := s.backend.ResetComposingText(ctx); err != nil {
		s.logger.Warn("reset composing text failed", "error", err)
		return nil
	}
	if err := s.backend.InsertAtCursorPosition(ctx, delta); err != nil {
		s.logger.Warn("insert failed", "error", err)
		return nil
	}
	candidates, err := s.backend.RequestCandidates(ctx, leftContext)
	if err != nil {
		s.logger.Warn("candidate request failed", "error", err)
		return nil
	}
	return candidates
}

func (s *Session) record(output, input string) {
	s.outputs.push(output)
	s.inputs.push(input)
}
