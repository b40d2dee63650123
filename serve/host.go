package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/backend"
	"github.com/Paranoid-AF/clipime/convert"
	"github.com/Paranoid-AF/clipime/kana"
	"github.com/Paranoid-AF/clipime/worker"
)

// defaultSession keys requests that carry no session id.
const defaultSession = "default"

// binding is a conversion backend together with whatever must be torn down
// when it is replaced.
type binding struct {
	kind    string
	backend convert.Backend
	close   func()
}

type opener func(ctx context.Context, cfg *clipime.Config) (*binding, error)

// openBinding prefers the worker process unless the direct backend is
// configured. A worker that cannot be started or reached falls back to
// converting in process.
func openBinding(ctx context.Context, cfg *clipime.Config, supervisor *worker.Supervisor, logger *slog.Logger) (*binding, error) {
	if clipime.ResolveBackend(cfg) != clipime.BackendDirect {
		b, err := openWorker(ctx, cfg, supervisor, logger)
		if err == nil {
			return b, nil
		}
		logger.Warn("worker unavailable, converting in process", "error", err)
	}
	return openDirect(cfg, logger), nil
}

func openWorker(ctx context.Context, cfg *clipime.Config, supervisor *worker.Supervisor, logger *slog.Logger) (*binding, error) {
	remote, err := worker.Connect(ctx, supervisor, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &binding{
		kind:    clipime.BackendWorker,
		backend: remote,
		close: func() {
			remote.Close()
			supervisor.Shutdown()
		},
	}, nil
}

func openDirect(cfg *clipime.Config, logger *slog.Logger) *binding {
	engine := kana.Open(cfg, logger)
	direct := backend.NewDirect(engine, logger)
	return &binding{
		kind:    clipime.BackendDirect,
		backend: direct,
		close: func() {
			direct.Close()
			engine.Close()
		},
	}
}

// Host converts text from every source through one shared backend and
// delivers the results to the configured sink.
type Host struct {
	logger *slog.Logger
	stdout io.Writer
	open   opener

	// mu serializes conversions: the backend has a single composing buffer.
	mu       sync.Mutex
	cfg      *clipime.Config
	binding  *binding
	sink     Sink
	sessions map[string]*convert.Session
	closed   bool
}

// NewHost opens the configured backend and sink.
func NewHost(ctx context.Context, cfg *clipime.Config, supervisor *worker.Supervisor, stdout io.Writer, logger *slog.Logger) (*Host, error) {
	open := func(ctx context.Context, cfg *clipime.Config) (*binding, error) {
		return openBinding(ctx, cfg, supervisor, logger)
	}
	return newHost(ctx, cfg, open, stdout, logger)
}

func newHost(ctx context.Context, cfg *clipime.Config, open opener, stdout io.Writer, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		logger:   logger,
		stdout:   stdout,
		open:     open,
		sessions: make(map[string]*convert.Session),
	}
	if err := h.apply(ctx, cfg); err != nil {
		return nil, err
	}
	return h, nil
}

// apply swaps in a backend and sink for cfg. Callers hold mu, except
// during construction.
func (h *Host) apply(ctx context.Context, cfg *clipime.Config) error {
	sink, err := openSink(cfg, h.stdout)
	if err != nil {
		return err
	}
	// The old binding goes first: a worker binding owns the supervisor's
	// single process slot.
	h.closeResources()
	clear(h.sessions)

	b, err := h.open(ctx, cfg)
	if err != nil {
		sink.Close()
		return err
	}
	h.cfg = cfg
	h.binding = b
	h.sink = sink
	h.logger.Info("conversion ready", "backend", b.kind, "output", clipime.ResolveOutputMode(cfg))
	return nil
}

func (h *Host) closeResources() {
	if h.binding != nil {
		h.binding.close()
		h.binding = nil
	}
	if h.sink != nil {
		if err := h.sink.Close(); err != nil {
			h.logger.Warn("failed to close sink", "error", err)
		}
		h.sink = nil
	}
}

func (h *Host) session(id string) *convert.Session {
	if id == "" {
		id = defaultSession
	}
	s, ok := h.sessions[id]
	if !ok {
		s = convert.NewSession(h.binding.backend, h.logger.With("session", id))
		h.sessions[id] = s
	}
	return s
}

// Convert runs one conversion. Skipped text is not delivered. When
// conversion fails the original text is delivered unchanged.
func (h *Host) Convert(ctx context.Context, req *clipime.ConvertRequest) *clipime.ConvertResponse {
	resp := &clipime.ConvertResponse{
		RequestID: req.RequestID,
		Original:  req.Text,
		Converted: req.Text,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.binding == nil {
		resp.Error = &clipime.Error{Code: "conversion_failed", Message: "no conversion backend"}
		return resp
	}
	if reason := skipReason(h.cfg, req.Text); reason != "" {
		h.logger.Debug("skipping text", "reason", reason)
		resp.Error = &clipime.Error{Code: "skipped", Message: reason}
		return resp
	}

	converted, err := h.session(req.SessionID).Convert(ctx, req.Text)
	if err != nil {
		h.logger.Warn("conversion failed, delivering original text", "error", err)
		resp.Error = &clipime.Error{Code: "conversion_failed", Message: err.Error()}
	} else {
		resp.Converted = converted
	}

	if err := h.sink.Deliver(resp.Converted); err != nil {
		h.logger.Warn("failed to deliver text", "error", err)
	}
	return resp
}

// Reload replaces the backend and sink. Conversion history is dropped. If
// the new sink cannot be opened the previous configuration stays in effect.
func (h *Host) Reload(ctx context.Context, cfg *clipime.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	return h.apply(ctx, cfg)
}

// Close releases the backend and sink. It is safe to call more than once.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.closeResources()
}
