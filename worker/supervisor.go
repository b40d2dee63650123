// Package worker spawns the conversion worker process and runs its main
// loop.
//
// The worker isolates the conversion engine from the host. It prints a
// bootstrap line naming its request channel on stdout, then serves
// requests until the host sends End or goes away.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/Paranoid-AF/clipime/ipc"
)

var (
	// ErrSpawn is returned when the worker process could not be started.
	ErrSpawn = errors.New("spawn worker")
	// ErrHandshake is returned when the worker did not advertise its
	// channel in time.
	ErrHandshake = errors.New("worker handshake")
)

// DefaultHandshakeTimeout bounds the wait for the bootstrap line.
const DefaultHandshakeTimeout = 10 * time.Second

// drainGrace is how long teardown waits for stdout to reach EOF after the
// worker exits. A descendant of the worker may still hold the pipe open.
const drainGrace = 100 * time.Millisecond

// Handle is a running worker process.
type Handle struct {
	cmd    *exec.Cmd
	name   string
	stdout *os.File

	exited  chan struct{}
	drained chan struct{}
	waitErr error
}

// Name returns the worker's request channel.
func (h *Handle) Name() string { return h.name }

// Pid returns the worker's process id.
func (h *Handle) Pid() int { return h.cmd.Process.Pid }

// Exited is closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

func (h *Handle) kill() error {
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker %d: %w", h.cmd.Process.Pid, err)
	}
	<-h.exited
	select {
	case <-h.drained:
	case <-time.After(drainGrace):
		h.stdout.Close()
		<-h.drained
	}
	return nil
}

// Supervisor owns at most one worker process.
type Supervisor struct {
	logger           *slog.Logger
	handshakeTimeout time.Duration

	mu     sync.Mutex
	handle *Handle
}

// NewSupervisor returns a Supervisor. A non-positive handshakeTimeout uses
// DefaultHandshakeTimeout.
func NewSupervisor(handshakeTimeout time.Duration, logger *slog.Logger) *Supervisor {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{logger: logger, handshakeTimeout: handshakeTimeout}
}

// Spawn starts argv and waits for its bootstrap line. A worker that is
// already running is shut down first. Lines printed before the bootstrap
// line, and everything printed after it, are logged at debug level.
func (s *Supervisor) Spawn(ctx context.Context, argv []string) (*Handle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSpawn)
	}
	if err := s.Shutdown(); err != nil {
		s.logger.Warn("failed to stop previous worker", "error", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, argv[0], err)
	}
	w.Close()

	h := &Handle{
		cmd:     cmd,
		stdout:  r,
		exited:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	// The slot is taken before the handshake so that a concurrent Shutdown
	// reaches this worker too.
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()

	names := make(chan string, 1)
	go func() {
		defer close(h.drained)
		defer r.Close()
		scanner := bufio.NewScanner(r)
		announced := false
		for scanner.Scan() {
			line := scanner.Text()
			if !announced {
				if name, ok := ipc.ParseBootstrap(line); ok {
					announced = true
					names <- name
					continue
				}
			}
			s.logger.Debug("worker output", "pid", cmd.Process.Pid, "line", line)
		}
	}()

	timer := time.NewTimer(s.handshakeTimeout)
	defer timer.Stop()

	var (
		name    string
		failure error
	)
	select {
	case name = <-names:
	case <-h.exited:
		failure = fmt.Errorf("%w: worker exited before bootstrap", ErrHandshake)
	case <-timer.C:
		failure = fmt.Errorf("%w: no bootstrap line within %s", ErrHandshake, s.handshakeTimeout)
	case <-h.drained:
		failure = fmt.Errorf("%w: worker closed stdout before bootstrap", ErrHandshake)
	case <-ctx.Done():
		failure = fmt.Errorf("%w: %v", ErrHandshake, ctx.Err())
	}
	s.mu.Lock()
	owned := s.handle == h
	switch {
	case failure != nil:
		if owned {
			s.handle = nil
		}
	case !owned:
		failure = fmt.Errorf("%w: worker shut down during handshake", ErrHandshake)
	default:
		h.name = name
	}
	s.mu.Unlock()

	if failure != nil {
		if err := h.kill(); err != nil {
			s.logger.Warn("failed to kill worker", "error", err)
		}
		return nil, failure
	}

	s.logger.Info("worker started", "pid", cmd.Process.Pid, "channel", h.name)
	return h, nil
}

// Handle returns the running worker, or nil. A worker still in its
// handshake is not returned.
func (s *Supervisor) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.handle.name == "" {
		return nil
	}
	return s.handle
}

// Shutdown kills and reaps the running worker. Calls after the first, or
// with no worker running, do nothing.
func (s *Supervisor) Shutdown() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.kill(); err != nil {
		return err
	}
	s.logger.Info("worker stopped", "pid", h.cmd.Process.Pid, "status", h.waitErr)
	return nil
}
