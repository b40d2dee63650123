package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/backend"
	"github.com/Paranoid-AF/clipime/ipc"
	"github.com/Paranoid-AF/clipime/kana"
)

// Serve is the worker main loop. It advertises a request channel on out,
// accepts the host, and drives engine through a backend.Direct until End
// arrives, the host disconnects, or ctx is cancelled.
func Serve(ctx context.Context, out io.Writer, engine backend.Engine, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	server, err := ipc.NewOneShotServer()
	if err != nil {
		return fmt.Errorf("request channel: %w", err)
	}
	defer server.Close()

	if _, err := fmt.Fprintln(out, ipc.FormatBootstrap(server.Name())); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	requests, err := server.Accept(ctx)
	if err != nil {
		return err
	}
	defer requests.Close()
	stop := context.AfterFunc(ctx, func() { requests.Close() })
	defer stop()

	direct := backend.NewDirect(engine, logger)
	defer direct.Close()

	var replies *ipc.SendChannel
	defer func() {
		if replies != nil {
			replies.Close()
		}
	}()

	for {
		m, err := requests.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ipc.ErrChannelClosed) {
				logger.Info("host disconnected")
				return nil
			}
			return err
		}
		logger.Debug("ipc recv", "kind", m.Kind)

		switch m.Kind {
		case ipc.KindStart:
		case ipc.KindSender:
			if replies != nil {
				replies.Close()
			}
			replies, err = ipc.Connect(ctx, m.Address)
			if err != nil {
				return fmt.Errorf("reply channel: %w", err)
			}
		case ipc.KindResetComposingText:
			if err := direct.ResetComposingText(ctx); err != nil {
				logger.Warn("reset composing text failed", "error", err)
			}
		case ipc.KindInsertAtCursorPosition:
			if err := direct.InsertAtCursorPosition(ctx, m.Text); err != nil {
				logger.Warn("insert failed", "error", err)
			}
		case ipc.KindRequestCandidates:
			candidates, err := direct.RequestCandidates(ctx, m.Text)
			if err != nil {
				logger.Warn("request candidates failed", "error", err)
			}
			if replies == nil {
				logger.Warn("no reply channel, dropping candidates")
				continue
			}
			if err := replies.Send(ipc.Candidates(candidates)); err != nil {
				return err
			}
		case ipc.KindEnd:
			logger.Info("session ended")
			return nil
		default:
			logger.Warn("unexpected message", "kind", m.Kind)
		}
	}
}

// Run serves with the kana engine over the configured dictionary. It is the
// body of worker mode for every binary that can act as a worker.
func Run(ctx context.Context, cfg *clipime.Config, out io.Writer, logger *slog.Logger) error {
	engine := kana.Open(cfg, logger)
	defer engine.Close()

	logger.Debug("worker starting", "pid", os.Getpid())
	return Serve(ctx, out, engine, logger)
}
