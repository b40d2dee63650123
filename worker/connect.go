package worker

import (
	"context"
	"fmt"
	"log/slog"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/backend"
	"github.com/Paranoid-AF/clipime/ipc"
)

// Connect spawns the configured worker under s and completes the channel
// bootstrap. The worker is shut down again if the host side of the
// bootstrap fails.
func Connect(ctx context.Context, s *Supervisor, cfg *clipime.Config, logger *slog.Logger) (*backend.Remote, error) {
	argv, err := Command(cfg)
	if err != nil {
		return nil, err
	}
	h, err := s.Spawn(ctx, argv)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, clipime.HandshakeTimeout(cfg))
	defer cancel()
	client, err := ipc.Dial(dialCtx, h.Name())
	if err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return backend.NewRemote(client, clipime.RequestTimeout(cfg), logger), nil
}
