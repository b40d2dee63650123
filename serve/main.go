// Command clipime is the clipime host.
// It listens on a Unix domain socket for copied text, converts romaji to
// Japanese, and delivers the result to stdout or a VRChat chatbox.
// Started as "clipime worker" it runs the isolated conversion worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "clipime:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("clipime", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	showVersion := flagSet.Bool("version", false, "print version and exit")
	verbose := flagSet.BoolP("verbose", "v", false, "log every request and response")
	socket := flagSet.String("socket", "", "socket path (default: $CLIPIME_SOCKET or $XDG_RUNTIME_DIR/clipime.sock)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, "clipime", Version)
		return nil
	}

	cfg, cfgErr := clipime.LoadConfig()
	if cfgErr != nil {
		cfg = clipime.DefaultConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := flagSet.Args()
	if len(rest) > 0 && rest[0] == worker.ModeArg {
		// stdout carries the bootstrap line; logs stay on stderr.
		logger, _, _ := newLogger(stderr, *verbose, "")
		if cfgErr != nil {
			logger.Warn("invalid config, using defaults", "error", cfgErr)
		}
		return worker.Run(ctx, cfg, stdout, logger)
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	logger, closeLog, err := newLogger(stderr, *verbose, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("invalid config, using defaults", "path", clipime.ConfigPath(), "error", cfgErr)
	}
	for _, w := range clipime.ValidateConfig(cfg) {
		logger.Warn("config", "warning", w)
	}

	socketPath := *socket
	if socketPath == "" {
		socketPath = resolveSocketPath()
	}
	return runHost(ctx, cfg, socketPath, stdout, logger)
}

func runHost(ctx context.Context, cfg *clipime.Config, socketPath string, stdout io.Writer, logger *slog.Logger) error {
	logger.Info("starting", "socket", socketPath, "version", Version)

	supervisor := worker.NewSupervisor(clipime.HandshakeTimeout(cfg), logger)
	defer supervisor.Shutdown()

	host, err := NewHost(ctx, cfg, supervisor, stdout, logger)
	if err != nil {
		return fmt.Errorf("start conversion: %w", err)
	}
	defer host.Close()

	srv, err := NewServer(socketPath, host, logger)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Close()

	var watcher *configWatcher
	watcher = newConfigWatcher(
		watchedFiles(cfg),
		func(ctx context.Context) {
			cfg, err := clipime.LoadConfig()
			if err != nil {
				logger.Warn("config changed but is invalid, keeping current", "error", err)
				return
			}
			if err := host.Reload(ctx, cfg); err != nil {
				logger.Error("reload failed", "error", err)
				return
			}
			watcher.Watch(watchedFiles(cfg))
			logger.Info("configuration reloaded")
		},
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		srv.Close()
		return nil
	})

	logger.Info("ready")
	return g.Wait()
}

// watchedFiles lists the files whose changes trigger a reload.
func watchedFiles(cfg *clipime.Config) []string {
	return []string{clipime.ConfigPath(), clipime.DictionaryPath(cfg)}
}

func resolveSocketPath() string {
	if path := os.Getenv("CLIPIME_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/clipime.sock"
	}
	return fmt.Sprintf("/tmp/clipime-%d.sock", os.Getuid())
}
