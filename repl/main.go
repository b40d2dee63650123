// Command clipime-repl converts typed lines interactively, one conversion
// session for the whole run. Entering the last output again cycles through
// its alternate candidates, the same way copying it again would.
//
// Usage:
//
//	./clipime-repl                     # interactive, TOML on screen
//	./clipime-repl > log.toml          # prompt on screen, TOML to file
//	./clipime-repl --backend direct    # skip the worker process
//	printf 'henkan\n' | ./clipime-repl # batch mode
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/backend"
	"github.com/Paranoid-AF/clipime/convert"
	"github.com/Paranoid-AF/clipime/kana"
	"github.com/Paranoid-AF/clipime/worker"
)

const prompt = "> "

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "clipime-repl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) error {
	flagSet := pflag.NewFlagSet("clipime-repl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	backendName := flagSet.String("backend", "", "conversion backend: worker or direct (default from config)")
	verbose := flagSet.BoolP("verbose", "v", false, "log session transitions")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := clipime.LoadConfig()
	if err != nil {
		logger.Warn("invalid config, using defaults", "error", err)
		cfg = clipime.DefaultConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rest := flagSet.Args(); len(rest) > 0 {
		if rest[0] == worker.ModeArg {
			return worker.Run(ctx, cfg, stdout, logger)
		}
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	switch *backendName {
	case "":
	case clipime.BackendWorker, clipime.BackendDirect:
		cfg.Conversion.Backend = *backendName
	default:
		return fmt.Errorf("unknown backend %q", *backendName)
	}

	supervisor := worker.NewSupervisor(clipime.HandshakeTimeout(cfg), logger)
	defer supervisor.Shutdown()

	b, kind, closeBackend := openBackend(ctx, cfg, supervisor, logger)
	defer closeBackend()

	var (
		in lineReader
		ui io.Writer = stderr
	)
	if term.IsTerminal(int(stdin.Fd())) {
		editor, err := NewEditor()
		if err != nil {
			return err
		}
		defer editor.Close()
		tty := editor.Tty()
		ui = &crlfWriter{w: tty}

		fmt.Fprint(tty, "\033[2J\033[H")
		fmt.Fprintf(ui, "clipime repl (%s backend)\n", kind)
		fmt.Fprint(ui, "\ncommands:\n")
		fmt.Fprint(ui, "  :history  show the session history\n")
		fmt.Fprint(ui, "  :reset    start a new session\n")
		fmt.Fprint(ui, "  :quit     exit\n\n")
		in = editor
	} else {
		in = newScanReader(stdin)
	}

	r := &repl{
		in:      in,
		ui:      ui,
		out:     termWriter(stdout),
		backend: b,
		kind:    kind,
		logger:  logger,
	}
	return r.loop(ctx)
}

// openBackend mirrors the host: the worker unless direct is configured,
// falling back to in-process conversion when the worker cannot start.
func openBackend(ctx context.Context, cfg *clipime.Config, supervisor *worker.Supervisor, logger *slog.Logger) (convert.Backend, string, func()) {
	if clipime.ResolveBackend(cfg) != clipime.BackendDirect {
		remote, err := worker.Connect(ctx, supervisor, cfg, logger)
		if err == nil {
			return remote, clipime.BackendWorker, func() { remote.Close() }
		}
		logger.Warn("worker unavailable, converting in process", "error", err)
	}

	engine := kana.Open(cfg, logger)
	direct := backend.NewDirect(engine, logger)
	return direct, clipime.BackendDirect, func() {
		direct.Close()
		engine.Close()
	}
}

type repl struct {
	in      lineReader
	ui      io.Writer
	out     io.Writer
	backend convert.Backend
	kind    string
	logger  *slog.Logger
	now     func() time.Time

	session *convert.Session
}

func (r *repl) loop(ctx context.Context) error {
	r.session = convert.NewSession(r.backend, r.logger)
	if r.now == nil {
		r.now = time.Now
	}

	for {
		text, err := r.in.ReadLine(prompt)
		if err == io.EOF || err == ErrInterrupt {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch strings.TrimSpace(text) {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":reset":
			r.session = convert.NewSession(r.backend, r.logger)
			fmt.Fprint(r.ui, "session reset\n\n")
			continue
		case ":history":
			r.showHistory()
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil
		}
		r.convert(ctx, text)
	}
}

func (r *repl) convert(ctx context.Context, text string) {
	e := entry{At: r.now(), Input: text, Backend: r.kind}
	e.Output, e.Err = r.session.Convert(ctx, text)
	e.Mode = r.session.Mode().String()

	if e.Err != nil {
		fmt.Fprintf(r.ui, "error: %v\n\n", e.Err)
	} else {
		fmt.Fprintf(r.ui, "  %s  [%s]\n\n", e.Output, e.Mode)
	}
	writeEntry(r.out, e)
}

func (r *repl) showHistory() {
	outputs := r.session.Outputs()
	inputs := r.session.Inputs()
	if len(outputs) == 0 {
		fmt.Fprint(r.ui, "(empty)\n\n")
		return
	}
	for i, out := range outputs {
		in := ""
		if i < len(inputs) {
			in = inputs[i]
		}
		fmt.Fprintf(r.ui, "  %d. %s <- %s\n", i+1, out, in)
	}
	fmt.Fprintln(r.ui)
}
