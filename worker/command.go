package worker

import (
	"fmt"
	"os"

	"mvdan.cc/sh/v3/shell"

	clipime "github.com/Paranoid-AF/clipime"
)

// ModeArg is the argument that makes the clipime binary run as a worker.
const ModeArg = "worker"

// Command returns the worker argv. A configured command is split with
// shell quoting rules and may reference environment variables; otherwise
// the running executable is re-invoked in worker mode.
func Command(cfg *clipime.Config) ([]string, error) {
	if command := clipime.ResolveWorkerCommand(cfg); command != "" {
		argv, err := shell.Fields(command, os.Getenv)
		if err != nil {
			return nil, fmt.Errorf("worker command %q: %w", command, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("worker command %q: no program", command)
		}
		return argv, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return []string{exe, ModeArg}, nil
}
