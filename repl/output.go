package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// termWriter converts \n to \r\n when f is a terminal, since raw mode turns
// off the kernel's output translation.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err
}

// entry is one converted line.
type entry struct {
	At      time.Time
	Input   string
	Output  string
	Mode    string
	Backend string
	Err     error
}

// writeEntry writes e as a TOML array-of-tables element, so a redirected
// log stays parseable as a whole.
func writeEntry(w io.Writer, e entry) {
	fmt.Fprintln(w, "[[conversion]]")
	fmt.Fprintf(w, "timestamp = %s\n", e.At.Format(time.RFC3339))
	fmt.Fprintf(w, "backend = %s\n", tomlQuote(e.Backend))
	fmt.Fprintf(w, "input = %s\n", tomlQuote(e.Input))
	if e.Err != nil {
		fmt.Fprintf(w, "error = %s\n", tomlQuote(e.Err.Error()))
	} else {
		fmt.Fprintf(w, "output = %s\n", tomlQuote(e.Output))
		fmt.Fprintf(w, "mode = %s\n", tomlQuote(e.Mode))
	}
	fmt.Fprintln(w)
}

// tomlQuote returns a TOML basic-string quoted value.
func tomlQuote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
