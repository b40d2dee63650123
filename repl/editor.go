package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// lineReader yields one line of input per call. It returns io.EOF when the
// input is exhausted.
type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// Editor is an append-only line editor on /dev/tty. Copied text is always
// typed or pasted at the end, so there is no cursor movement.
type Editor struct {
	tty      *os.File
	oldState *term.State
	buf      []byte
}

// NewEditor opens /dev/tty and switches it to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Editor{tty: tty, oldState: old}, nil
}

// Close restores the terminal and closes the tty.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the tty for prompts and summaries.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// ReadLine shows prompt and reads until Enter. Ctrl-D on an empty line
// returns io.EOF.
func (e *Editor) ReadLine(prompt string) (string, error) {
	e.buf = e.buf[:0]
	e.redraw(prompt)

	var b [1]byte
	for {
		if _, err := e.tty.Read(b[:]); err != nil {
			return "", err
		}

		switch b[0] {
		case 3: // Ctrl-C
			fmt.Fprint(e.tty, "\r\n")
			return "", ErrInterrupt

		case 4: // Ctrl-D
			if len(e.buf) == 0 {
				fmt.Fprint(e.tty, "\r\n")
				return "", io.EOF
			}

		case 13, 10:
			fmt.Fprint(e.tty, "\r\n")
			return string(e.buf), nil

		case 127, 8: // Backspace / Ctrl-H
			e.buf = dropLastRune(e.buf)

		case 21: // Ctrl-U
			e.buf = e.buf[:0]

		case 27:
			e.skipEscape()

		default:
			if b[0] >= 32 {
				e.buf = append(e.buf, b[0])
				if n := leadLen(b[0]) - 1; n > 0 {
					rest := make([]byte, n)
					io.ReadFull(e.tty, rest)
					e.buf = append(e.buf, rest...)
				}
			}
		}

		e.redraw(prompt)
	}
}

// skipEscape consumes a CSI sequence such as an arrow key.
func (e *Editor) skipEscape() {
	var b [1]byte
	if n, _ := e.tty.Read(b[:]); n == 0 || b[0] != '[' {
		return
	}
	for {
		if n, _ := e.tty.Read(b[:]); n == 0 || (b[0] >= 0x40 && b[0] <= 0x7e) {
			return
		}
	}
}

func (e *Editor) redraw(prompt string) {
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s", prompt, e.buf)
}

// dropLastRune removes the final UTF-8 sequence from buf.
func dropLastRune(buf []byte) []byte {
	if len(buf) == 0 {
		return buf
	}
	_, size := utf8.DecodeLastRune(buf)
	return buf[:len(buf)-size]
}

// leadLen returns the byte length of a UTF-8 sequence from its first byte.
func leadLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	}
	return 4
}

// scanReader reads lines from redirected input. The prompt is dropped.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	return &scanReader{sc: bufio.NewScanner(r)}
}

func (s *scanReader) ReadLine(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
