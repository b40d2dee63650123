package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	clipime "github.com/Paranoid-AF/clipime"
)

// Sink receives converted text.
type Sink interface {
	Deliver(text string) error
	Close() error
}

func openSink(cfg *clipime.Config, stdout io.Writer) (Sink, error) {
	switch clipime.ResolveOutputMode(cfg) {
	case clipime.OutputChatbox:
		return newChatboxSink(oscAddress(cfg), false)
	case clipime.OutputSendDirectly:
		return newChatboxSink(oscAddress(cfg), true)
	default:
		return &lineSink{w: stdout}, nil
	}
}

func oscAddress(cfg *clipime.Config) string {
	if cfg != nil && cfg.Output.OSCAddress != "" {
		return cfg.Output.OSCAddress
	}
	return "127.0.0.1:9000"
}

// lineSink writes one line per delivered text.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) Deliver(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, text)
	return err
}

func (s *lineSink) Close() error { return nil }

// chatboxSink sends text to a VRChat chatbox over OSC. With immediate set
// the message is sent straight away; otherwise it is placed in the
// keyboard for the user to confirm.
type chatboxSink struct {
	conn      net.Conn
	immediate bool
}

func newChatboxSink(address string, immediate bool) (*chatboxSink, error) {
	conn, err := net.Dial("udp", address)
	if err != nil {
		return nil, fmt.Errorf("osc %s: %w", address, err)
	}
	return &chatboxSink{conn: conn, immediate: immediate}, nil
}

func (s *chatboxSink) Deliver(text string) error {
	_, err := s.conn.Write(chatboxMessage(text, s.immediate))
	return err
}

func (s *chatboxSink) Close() error {
	return s.conn.Close()
}

// chatboxMessage encodes /chatbox/input with arguments (text, immediate,
// notify=true) as an OSC 1.0 message.
func chatboxMessage(text string, immediate bool) []byte {
	tags := ",sFT"
	if immediate {
		tags = ",sTT"
	}
	var buf bytes.Buffer
	writeOSCString(&buf, "/chatbox/input")
	writeOSCString(&buf, tags)
	writeOSCString(&buf, text)
	return buf.Bytes()
}

// writeOSCString writes s null-terminated and padded to a multiple of four
// bytes.
func writeOSCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.Write(make([]byte, 4-len(s)%4))
}
