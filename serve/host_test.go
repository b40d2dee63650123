package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/convert"
)

// syncBuffer is a bytes.Buffer safe for the sink goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// fixedBackend answers every request with the composing text suffixed by
// its own marker, or with nothing when empty is set.
type fixedBackend struct {
	marker    string
	empty     bool
	composing string
}

func (b *fixedBackend) ResetComposingText(context.Context) error {
	b.composing = ""
	return nil
}

func (b *fixedBackend) InsertAtCursorPosition(_ context.Context, text string) error {
	b.composing += text
	return nil
}

func (b *fixedBackend) RequestCandidates(context.Context, string) ([]clipime.Candidate, error) {
	if b.empty {
		return nil, nil
	}
	return []clipime.Candidate{{Text: b.composing + b.marker}}, nil
}

type fakeOpener struct {
	opened  []*fixedBackend
	closed  int
	fail    bool
	backend func() *fixedBackend
}

func (o *fakeOpener) open(_ context.Context, _ *clipime.Config) (*binding, error) {
	if o.fail {
		return nil, errors.New("cannot open")
	}
	b := o.backend()
	o.opened = append(o.opened, b)
	return &binding{kind: "fake", backend: b, close: func() { o.closed++ }}, nil
}

func testConfig() *clipime.Config {
	cfg := clipime.DefaultConfig()
	cfg.Output.Mode = clipime.OutputStdout
	return cfg
}

func newTestHost(t *testing.T, o *fakeOpener) (*Host, *syncBuffer) {
	t.Helper()
	t.Setenv("CLIPIME_OUTPUT_MODE", "")
	out := &syncBuffer{}
	h, err := newHost(context.Background(), testConfig(), o.open, out, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return h, out
}

func convertText(h *Host, session, text string) *clipime.ConvertResponse {
	return h.Convert(context.Background(), &clipime.ConvertRequest{SessionID: session, Text: text})
}

func TestHostConvertDelivers(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, out := newTestHost(t, o)

	resp := convertText(h, "s", "kyou")
	if resp.Error != nil || resp.Converted != "kyou!" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := out.Lines(); len(got) != 1 || got[0] != "kyou!" {
		t.Errorf("delivered %q", got)
	}
}

func TestHostFailureDeliversOriginal(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{empty: true} }}
	h, out := newTestHost(t, o)

	resp := convertText(h, "s", "kyou")
	if resp.Error == nil || resp.Error.Code != "conversion_failed" {
		t.Fatalf("expected conversion_failed, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, convert.ErrNoCandidates.Error()) {
		t.Errorf("error message %q", resp.Error.Message)
	}
	if resp.Converted != "kyou" {
		t.Errorf("converted = %q, want original", resp.Converted)
	}
	if got := out.Lines(); len(got) != 1 || got[0] != "kyou" {
		t.Errorf("delivered %q", got)
	}
}

func TestHostSkipsWithoutDelivering(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, out := newTestHost(t, o)

	for _, text := range []string{"", "see https://example.com/a", strings.Repeat("a", 141)} {
		resp := convertText(h, "s", text)
		if resp.Error == nil || resp.Error.Code != "skipped" {
			t.Errorf("%q: expected skipped, got %+v", text, resp.Error)
		}
		if resp.Converted != text {
			t.Errorf("%q: converted = %q", text, resp.Converted)
		}
	}
	if got := out.Lines(); len(got) != 0 {
		t.Errorf("skipped text was delivered: %q", got)
	}
}

func TestHostSessionsAreIndependent(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, _ := newTestHost(t, o)

	convertText(h, "a", "ka")
	// Same text in another session converts from scratch.
	if resp := convertText(h, "b", "kaki"); resp.Converted != "kaki!" {
		t.Errorf("session b converted %q", resp.Converted)
	}
	// Session a only converts the new tail against its own last output.
	if resp := convertText(h, "a", "ka!ki"); resp.Converted != "ka!ki!" {
		t.Errorf("session a converted %q", resp.Converted)
	}
}

func TestHostEmptySessionIDUsesDefault(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, _ := newTestHost(t, o)

	first := convertText(h, "", "ka")
	again := convertText(h, defaultSession, first.Converted)
	// Repeating the output reconverts: the raw delta comes back first.
	if again.Converted != "ka" {
		t.Errorf("reconversion in default session gave %q", again.Converted)
	}
}

func TestHostReloadReplacesBackend(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, _ := newTestHost(t, o)

	convertText(h, "s", "ka")
	if err := h.Reload(context.Background(), testConfig()); err != nil {
		t.Fatal(err)
	}
	if len(o.opened) != 2 || o.closed != 1 {
		t.Fatalf("opened %d, closed %d", len(o.opened), o.closed)
	}

	// History was dropped: the previous output is no longer a repeat.
	resp := convertText(h, "s", "ka!")
	if resp.Converted != "ka!!" {
		t.Errorf("converted %q after reload", resp.Converted)
	}
	if o.opened[1].composing != "ka!" {
		t.Errorf("new backend saw %q", o.opened[1].composing)
	}
}

func TestHostReloadFailureLeavesNoBackend(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, _ := newTestHost(t, o)

	o.fail = true
	if err := h.Reload(context.Background(), testConfig()); err == nil {
		t.Fatal("expected reload error")
	}
	resp := convertText(h, "s", "ka")
	if resp.Error == nil || resp.Error.Code != "conversion_failed" || resp.Converted != "ka" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHostClose(t *testing.T) {
	o := &fakeOpener{backend: func() *fixedBackend { return &fixedBackend{marker: "!"} }}
	h, _ := newTestHost(t, o)

	h.Close()
	h.Close()
	if o.closed != 1 {
		t.Errorf("binding closed %d times", o.closed)
	}
	if resp := convertText(h, "s", "ka"); resp.Error == nil {
		t.Error("expected error after Close")
	}
	if err := h.Reload(context.Background(), testConfig()); err != nil {
		t.Errorf("Reload after Close: %v", err)
	}
}

func TestNewHostOpenFailure(t *testing.T) {
	o := &fakeOpener{fail: true}
	if _, err := newHost(context.Background(), testConfig(), o.open, &syncBuffer{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
