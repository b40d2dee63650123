package backend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clipime "github.com/Paranoid-AF/clipime"
)

// recordingEngine returns the composing text and a suffixed variant. It is
// deliberately not synchronized: Direct must never call it concurrently.
type recordingEngine struct {
	calls    int
	active   int
	overlaps int
	composed []string
	contexts []string
	panicOn  string
}

func (e *recordingEngine) Candidates(composing, leftContext string) []clipime.Candidate {
	e.active++
	if e.active > 1 {
		e.overlaps++
	}
	defer func() { e.active-- }()

	e.calls++
	e.composed = append(e.composed, composing)
	e.contexts = append(e.contexts, leftContext)
	if e.panicOn != "" && composing == e.panicOn {
		panic("engine failure")
	}
	return []clipime.Candidate{
		{Text: composing, Rank: 1},
		{Text: composing, Rank: 2},
		{Text: "X" + composing, Rank: 3},
	}
}

func newTestDirect(t *testing.T, engine Engine) *Direct {
	t.Helper()
	d := NewDirect(engine, nil)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDirectInsertAndRequest(t *testing.T) {
	engine := &recordingEngine{}
	d := newTestDirect(t, engine)
	ctx := context.Background()

	require.NoError(t, d.ResetComposingText(ctx))
	require.NoError(t, d.InsertAtCursorPosition(ctx, "henkan"))

	got, err := d.RequestCandidates(ctx, "今日は")
	require.NoError(t, err)

	assert.Equal(t, []string{"henkann", "Xhenkann"}, clipime.Texts(got))
	assert.Equal(t, []string{"henkann§"}, engine.composed)
	assert.Equal(t, []string{"今日は"}, engine.contexts)
}

func TestDirectResetClearsComposing(t *testing.T) {
	engine := &recordingEngine{}
	d := newTestDirect(t, engine)
	ctx := context.Background()

	require.NoError(t, d.InsertAtCursorPosition(ctx, "ka"))
	require.NoError(t, d.ResetComposingText(ctx))
	require.NoError(t, d.InsertAtCursorPosition(ctx, "ki"))
	_, err := d.RequestCandidates(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ki§"}, engine.composed)
}

func TestDirectSerializesCalls(t *testing.T) {
	engine := &recordingEngine{}
	d := newTestDirect(t, engine)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.RequestCandidates(ctx, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, engine.calls)
	assert.Zero(t, engine.overlaps)
}

func TestDirectClosed(t *testing.T) {
	d := NewDirect(&recordingEngine{}, nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "second close is a no-op")

	_, err := d.RequestCandidates(context.Background(), "")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.InsertAtCursorPosition(context.Background(), "a"), ErrClosed)
}

func TestDirectCancelledContext(t *testing.T) {
	d := newTestDirect(t, &recordingEngine{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either outcome of the select race is valid; a cancelled caller must
	// never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.ResetComposingText(ctx)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ResetComposingText blocked on cancelled context")
	}
}

func TestDirectEnginePanic(t *testing.T) {
	engine := &recordingEngine{panicOn: "boom§"}
	d := newTestDirect(t, engine)
	ctx := context.Background()

	require.NoError(t, d.InsertAtCursorPosition(ctx, "boom"))
	got, err := d.RequestCandidates(ctx, "")
	assert.Error(t, err)
	assert.Empty(t, got)

	// The owner goroutine survives.
	require.NoError(t, d.ResetComposingText(ctx))
	require.NoError(t, d.InsertAtCursorPosition(ctx, "ok"))
	got, err = d.RequestCandidates(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", got[0].Text)
}
