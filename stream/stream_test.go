package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mockup/llm"
	"mockup/response"
)

// fakeProvider scripts one model turn.
type fakeProvider struct {
	run func(ctx context.Context, onToken func(string)) (string, error)
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return true }
func (f *fakeProvider) Stream(ctx context.Context, system string, messages []llm.Message, onToken func(string)) (string, error) {
	if onToken == nil {
		onToken = func(string) {}
	}
	return f.run(ctx, onToken)
}

// fakeTarget records mutations against a mutable document.
type fakeTarget struct {
	mu       sync.Mutex
	html     string
	cleared  int
	replaced int
}

func (t *fakeTarget) HTML() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.html
}

func (t *fakeTarget) Replace(html string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.html = html
	t.replaced++
}

func (t *fakeTarget) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleared++
}

const baseDoc = `<!DOCTYPE html><html><head></head><body><h1>Old</h1></body></html>`

func patchReply(text string) string {
	return "Sure.\n\n```json\n[{\"op\": \"replaceText\", \"selector\": \"h1\", \"text\": \"" + text + "\"}]\n```"
}

func TestCompletedTurnAppliesPatches(t *testing.T) {
	var tokens []string
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			reply := patchReply("New")
			for _, chunk := range []string{reply[:10], reply[10:]} {
				onToken(chunk)
			}
			return reply, nil
		},
	}))

	target := &fakeTarget{html: baseDoc}
	out, err := orch.Run(context.Background(), "1", target, "", nil, func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Phase != Completed {
		t.Errorf("Phase = %v", out.Phase)
	}
	if out.Result != response.PatchList || !out.Mutated {
		t.Errorf("Result = %v, Mutated = %v", out.Result, out.Mutated)
	}
	if len(tokens) != 2 {
		t.Errorf("expected 2 surfaced tokens, got %d", len(tokens))
	}
	if !strings.Contains(target.HTML(), "<h1>New</h1>") {
		t.Errorf("document not patched: %s", target.HTML())
	}
	if target.cleared != 1 {
		t.Errorf("selection cleared %d times, want 1", target.cleared)
	}
}

func TestUnrecognizedReplyLeavesDocumentAlone(t *testing.T) {
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			return "I don't understand the request.", nil
		},
	}))

	target := &fakeTarget{html: baseDoc}
	out, err := orch.Run(context.Background(), "1", target, "", nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Result != response.Unrecognized || out.Mutated {
		t.Errorf("Result = %v, Mutated = %v", out.Result, out.Mutated)
	}
	if target.HTML() != baseDoc || target.replaced != 0 {
		t.Error("document must be untouched")
	}
}

// Cancellation post-processes exactly like completion, applied to whatever
// had accumulated.
func TestCancelledTurnAppliesPartialBuffer(t *testing.T) {
	started := make(chan struct{})
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			partial := patchReply("Partial")
			onToken(partial)
			close(started)
			<-ctx.Done()
			return partial, ctx.Err()
		},
	}))

	target := &fakeTarget{html: baseDoc}

	done := make(chan Outcome, 1)
	go func() {
		out, err := orch.Run(context.Background(), "1", target, "", nil, nil)
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- out
	}()

	<-started
	if !orch.Cancel("1") {
		t.Fatal("Cancel found no active stream")
	}

	out := <-done
	if out.Phase != Cancelled {
		t.Errorf("Phase = %v, want Cancelled", out.Phase)
	}
	if !out.Mutated || !strings.Contains(target.HTML(), "<h1>Partial</h1>") {
		t.Errorf("partial patch not applied: %s", target.HTML())
	}
}

func TestFailedTurnKeepsDocumentAndText(t *testing.T) {
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			onToken("some partial prose")
			return "some partial prose", errors.New("connection reset")
		},
	}))

	target := &fakeTarget{html: baseDoc}
	out, err := orch.Run(context.Background(), "1", target, "", nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Phase != Failed || out.Err == nil {
		t.Errorf("Phase = %v, Err = %v", out.Phase, out.Err)
	}
	if out.Text != "some partial prose" {
		t.Errorf("accumulated text dropped: %q", out.Text)
	}
	if target.replaced != 0 {
		t.Error("failure must not mutate the document")
	}
}

func TestConcurrentStreamRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			close(started)
			<-release
			return "", nil
		},
	}))

	target := &fakeTarget{html: baseDoc}
	go orch.Run(context.Background(), "1", target, "", nil, nil)
	<-started

	if _, err := orch.Run(context.Background(), "1", target, "", nil, nil); !errors.Is(err, ErrBusy) {
		t.Errorf("second Run err = %v, want ErrBusy", err)
	}

	// A different document streams concurrently without complaint.
	if orch.Active("2") {
		t.Error("document 2 should be idle")
	}

	close(release)

	// The slot frees up once the turn reaches a terminal state.
	deadline := time.After(2 * time.Second)
	for orch.Active("1") {
		select {
		case <-deadline:
			t.Fatal("stream slot never released")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// The document is re-read when patches apply, not captured at turn start.
func TestAppliesAgainstFreshState(t *testing.T) {
	target := &fakeTarget{html: baseDoc}

	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			// Another mutation lands while the stream is in flight.
			target.Replace(`<!DOCTYPE html><html><head></head><body><h1>Interim</h1><p>kept</p></body></html>`)
			return patchReply("Final"), nil
		},
	}))

	out, err := orch.Run(context.Background(), "1", target, "", nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Mutated {
		t.Fatal("expected mutation")
	}

	html := target.HTML()
	if !strings.Contains(html, "<h1>Final</h1>") {
		t.Errorf("patch missed: %s", html)
	}
	if !strings.Contains(html, "<p>kept</p>") {
		t.Errorf("patch applied to stale state: %s", html)
	}
}

func TestSkippedOperationsSurfaceAsWarnings(t *testing.T) {
	orch := New(llm.NewClient(&fakeProvider{
		run: func(ctx context.Context, onToken func(string)) (string, error) {
			return "```json\n[{\"op\": \"remove\", \"selector\": \".nonexistent\"}]\n```", nil
		},
	}))

	target := &fakeTarget{html: baseDoc}
	out, err := orch.Run(context.Background(), "1", target, "", nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(out.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(out.Warnings))
	}
	if !strings.Contains(target.HTML(), "<h1>Old</h1>") {
		t.Error("document content should be unchanged")
	}
}
