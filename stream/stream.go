// Package stream coordinates one model turn per document: token
// accumulation, cancellation, and post-processing of the reply against the
// freshest document state. At most one stream may be active per document;
// batches of patches are thereby serialized per page.
package stream

import (
	"context"
	"errors"
	"sync"

	"mockup/llm"
	"mockup/patch"
	"mockup/response"
)

// ErrBusy is returned when a stream is already active for the document.
var ErrBusy = errors.New("a stream is already active for this document")

// Phase is the terminal state of a turn.
type Phase int

const (
	Completed Phase = iota
	Cancelled
	Failed
)

func (p Phase) String() string {
	switch p {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Target is the document a turn edits. HTML is re-read at the moment of
// patch application; implementations must always return current state.
type Target interface {
	HTML() string
	Replace(html string)
	ClearSelection()
}

// Outcome describes how a turn ended and what it did to the document.
type Outcome struct {
	Phase    Phase
	Text     string          // full accumulated model output
	Result   response.Kind   // what the parser made of it
	Warnings []patch.Warning // skipped operations, when patches applied
	Mutated  bool            // whether the document was replaced
	Err      error           // transport error for Failed turns
}

// Orchestrator runs turns and tracks the active stream per document.
type Orchestrator struct {
	mu     sync.Mutex
	client *llm.Client
	active map[string]context.CancelFunc
}

// New creates an orchestrator sending through client.
func New(client *llm.Client) *Orchestrator {
	return &Orchestrator{
		client: client,
		active: make(map[string]context.CancelFunc),
	}
}

// Active reports whether a stream is currently running for the document.
func (o *Orchestrator) Active(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// Cancel stops the active stream for the document, if any. The turn still
// post-processes whatever text had accumulated; a truncated but well-formed
// patch list is common and worth applying.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.active[id]
	if ok {
		cancel()
	}
	return ok
}

// Run executes one turn for the document named by id, blocking until the
// turn reaches a terminal state. onToken surfaces each fragment for live
// display; it may be nil. Run returns ErrBusy without side effects when a
// stream is already active for id.
func (o *Orchestrator) Run(ctx context.Context, id string, target Target, system string, messages []llm.Message, onToken func(string)) (Outcome, error) {
	o.mu.Lock()
	if _, ok := o.active[id]; ok {
		o.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	o.active[id] = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.active, id)
		o.mu.Unlock()
	}()

	text, err := o.client.Stream(ctx, system, messages, onToken)

	switch {
	case err == nil:
		out := o.postProcess(target, text)
		out.Phase = Completed
		return out, nil

	case errors.Is(err, context.Canceled):
		// Cancellation gets the same post-processing as completion,
		// applied to the partial buffer.
		out := o.postProcess(target, text)
		out.Phase = Cancelled
		return out, nil

	default:
		// Transport failure: no mutation, but the accumulated text stays
		// visible to the caller.
		return Outcome{Phase: Failed, Text: text, Err: err}, nil
	}
}

// postProcess parses the accumulated text and applies the result against the
// target's current state, re-read here rather than captured when the turn
// started: another mutation may have landed in the interim.
func (o *Orchestrator) postProcess(target Target, text string) Outcome {
	out := Outcome{Text: text}

	res := response.Parse(text)
	out.Result = res.Kind

	switch res.Kind {
	case response.PatchList:
		next, warnings := patch.Apply(target.HTML(), res.Ops)
		out.Warnings = warnings
		target.Replace(next)
		target.ClearSelection()
		out.Mutated = true

	case response.FullDocument:
		target.Replace(res.Document)
		target.ClearSelection()
		out.Mutated = true
	}

	return out
}
