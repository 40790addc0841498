package protocol

import (
	"testing"

	"mockup/selection"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := SelectionChanged("ctx-1", []selection.SelectedElement{
		{Selector: "#hero > h1", XPath: "/html/body/div/h1", TagName: "h1"},
	})

	decoded, ok := Decode(msg.Encode())
	if !ok {
		t.Fatal("round trip failed")
	}
	if decoded.Type != TypeSelectionChanged || decoded.ContextID != "ctx-1" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Payload) != 1 || decoded.Payload[0].Selector != "#hero > h1" {
		t.Errorf("payload = %+v", decoded.Payload)
	}
}

// Frames with unknown kinds or garbage bodies must be ignorable, not errors:
// unrelated contexts share the channel.
func TestDecodeIgnoresStrays(t *testing.T) {
	for _, frame := range []string{
		`{"type": "window-resized", "contextID": "ctx-9"}`,
		`{"type": ""}`,
		`not json at all`,
		``,
	} {
		if _, ok := Decode([]byte(frame)); ok {
			t.Errorf("Decode(%q) accepted a stray frame", frame)
		}
	}
}

func TestRouterAssociatesContextWithPage(t *testing.T) {
	var gotPage int64
	var gotPayload []selection.SelectedElement

	r := NewRouter(func(pageID int64, payload []selection.SelectedElement) {
		gotPage = pageID
		gotPayload = payload
	})
	r.Register("ctx-a", 1)
	r.Register("ctx-b", 2)

	r.Dispatch(SelectionChanged("ctx-b", []selection.SelectedElement{{TagName: "p"}}))

	if gotPage != 2 {
		t.Errorf("routed to page %d, want 2", gotPage)
	}
	if len(gotPayload) != 1 || gotPayload[0].TagName != "p" {
		t.Errorf("payload = %+v", gotPayload)
	}
	if active, ok := r.Active(); !ok || active != 2 {
		t.Errorf("Active = %d, %v", active, ok)
	}
}

func TestRouterIgnoresUnknownContext(t *testing.T) {
	called := false
	r := NewRouter(func(int64, []selection.SelectedElement) { called = true })
	r.Register("ctx-a", 1)

	r.Dispatch(SelectionChanged("ctx-zzz", nil))
	if called {
		t.Error("handler ran for an unregistered context")
	}
	if _, ok := r.Active(); ok {
		t.Error("stray message set the active target")
	}
}

func TestRouterIgnoresHostBoundKinds(t *testing.T) {
	called := false
	r := NewRouter(func(int64, []selection.SelectedElement) { called = true })
	r.Register("ctx-a", 1)

	r.Dispatch(ClearSelection("ctx-a"))
	if called {
		t.Error("clear-selection must not reach the selection handler")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRouter(nil)
	r.Register("ctx-a", 1)
	r.Dispatch(SelectionChanged("ctx-a", nil))
	r.Unregister("ctx-a")

	// Active target survives the context closing.
	if active, ok := r.Active(); !ok || active != 1 {
		t.Errorf("Active = %d, %v", active, ok)
	}

	// But further messages from it are dropped.
	r2called := false
	r.onSelection = func(int64, []selection.SelectedElement) { r2called = true }
	r.Dispatch(SelectionChanged("ctx-a", nil))
	if r2called {
		t.Error("message from unregistered context routed")
	}
}
