// Package protocol defines the message contract between rendering contexts
// and the host. The enumeration is closed: two message kinds, and everything
// else on the channel is ignored rather than rejected, since several
// independent contexts can post to the same channel.
package protocol

import (
	"encoding/json"

	"mockup/selection"
)

// Message kinds.
const (
	// TypeSelectionChanged flows context → host after every selection
	// mutation, including clears.
	TypeSelectionChanged = "selection-changed"

	// TypeClearSelection flows host → context, instructing it to deselect
	// without re-broadcasting.
	TypeClearSelection = "clear-selection"
)

// Message is the envelope exchanged across the context boundary. ContextID
// names the rendering-context instance so the host can tell several open
// documents apart.
type Message struct {
	Type      string                      `json:"type"`
	ContextID string                      `json:"contextID,omitempty"`
	Payload   []selection.SelectedElement `json:"payload,omitempty"`
}

// SelectionChanged builds a selection-changed message.
func SelectionChanged(contextID string, payload []selection.SelectedElement) Message {
	return Message{Type: TypeSelectionChanged, ContextID: contextID, Payload: payload}
}

// ClearSelection builds a clear-selection message.
func ClearSelection(contextID string) Message {
	return Message{Type: TypeClearSelection, ContextID: contextID}
}

// Encode serializes the message for the transport channel.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

// Decode parses a frame from the channel. Frames that do not decode, or
// whose kind is not part of the contract, are reported as not-ok and must be
// ignored by the receiver.
func Decode(data []byte) (Message, bool) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, false
	}
	switch m.Type {
	case TypeSelectionChanged, TypeClearSelection:
		return m, true
	default:
		return Message{}, false
	}
}
