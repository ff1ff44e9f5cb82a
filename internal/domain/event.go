package domain

import "encoding/json"

// EventKind identifies the kind of event on a turn's push stream.
type EventKind string

// Stream event kinds. Within one turn: at most one tool_start;
// tool_data only after tool_start; follow-up text is preceded by
// exactly one text_clear when any pre-tool text was streamed; done is
// last and exactly once. places_update is enrichment and may arrive
// at any point, including after done.
const (
	EventText         EventKind = "text"
	EventTextClear    EventKind = "text_clear"
	EventToolStart    EventKind = "tool_start"
	EventToolData     EventKind = "tool_data"
	EventPlacesUpdate EventKind = "places_update"
	EventError        EventKind = "error"
	EventDone         EventKind = "done"
)

// StreamEvent is one record on a turn's event stream. Data is plain
// text for EventText and a JSON document for every other kind.
type StreamEvent struct {
	Kind EventKind
	Data string
}

// ToolStartPayload announces a tool invocation with a human label.
type ToolStartPayload struct {
	Tool  string `json:"tool"`
	Label string `json:"label"`
}

// ToolDataPayload carries the structured results of a tool call.
// Absent payloads omit their key entirely; an empty object is never
// emitted.
type ToolDataPayload struct {
	NavigationData *NavigationResult `json:"navigationData,omitempty"`
	PlacesData     []PlaceResult     `json:"placesData,omitempty"`
}

// ErrorPayload is the user-safe message of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// TextEvent builds a text event.
func TextEvent(s string) StreamEvent { return StreamEvent{Kind: EventText, Data: s} }

// JSONEvent marshals payload and builds an event of the given kind.
func JSONEvent(kind EventKind, payload any) (StreamEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return StreamEvent{}, err
	}
	return StreamEvent{Kind: kind, Data: string(data)}, nil
}
