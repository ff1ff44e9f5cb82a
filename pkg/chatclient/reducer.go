package chatclient

import (
	"encoding/json"
	"io"
	"strings"
)

// FallbackMessage is shown when the transport fails before anything
// useful arrived.
const FallbackMessage = "连接出现问题，请稍后再试。"

// Message is one rendered assistant message.
type Message struct {
	Content    string
	Navigation *Navigation
	Places     []Place
	IsError    bool
}

// Conversation is the folded UI state of a turn.
type Conversation struct {
	Messages  []Message
	Thinking  bool   // waiting for the first sign of life
	Reading   bool   // caller-set while an attachment uploads, cleared with Thinking
	ToolLabel string // progress label while a tool runs, "" when idle
}

// Reducer folds the event stream into a Conversation. It is a strictly
// sequential, single-goroutine fold: Feed and Apply must not be called
// concurrently.
type Reducer struct {
	buf  []byte
	conv Conversation
	cur  int // index of this turn's assistant message, -1 before it exists
	done bool
}

// NewReducer creates a reducer for one turn.
func NewReducer() *Reducer {
	return &Reducer{conv: Conversation{Thinking: true}, cur: -1}
}

// Feed buffers a raw network chunk and applies every complete record
// in it. Unrecognized records are dropped.
func (r *Reducer) Feed(chunk []byte) {
	r.buf = append(r.buf, chunk...)
	records, rest := splitRecords(r.buf)
	r.buf = rest
	for _, rec := range records {
		if ev, ok := parseRecord(rec); ok {
			r.Apply(ev)
		}
	}
}

// Consume reads body to EOF, feeding every chunk. The caller should
// pair it with a deferred Fail so a mid-stream transport error still
// leaves the conversation in a terminal state.
func (r *Reducer) Consume(body io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			r.Feed(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Apply folds one event into the conversation.
func (r *Reducer) Apply(ev Event) {
	switch ev.Kind {
	case KindText:
		m := r.message()
		m.Content += ev.Data
		r.conv.Thinking = false

	case KindTextClear:
		// Text resets; structured data already attached stays.
		if r.cur >= 0 {
			r.conv.Messages[r.cur].Content = ""
		}

	case KindToolStart:
		var p toolStartPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err == nil && p.Label != "" {
			r.conv.ToolLabel = p.Label
		} else {
			r.conv.ToolLabel = p.Tool
		}
		r.conv.Thinking = false
		r.conv.Reading = false

	case KindToolData:
		var p toolDataPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil {
			return
		}
		m := r.message()
		if p.NavigationData != nil {
			m.Navigation = p.NavigationData
		}
		if len(p.PlacesData) > 0 {
			m.Places = p.PlacesData
		}
		r.conv.ToolLabel = ""

	case KindPlacesUpdate:
		var entries []placeEnrichment
		if err := json.Unmarshal([]byte(ev.Data), &entries); err != nil {
			return
		}
		r.enrichPlaces(entries)

	case KindError:
		var p errorPayload
		if err := json.Unmarshal([]byte(ev.Data), &p); err != nil || p.Message == "" {
			p.Message = FallbackMessage
		}
		m := r.message()
		m.Content = p.Message
		m.IsError = true
		r.clearIndicators()

	case KindDone:
		// Idempotent: re-applying after done changes nothing.
		r.done = true
		r.clearIndicators()
	}
}

// Fail forces the turn into a terminal state after a transport fault.
// Indicators always clear; a fallback message appears only when the
// stream never produced an assistant message. Safe to defer
// unconditionally, including after a successful turn.
func (r *Reducer) Fail() {
	r.clearIndicators()
	if r.done || r.cur >= 0 {
		return
	}
	m := r.message()
	m.Content = FallbackMessage
	m.IsError = true
}

// Done reports whether the turn terminated normally.
func (r *Reducer) Done() bool { return r.done }

// Conversation returns the current folded state.
func (r *Reducer) Conversation() Conversation { return r.conv }

// message returns this turn's assistant message, creating it on first
// use.
func (r *Reducer) message() *Message {
	if r.cur < 0 {
		r.conv.Messages = append(r.conv.Messages, Message{})
		r.cur = len(r.conv.Messages) - 1
		r.conv.Thinking = false
		r.conv.Reading = false
	}
	return &r.conv.Messages[r.cur]
}

// SetReading marks an attachment upload in progress. The stream clears
// it on the first tool_start, text, error or done.
func (r *Reducer) SetReading(v bool) { r.conv.Reading = v }

func (r *Reducer) clearIndicators() {
	r.conv.Thinking = false
	r.conv.Reading = false
	r.conv.ToolLabel = ""
}

// enrichPlaces merges enrichment entries into the attached place
// cards. Per place, in priority order: exact localized-name match,
// substring match either direction, then positional fallback on an
// unclaimed entry at the same index. Unmatched places stay as they
// are; partial enrichment is a normal terminal state.
func (r *Reducer) enrichPlaces(entries []placeEnrichment) {
	if r.cur < 0 || len(r.conv.Messages[r.cur].Places) == 0 {
		return
	}
	places := r.conv.Messages[r.cur].Places

	claimed := make([]bool, len(entries))
	matched := make([]int, len(places)) // entry index per place, -1 = none
	for i := range matched {
		matched[i] = -1
	}

	// Exact matches claim first.
	for i, p := range places {
		for j, e := range entries {
			if !claimed[j] && e.Name != "" && e.Name == p.Name {
				matched[i] = j
				claimed[j] = true
				break
			}
		}
	}

	// Substring either direction.
	for i, p := range places {
		if matched[i] >= 0 {
			continue
		}
		for j, e := range entries {
			if claimed[j] || e.Name == "" || p.Name == "" {
				continue
			}
			if strings.Contains(p.Name, e.Name) || strings.Contains(e.Name, p.Name) {
				matched[i] = j
				claimed[j] = true
				break
			}
		}
	}

	// Positional fallback.
	for i := range places {
		if matched[i] < 0 && i < len(entries) && !claimed[i] {
			matched[i] = i
			claimed[i] = true
		}
	}

	for i, j := range matched {
		if j < 0 {
			continue
		}
		if entries[j].EnglishName != "" {
			places[i].EnglishName = entries[j].EnglishName
		}
		if entries[j].Description != "" {
			places[i].Description = entries[j].Description
		}
	}
}
