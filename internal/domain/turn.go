package domain

import "fmt"

// TurnRequest is one chat turn as submitted by the client. The
// assistant's full response to it is delivered as a stream of
// StreamEvent records.
type TurnRequest struct {
	Messages   []Message   `json:"messages"`
	Origin     string      `json:"origin,omitempty"` // "lng,lat" of the user, if known
	City       string      `json:"city,omitempty"`
	NavContext *NavContext `json:"navContext,omitempty"`
	Image      *Image      `json:"image,omitempty"`
	SessionID  string      `json:"sessionId,omitempty"`
}

// Validate checks the request's required fields.
func (r *TurnRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidInput)
	}
	for i, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: messages[%d] role %q", ErrInvalidInput, i, m.Role)
		}
	}
	if r.Origin != "" {
		if _, err := ParseLngLat(r.Origin); err != nil {
			return fmt.Errorf("origin: %w", err)
		}
	}
	if r.NavContext != nil && r.NavContext.DestinationLocation != "" {
		if _, err := ParseLngLat(r.NavContext.DestinationLocation); err != nil {
			return fmt.Errorf("navContext: %w", err)
		}
	}
	return nil
}
