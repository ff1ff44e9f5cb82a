package domain

import "context"

// TurnContext carries per-turn request state that tools need but the
// model does not supply as arguments: the user's current location, the
// active city and an optionally pre-resolved destination.
type TurnContext struct {
	Origin *LngLat
	City   string
	Nav    *NavContext
}

type turnContextKey struct{}

// ContextWithTurn attaches per-turn state to ctx for tools to read.
func ContextWithTurn(ctx context.Context, tc TurnContext) context.Context {
	return context.WithValue(ctx, turnContextKey{}, tc)
}

// TurnFromContext extracts the per-turn state from ctx. A context
// without one yields the zero value.
func TurnFromContext(ctx context.Context) TurnContext {
	tc, _ := ctx.Value(turnContextKey{}).(TurnContext)
	return tc
}
