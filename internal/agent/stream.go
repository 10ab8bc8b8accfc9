package agent

import (
	"context"
	"time"

	"flight_assistant/internal/guardrail"
)

// Stream event types, emitted in loop order. A final event is always the
// last one on the channel.
const (
	EventThought    = "thought"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventDraft      = "draft"
	EventGuardrail  = "guardrail"
	EventReflection = "reflection"
	EventSafeFail   = "safe_fail"
	EventFinal      = "final"
)

// Event is one progress notification from a streaming run.
type Event struct {
	Type    string         `json:"type"`
	TS      float64        `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}

func newEvent(typ string, payload map[string]any) Event {
	return Event{
		Type:    typ,
		TS:      float64(time.Now().UnixNano()) / 1e9,
		Payload: payload,
	}
}

func guardrailEvent(ver *guardrail.Result, attempt int) Event {
	return newEvent(EventGuardrail, map[string]any{
		"attempt":      attempt,
		"status":       ver.Status,
		"verification": ver,
	})
}

// RunStream answers one query while streaming progress events. The channel
// is closed after the final event. If the context is canceled mid-run the
// stream ends with a single final event carrying the canceled marker and no
// further guardrail events.
func (a *Agent) RunStream(ctx context.Context, query string) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		emit := func(e Event) {
			select {
			case ch <- e:
			case <-ctx.Done():
			}
		}

		resp, err := a.execute(ctx, query, emit)
		// The final event is sent blocking: intra-run events may be dropped
		// on cancellation, but a ranging consumer must always observe the
		// terminal event before the channel closes.
		if err != nil {
			ch <- newEvent(EventFinal, map[string]any{"error": err.Error()})
			return
		}
		ch <- newEvent(EventFinal, map[string]any{"response": resp})
	}()
	return ch
}
