package stream

import (
	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// NarrativePayload is the payload of a narrative message.
type NarrativePayload struct {
	Key     string `json:"key"`
	Speaker string `json:"speaker,omitempty"`
	Message string `json:"message"`
}

// Attach broadcasts every transition of g on h: a state message per
// dispatched action and a narrative message per fired rule. It must be
// called before g starts running. The returned func detaches.
func Attach(g *engine.Game, h *Hub) func() {
	unsubState := g.Subscribe(func(next state.SavedState, _ reducer.Action, _ state.SavedState) {
		if err := h.Broadcast(Message{Type: TypeState, Seq: g.Seq(), Payload: next}); err != nil {
			h.logger.Warn("state broadcast dropped", "seq", g.Seq(), "error", err)
		}
	})
	unsubNarrative := g.On(engine.EventNarrative, func(ev engine.Event) {
		msg := Message{
			Type: TypeNarrative,
			Seq:  g.Seq(),
			Payload: NarrativePayload{
				Key:     ev.Rule.Key,
				Speaker: ev.Rule.Speaker,
				Message: ev.Rule.Message,
			},
		}
		if err := h.Broadcast(msg); err != nil {
			h.logger.Warn("narrative broadcast dropped", "rule", ev.Rule.Key, "error", err)
		}
	})
	return func() {
		unsubState()
		unsubNarrative()
	}
}

// Greet queues the current state of g as the hub's snapshot, so clients
// that connect before the first transition still receive a state.
func Greet(g *engine.Game, h *Hub) error {
	return h.Broadcast(Message{Type: TypeState, Seq: g.Seq(), Payload: g.State()})
}
