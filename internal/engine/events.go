package engine

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// EventType names a game event delivered through Game.On.
type EventType string

const (
	EventStateChange        EventType = "stateChange"
	EventNarrative          EventType = "narrativeEvent"
	EventGeneratorPurchased EventType = "generatorPurchased"
	EventUpgradeAcquired    EventType = "upgradeAcquired"
	EventItemUnlocked       EventType = "itemUnlocked"
	EventGeneratorUnlocked  EventType = "generatorUnlocked"
	EventUpgradeUnlocked    EventType = "upgradeUnlocked"

	// EventAll subscribes to every event type.
	EventAll EventType = "*"
)

// Event is a notification emitted after a transition. Which fields are set
// depends on Type.
type Event struct {
	Type   EventType
	Action reducer.Action

	// Prev and Next are set for stateChange.
	Prev, Next state.SavedState

	// Rule is set for narrativeEvent.
	Rule content.NarrativeRule

	// Key names the generator, upgrade or item for the other types;
	// Count is the number of generators bought.
	Key   string
	Count int
}

type handler struct {
	id int
	fn func(Event)
}

// emitter delivers events to per-type and wildcard handlers in
// registration order.
type emitter struct {
	nextID   int
	handlers map[EventType][]handler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]handler)}
}

func (e *emitter) on(t EventType, fn func(Event)) func() {
	e.nextID++
	id := e.nextID
	e.handlers[t] = append(e.handlers[t], handler{id: id, fn: fn})
	return func() {
		hs := e.handlers[t]
		for i, h := range hs {
			if h.id == id {
				e.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	// copies, so handlers may unsubscribe while being called
	specific := append([]handler(nil), e.handlers[ev.Type]...)
	wildcard := append([]handler(nil), e.handlers[EventAll]...)
	for _, h := range specific {
		h.fn(ev)
	}
	for _, h := range wildcard {
		h.fn(ev)
	}
}

// derivedEvents lists the purchase and unlock events implied by a
// transition from prev to next, in a stable order.
func derivedEvents(m *content.MatterData, a reducer.Action, prev, next state.SavedState) []Event {
	var out []Event

	switch act := a.(type) {
	case reducer.PurchaseGenerator:
		if bought := next.Generators[act.Generator].Count - prev.Generators[act.Generator].Count; bought > 0 {
			out = append(out, Event{Type: EventGeneratorPurchased, Action: a, Key: act.Generator, Count: bought})
		}
	case reducer.PurchaseUpgrade:
		if !prev.Upgrades[act.Upgrade].Active() && next.Upgrades[act.Upgrade].Active() {
			out = append(out, Event{Type: EventUpgradeAcquired, Action: a, Key: act.Upgrade})
		}
	}

	for _, k := range m.ItemKeys() {
		if !prev.Items[k].Available && next.Items[k].Available {
			out = append(out, Event{Type: EventItemUnlocked, Action: a, Key: k})
		}
	}
	for _, k := range m.GeneratorKeys() {
		if !prev.Generators[k].Available && next.Generators[k].Available {
			out = append(out, Event{Type: EventGeneratorUnlocked, Action: a, Key: k})
		}
	}
	for _, k := range m.UpgradeKeys() {
		if !prev.Upgrades[k].Available && next.Upgrades[k].Available {
			out = append(out, Event{Type: EventUpgradeUnlocked, Action: a, Key: k})
		}
	}
	return out
}
