package narrative

import (
	"math"
	"slices"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// ApplyEffect returns s with e applied. Effects naming a key the state does
// not hold, and unknown effect types, leave s unchanged.
func ApplyEffect(e content.NarrativeEffect, s state.SavedState) state.SavedState {
	switch e.Type {
	case content.GrantItem, content.UnlockItem, content.RemoveItem:
		it, ok := s.Items[e.Key]
		if !ok {
			return s
		}
		switch e.Type {
		case content.GrantItem:
			it.Available = true
			it.Count = state.ClampItemCount(it.Count + e.Amount())
		case content.UnlockItem:
			it.Available = true
		case content.RemoveItem:
			it.Count = state.ClampItemCount(it.Count - e.Amount())
		}
		next := s.Clone()
		next.Items[e.Key] = it
		return next

	case content.GrantGenerator, content.UnlockGenerator, content.RevealGenerator, content.RemoveGenerator:
		g, ok := s.Generators[e.Key]
		if !ok {
			return s
		}
		switch e.Type {
		case content.GrantGenerator:
			g.Visible, g.Available = true, true
			g.Count = addUnits(g.Count, e.Amount())
		case content.UnlockGenerator:
			g.Visible, g.Available = true, true
		case content.RevealGenerator:
			g.Visible = true
		case content.RemoveGenerator:
			g.Count = addUnits(g.Count, -e.Amount())
		}
		next := s.Clone()
		next.Generators[e.Key] = g
		return next

	case content.UnlockUpgrade, content.RevealUpgrade:
		u, ok := s.Upgrades[e.Key]
		if !ok {
			return s
		}
		u.Visible = true
		if e.Type == content.UnlockUpgrade {
			u.Available = true
		}
		next := s.Clone()
		next.Upgrades[e.Key] = u
		return next

	case content.UnlockScientist:
		if e.Key == "" || slices.Contains(s.UnlockedScientists, e.Key) {
			return s
		}
		next := s.Clone()
		next.UnlockedScientists = append(next.UnlockedScientists, e.Key)
		next.Narrative.ModalQueue = append(next.Narrative.ModalQueue, state.ModalEntry{
			Type: state.ModalScientistUnlock,
			Key:  e.Key,
		})
		return next
	}
	return s
}

// addUnits returns count+delta whole units, clamped to the owned range.
func addUnits(count int, delta float64) int {
	if math.IsNaN(delta) {
		return count
	}
	n := math.Trunc(float64(count) + delta)
	return int(min(state.MaxGeneratorCount, max(0, n)))
}

// ApplyEvent fires r unconditionally: applies its effects, logs its
// message, queues its modal and marks it triggered at the current game time.
func ApplyEvent(r content.NarrativeRule, s state.SavedState) state.SavedState {
	next := s
	for _, e := range r.Effects {
		next = ApplyEffect(e, next)
	}
	next = next.Clone()

	n := &next.Narrative
	n.Triggered = append(n.Triggered, r.Key)
	n.LastEventTime = n.GameTime
	n.MessageLog = append(n.MessageLog, state.LogEntry{
		EventKey:  r.Key,
		Timestamp: n.GameTime,
		Message:   r.Message,
		Speaker:   r.Speaker,
	})
	if over := len(n.MessageLog) - state.MessageLogCap; over > 0 {
		n.MessageLog = slices.Clone(n.MessageLog[over:])
	}
	if r.Modal {
		n.ModalQueue = append(n.ModalQueue, state.ModalEntry{Type: state.ModalNarrative, Key: r.Key})
	}
	showNextModal(n)
	return next
}

// showNextModal puts the head of the queue on screen if nothing is showing.
func showNextModal(n *state.NarrativeState) {
	if n.CurrentModal == nil && len(n.ModalQueue) > 0 {
		n.CurrentModal = state.String(n.ModalQueue[0].Key)
	}
}

// DismissModal closes the modal on screen and shows the next queued one.
func DismissModal(s state.SavedState) state.SavedState {
	if s.Narrative.CurrentModal == nil && len(s.Narrative.ModalQueue) == 0 {
		return s
	}
	next := s.Clone()
	n := &next.Narrative
	if len(n.ModalQueue) > 0 {
		n.ModalQueue = n.ModalQueue[1:]
	}
	n.CurrentModal = nil
	showNextModal(n)
	return next
}
