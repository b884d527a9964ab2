package reducer

import (
	"encoding/json"
	"fmt"
)

// Action is a state transition request. The set of actions is closed:
// every implementation lives in this file and Reduce switches over all of
// them.
type Action interface {
	// Kind returns the wire name, e.g. "purchaseGenerator".
	Kind() string
	action()
}

type SetTopic struct {
	Topic string `json:"topic"`
}

type SetTopicItem struct {
	Topic string `json:"topic"`
	Item  string `json:"item"`
}

type SetLeadScientist struct {
	Scientist string `json:"scientist"`
}

type UpdateGeneratorCount struct {
	Generator string `json:"generator"`
	Count     int    `json:"count"`
}

type UpdateItemCount struct {
	Item  string  `json:"item"`
	Count float64 `json:"count"`
}

// UpdateSettings merges the non-nil fields into the current settings.
type UpdateSettings struct {
	NumberFormat *string `json:"numberFormat,omitempty"`
}

type PurchaseGenerator struct {
	Generator string `json:"generator"`
	Count     int    `json:"count"`
}

type SellGenerator struct {
	Generator string `json:"generator"`
	Count     int    `json:"count"`
}

type PurchaseUpgrade struct {
	Upgrade string `json:"upgrade"`
}

// ResetState replaces the state with a fresh one.
type ResetState struct{}

// UpdatePrediction forces a solver run.
type UpdatePrediction struct{}

// Tick advances simulated time by DT milliseconds.
type Tick struct {
	DT float64 `json:"dt"`
}

// DismissNarrativeModal closes the modal currently shown.
type DismissNarrativeModal struct{}

// TriggerNarrativeEvent fires a narrative rule regardless of its conditions.
type TriggerNarrativeEvent struct {
	EventKey string `json:"eventKey"`
}

// LoadState is emitted to subscribers after a successful load. It is never
// dispatched.
type LoadState struct{}

// Unknown carries an action type this build does not understand.
type Unknown struct {
	Type string
}

func (SetTopic) Kind() string              { return "setTopic" }
func (SetTopicItem) Kind() string          { return "setTopicItem" }
func (SetLeadScientist) Kind() string      { return "setLeadScientist" }
func (UpdateGeneratorCount) Kind() string  { return "updateGeneratorCount" }
func (UpdateItemCount) Kind() string       { return "updateItemCount" }
func (UpdateSettings) Kind() string        { return "updateSettings" }
func (PurchaseGenerator) Kind() string     { return "purchaseGenerator" }
func (SellGenerator) Kind() string         { return "sellGenerator" }
func (PurchaseUpgrade) Kind() string       { return "purchaseUpgrade" }
func (ResetState) Kind() string            { return "resetState" }
func (UpdatePrediction) Kind() string      { return "updatePrediction" }
func (Tick) Kind() string                  { return "tick" }
func (DismissNarrativeModal) Kind() string { return "dismissNarrativeModal" }
func (TriggerNarrativeEvent) Kind() string { return "triggerNarrativeEvent" }
func (LoadState) Kind() string             { return "setState" }
func (u Unknown) Kind() string             { return u.Type }

func (SetTopic) action()              {}
func (SetTopicItem) action()          {}
func (SetLeadScientist) action()      {}
func (UpdateGeneratorCount) action()  {}
func (UpdateItemCount) action()       {}
func (UpdateSettings) action()        {}
func (PurchaseGenerator) action()     {}
func (SellGenerator) action()         {}
func (PurchaseUpgrade) action()       {}
func (ResetState) action()            {}
func (UpdatePrediction) action()      {}
func (Tick) action()                  {}
func (DismissNarrativeModal) action() {}
func (TriggerNarrativeEvent) action() {}
func (LoadState) action()             {}
func (Unknown) action()               {}

// envelope is the wire form: {"type": "...", "payload": {...}}.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction parses the wire form of an action. An unrecognised type
// decodes to Unknown rather than an error so that callers can report it.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode action: missing type")
	}

	var (
		a   Action
		err error
	)
	switch env.Type {
	case "setTopic":
		a = decodePayload[SetTopic](env.Payload, &err)
	case "setTopicItem":
		a = decodePayload[SetTopicItem](env.Payload, &err)
	case "setLeadScientist":
		a = decodePayload[SetLeadScientist](env.Payload, &err)
	case "updateGeneratorCount":
		a = decodePayload[UpdateGeneratorCount](env.Payload, &err)
	case "updateItemCount":
		a = decodePayload[UpdateItemCount](env.Payload, &err)
	case "updateSettings":
		a = decodePayload[UpdateSettings](env.Payload, &err)
	case "purchaseGenerator":
		a = decodePayload[PurchaseGenerator](env.Payload, &err)
	case "sellGenerator":
		a = decodePayload[SellGenerator](env.Payload, &err)
	case "purchaseUpgrade":
		a = decodePayload[PurchaseUpgrade](env.Payload, &err)
	case "resetState":
		a = ResetState{}
	case "updatePrediction":
		a = UpdatePrediction{}
	case "tick":
		a = decodePayload[Tick](env.Payload, &err)
	case "dismissNarrativeModal":
		a = DismissNarrativeModal{}
	case "triggerNarrativeEvent":
		a = decodePayload[TriggerNarrativeEvent](env.Payload, &err)
	default:
		a = Unknown{Type: env.Type}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return a, nil
}

func decodePayload[T Action](raw json.RawMessage, errOut *error) Action {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v
	}
	if e := json.Unmarshal(raw, &v); e != nil {
		*errOut = e
	}
	return v
}

// EncodeAction produces the wire form accepted by DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	env := envelope{Type: a.Kind()}
	switch a.(type) {
	case ResetState, UpdatePrediction, DismissNarrativeModal, LoadState, Unknown:
	default:
		payload, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.Kind(), err)
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}
