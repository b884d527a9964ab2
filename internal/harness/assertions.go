package harness

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v", event.Seq, event.Action, event.Args)
			if len(event.Fired) > 0 {
				fmt.Fprintf(&buf, " fired=%v", event.Fired)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertNarrativeOrder:
			err = assertNarrativeOrder(result, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks if the trace contains an action matching
// the specified args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Action == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	names := make([]string, len(trace))
	for i, ev := range trace {
		names[i] = ev.Action
	}
	if missing, ok := subsequence(names, assertion.Actions); !ok {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
			Actual:   fmt.Sprintf("%s not found after the preceding actions", missing),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertNarrativeOrder checks that the rules fired in the given order,
// possibly with other rules in between.
func assertNarrativeOrder(result *Result, assertion Assertion) error {
	if missing, ok := subsequence(result.Fired(), assertion.Rules); !ok {
		return &AssertionError{
			Type:     AssertNarrativeOrder,
			Expected: fmt.Sprintf("rules in order: %v", assertion.Rules),
			Actual:   fmt.Sprintf("%s did not fire (fired: %v)", missing, result.Fired()),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState compares the value at a dotted path in the final state.
func assertFinalState(st map[string]any, assertion Assertion) error {
	got, ok := lookupPath(st, assertion.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", assertion.Path, assertion.Expect),
			Actual:   "path not found",
		}
	}

	tol := assertion.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	if !valuesMatch(got, assertion.Expect, tol) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", assertion.Path, assertion.Expect),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// subsequence reports whether want appears in have in order. On failure it
// returns the first element that could not be matched.
func subsequence(have, want []string) (string, bool) {
	i := 0
	for _, h := range have {
		if i < len(want) && h == want[i] {
			i++
		}
	}
	if i < len(want) {
		return want[i], false
	}
	return "", true
}

// lookupPath walks a dotted path through nested JSON objects. Numeric
// segments index into arrays.
func lookupPath(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// matchArgs reports whether every expected arg is present in actual with
// a matching value.
func matchArgs(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !valuesMatch(got, want, DefaultTolerance) {
			return false
		}
	}
	return true
}

// valuesMatch compares a JSON-decoded value with a YAML-decoded one.
// Numbers compare within tol regardless of their Go type.
func valuesMatch(got, want any, tol float64) bool {
	gf, gNum := toFloat(got)
	wf, wNum := toFloat(want)
	if gNum && wNum {
		return math.Abs(gf-wf) <= tol
	}
	if gNum != wNum {
		return false
	}
	return reflect.DeepEqual(normalize(got), normalize(want))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// normalize round-trips v through JSON so YAML and JSON values share
// representations.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
