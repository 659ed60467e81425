package harness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/store"
	"github.com/roach88/normgraph/internal/writer"
)

// Outcome is the result of running a scenario: the per-step change sets
// and the final merged snapshot.
type Outcome struct {
	StepResults []*writer.Result
	Final       *store.Snapshot
}

// Run executes a scenario against a fresh store and checks every step
// expectation and final-state assertion. Returns an error describing the
// first mismatch.
func Run(scenario *Scenario) (*Outcome, error) {
	overlay, err := buildSeed(scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: seed: %w", scenario.Name, err)
	}

	s := store.NewWithOverlay(overlay)
	w := writer.New(s)

	// Deterministic session tokens keep golden files stable.
	tokens := make([]string, len(scenario.Steps))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("step-%d", i+1)
	}
	w.Tokens = writer.NewFixedTokenGenerator(tokens...)

	outcome := &Outcome{}
	for i, step := range scenario.Steps {
		res, err := runStep(w, &step)
		if step.Expect != nil && step.Expect.Error != "" {
			if err == nil {
				return nil, fmt.Errorf("scenario %q step %d: expected error %q, write succeeded",
					scenario.Name, i+1, step.Expect.Error)
			}
			var we *writer.WriteError
			if !errors.As(err, &we) || string(we.Code) != step.Expect.Error {
				return nil, fmt.Errorf("scenario %q step %d: expected error %q, got %v",
					scenario.Name, i+1, step.Expect.Error, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scenario %q step %d: %w", scenario.Name, i+1, err)
		}
		if step.Expect != nil {
			if err := checkExpectation(step.Expect, res); err != nil {
				return nil, fmt.Errorf("scenario %q step %d: %w", scenario.Name, i+1, err)
			}
		}
		outcome.StepResults = append(outcome.StepResults, res)
	}

	outcome.Final = s.Snapshot()

	for i, a := range scenario.Assertions {
		if err := checkAssertion(&a, outcome.Final); err != nil {
			return nil, fmt.Errorf("scenario %q assertion %d: %w", scenario.Name, i+1, err)
		}
	}
	return outcome, nil
}

func runStep(w *writer.Writer, step *Step) (*writer.Result, error) {
	root, err := step.Query.BuildQuery()
	if err != nil {
		return nil, err
	}

	var pv payload.Value
	if step.Payload == "undefined" {
		pv = payload.Undefined{}
	} else {
		pv, err = payload.Decode([]byte(step.Payload))
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
	}

	verbatim := w.Verbatim
	w.Verbatim = step.Verbatim
	defer func() { w.Verbatim = verbatim }()

	return w.Write(root, pv)
}

func buildSeed(seed *Seed) (*store.Snapshot, error) {
	if seed == nil {
		return nil, nil
	}
	s := store.New()
	for i := 0; i < seed.ClientIDs; i++ {
		s.NextClientID()
	}
	for _, rec := range seed.Records {
		s.PutRecord(rec.ID, rec.Type)
		names := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v, err := payload.FromGo(rec.Fields[name])
			if err != nil {
				return nil, fmt.Errorf("record %q field %q: %w", rec.ID, name, err)
			}
			s.PutField(rec.ID, name, v)
		}
	}
	for _, rc := range seed.RootCalls {
		s.PutDataID(rc.Call, rc.Arg, rc.ID)
	}
	return s.Snapshot(), nil
}

func checkExpectation(want *Expectation, got *writer.Result) error {
	if err := compareSet("created", want.Created, got.Created); err != nil {
		return err
	}
	if err := compareSet("updated", want.Updated, got.Updated); err != nil {
		return err
	}
	if len(got.Diagnostics) != want.Diagnostics {
		return fmt.Errorf("diagnostics: want %d, got %d (%v)",
			want.Diagnostics, len(got.Diagnostics), got.Diagnostics)
	}
	return nil
}

func compareSet(label string, want []string, got map[string]bool) error {
	if len(want) != len(got) {
		return fmt.Errorf("%s: want %v, got %v", label, want, setIDs(got))
	}
	for _, id := range want {
		if !got[id] {
			return fmt.Errorf("%s: want %v, got %v", label, want, setIDs(got))
		}
	}
	return nil
}

func setIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func checkAssertion(a *Assertion, sn *store.Snapshot) error {
	switch a.Type {
	case AssertRecordState:
		if got := sn.State(a.ID).String(); got != a.State {
			return fmt.Errorf("record %q state: want %s, got %s", a.ID, a.State, got)
		}
	case AssertRecordType:
		got, _ := sn.Type(a.ID)
		if got != a.TypeName {
			return fmt.Errorf("record %q type: want %q, got %q", a.ID, a.TypeName, got)
		}
	case AssertField:
		want, err := payload.FromGo(a.Value)
		if err != nil {
			return fmt.Errorf("field %q.%q expected value: %w", a.ID, a.Name, err)
		}
		got, ok := sn.Field(a.ID, a.Name)
		if !ok {
			return fmt.Errorf("field %q.%q is absent", a.ID, a.Name)
		}
		if !payload.Equal(want, got) {
			return fmt.Errorf("field %q.%q: want %v, got %v", a.ID, a.Name, want, got)
		}
	case AssertLink:
		got, ok := sn.LinkedID(a.ID, a.Name)
		if !ok {
			return fmt.Errorf("link %q.%q is absent", a.ID, a.Name)
		}
		if got != a.Target {
			return fmt.Errorf("link %q.%q: want %q, got %q", a.ID, a.Name, a.Target, got)
		}
	case AssertLinks:
		got, ok := sn.LinkedIDs(a.ID, a.Name)
		if !ok {
			return fmt.Errorf("links %q.%q are absent", a.ID, a.Name)
		}
		if len(got) != len(a.Targets) {
			return fmt.Errorf("links %q.%q: want %v, got %v", a.ID, a.Name, a.Targets, got)
		}
		for i := range got {
			if got[i] != a.Targets[i] {
				return fmt.Errorf("links %q.%q: want %v, got %v", a.ID, a.Name, a.Targets, got)
			}
		}
	case AssertRootCall:
		found := false
		for _, entry := range sn.RootCalls() {
			if entry.Call == a.Call && entry.Arg == a.Arg {
				if entry.ID != a.ID {
					return fmt.Errorf("root call (%q, %q): want %q, got %q",
						a.Call, a.Arg, a.ID, entry.ID)
				}
				found = true
			}
		}
		if !found {
			return fmt.Errorf("root call (%q, %q) is absent", a.Call, a.Arg)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
