package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/store"
)

// DumpSnapshot serializes a snapshot as canonical JSON. Link cells appear
// as {"__ref": id} objects and plural links as {"__refs": [ids]}, so the
// dump distinguishes them from scalar fields holding plain strings.
func DumpSnapshot(sn *store.Snapshot) ([]byte, error) {
	records := payload.Object{}
	for _, id := range sn.RecordIDs() {
		rec := payload.Object{
			"state": payload.String(sn.State(id).String()),
		}
		if typeName, ok := sn.Type(id); ok {
			rec["type"] = payload.String(typeName)
		}
		fields := payload.Object{}
		for _, name := range sn.FieldNames(id) {
			fields[name] = dumpCell(sn, id, name)
		}
		if len(fields) > 0 {
			rec["fields"] = fields
		}
		records[id] = rec
	}

	rootCalls := payload.Array{}
	for _, entry := range sn.RootCalls() {
		rootCalls = append(rootCalls, payload.Object{
			"call": payload.String(entry.Call),
			"arg":  payload.String(entry.Arg),
			"id":   payload.String(entry.ID),
		})
	}

	return payload.MarshalCanonical(payload.Object{
		"records":   records,
		"rootCalls": rootCalls,
	})
}

func dumpCell(sn *store.Snapshot, id, name string) payload.Value {
	if target, ok := sn.LinkedID(id, name); ok {
		return payload.Object{"__ref": payload.String(target)}
	}
	if targets, ok := sn.LinkedIDs(id, name); ok {
		refs := make(payload.Array, len(targets))
		for i, t := range targets {
			refs[i] = payload.String(t)
		}
		return payload.Object{"__refs": refs}
	}
	if v, ok := sn.Field(id, name); ok {
		return v
	}
	return payload.Null{}
}

// RunWithGolden executes a scenario and compares the final snapshot dump
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	outcome, err := Run(scenario)
	if err != nil {
		return err
	}
	dump, err := DumpSnapshot(outcome.Final)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, dump)
	return nil
}
