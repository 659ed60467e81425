// Package harness runs declarative write scenarios against a fresh store.
//
// A scenario is a YAML file describing an optional seeded cache, an
// ordered list of writes (query shape + payload + expected change set),
// and assertions on the final store. Scenarios double as conformance
// tests and as documentation of the writer's observable behavior.
//
// Golden snapshots: RunWithGolden compares the canonical JSON dump of the
// final merged snapshot against a golden file under testdata/golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
