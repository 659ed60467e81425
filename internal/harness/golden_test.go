package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/store"
)

// Golden files live in testdata/golden. To regenerate after an intended
// behavior change:
//
//	go test ./internal/harness -update

func TestRunWithGolden_ViewerActor(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "viewer-actor.yaml"))
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestRunWithGolden_FriendsReorder(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "friends-reorder.yaml"))
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestDumpSnapshot_Deterministic(t *testing.T) {
	s := store.New()
	s.PutRecord("4", "User")
	s.PutField("4", "name", payload.MustDecode(`"Mark"`))
	s.PutLinkedIDs("4", "friends", []string{"660", "661"})
	s.PutRecord("660", "User")
	s.PutLinkedID("660", "bestFriend", "4")
	s.PutDataID("me", "", "4")

	first, err := DumpSnapshot(s.Snapshot())
	require.NoError(t, err)
	second, err := DumpSnapshot(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.JSONEq(t, `{
		"records": {
			"4": {
				"fields": {
					"friends": {"__refs": ["660", "661"]},
					"name": "Mark"
				},
				"state": "EXISTENT",
				"type": "User"
			},
			"660": {
				"fields": {
					"bestFriend": {"__ref": "4"}
				},
				"state": "EXISTENT",
				"type": "User"
			}
		},
		"rootCalls": [{"arg": "", "call": "me", "id": "4"}]
	}`, string(first))
}

func TestDumpSnapshot_DeletedRecord(t *testing.T) {
	s := store.New()
	s.PutRecord("4", "User")
	s.PutField("4", "name", payload.MustDecode(`"Mark"`))
	s.DeleteRecord("4")

	dump, err := DumpSnapshot(s.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"records": {
			"4": {"state": "NONEXISTENT", "type": "User"}
		},
		"rootCalls": []
	}`, string(dump))
}
