package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/normgraph/internal/query"
)

func writeQueryFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validQueryCUE = `
call: "me"
type: "User"
fields: [
	{name: "id"},
	{name: "name"},
	{
		name:   "friends"
		plural: true
		type:   "User"
		children: [
			{name: "id"},
			{name: "name"},
		]
	},
]
`

func TestLoadQuery_Valid(t *testing.T) {
	path := writeQueryFile(t, "me.cue", validQueryCUE)

	root, err := LoadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "me", root.Call)
	assert.Equal(t, query.ShapeSingular, root.Shape)
	assert.Equal(t, "User", root.Type)
	require.Len(t, root.Children, 3)

	link, ok := root.Children[2].(query.Link)
	require.True(t, ok)
	assert.True(t, link.Plural)
	assert.Len(t, link.Children, 2)
}

func TestLoadQuery_PluralRoot(t *testing.T) {
	path := writeQueryFile(t, "usernames.cue", `
call: "usernames"
shape: "plural"
arg: ["zuck", "moskov"]
fields: [{name: "id"}, {name: "username"}]
`)

	root, err := LoadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, query.ShapePlural, root.Shape)
}

func TestLoadQuery_MissingCall(t *testing.T) {
	path := writeQueryFile(t, "bad.cue", `
fields: [{name: "id"}]
`)

	_, err := LoadQuery(path)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeQueryLoad, le.Code)
}

func TestLoadQuery_UnknownShape(t *testing.T) {
	path := writeQueryFile(t, "bad.cue", `
call: "me"
shape: "star"
fields: [{name: "id"}]
`)

	_, err := LoadQuery(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestLoadQuery_EmptyFields(t *testing.T) {
	path := writeQueryFile(t, "bad.cue", `
call: "me"
fields: []
`)

	_, err := LoadQuery(path)
	require.Error(t, err)
}

func TestLoadQuery_SyntaxError(t *testing.T) {
	path := writeQueryFile(t, "bad.cue", `call: "me" fields: {{`)

	_, err := LoadQuery(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing CUE")
}

func TestLoadQuery_FileNotFound(t *testing.T) {
	_, err := LoadQuery(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestFindQueryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("call: \"a\"\nfields: [{name: \"id\"}]"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("call: \"b\"\nfields: [{name: \"id\"}]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	files, err := FindQueryFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	single, err := FindQueryFiles(filepath.Join(dir, "a.cue"))
	require.NoError(t, err)
	assert.Len(t, single, 1)
}
