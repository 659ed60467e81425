package cli

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/normgraph/internal/harness"
	"github.com/roach88/normgraph/internal/query"
)

//go:embed schema.cue
var querySchema string

// LoadError represents an error that occurred while loading a query
// description file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQuery reads a CUE query description file, checks it against the
// embedded schema, and builds the query tree.
func LoadQuery(path string) (*query.Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	spec, err := decodeQuery(path, data)
	if err != nil {
		return nil, err
	}

	root, err := spec.BuildQuery()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeQueryLoad, Path: path, Message: err.Error()}
	}
	return root, nil
}

// decodeQuery unifies the file contents with the #Query schema definition
// and decodes the result.
func decodeQuery(path string, data []byte) (*harness.QuerySpec, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(querySchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("compiling embedded schema: %v", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Query"))
	if !def.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "embedded schema has no #Query definition"}
	}

	val := ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeQueryLoad, Path: path, Message: fmt.Sprintf("parsing CUE: %v", err)}
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeQueryLoad, Path: path, Message: fmt.Sprintf("schema violation: %v", err)}
	}

	var spec harness.QuerySpec
	if err := unified.Decode(&spec); err != nil {
		return nil, &LoadError{Code: ErrCodeQueryLoad, Path: path, Message: fmt.Sprintf("decoding query: %v", err)}
	}
	return &spec, nil
}

// FindQueryFiles returns path itself when it names a .cue file, or all
// .cue files under it when it names a directory.
func FindQueryFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".cue" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
	}
	return files, nil
}
