package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/query"
)

// Scenario defines a conformance test scenario: seed a cache, apply a
// sequence of writes, assert on the change sets and the final store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed optionally pre-populates the overlay the session starts from.
	Seed *Seed `yaml:"seed,omitempty"`

	// Steps is the ordered list of writes.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Seed describes the previously cached state a scenario starts from.
// It becomes the read-only overlay of the session store.
type Seed struct {
	// ClientIDs pre-consumes the client-id counter, so seeded client ids
	// like "client:1" are never re-minted by the session.
	ClientIDs int `yaml:"client_ids,omitempty"`

	Records   []SeedRecord   `yaml:"records,omitempty"`
	RootCalls []SeedRootCall `yaml:"root_calls,omitempty"`
}

// SeedRecord seeds one record. Fields hold scalars only; links are seeded
// through the writer in a setup step when a scenario needs them.
type SeedRecord struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

// SeedRootCall seeds one root-call index entry. Arg is the serialized
// argument key, empty for argument-less calls.
type SeedRootCall struct {
	Call string `yaml:"call"`
	Arg  string `yaml:"arg,omitempty"`
	ID   string `yaml:"id"`
}

// Step is one write: a query shape, a payload, and the expected outcome.
type Step struct {
	Name string `yaml:"name,omitempty"`

	Query QuerySpec `yaml:"query"`

	// Payload is the raw JSON payload, or the literal string "undefined"
	// to exercise the undefined-at-root contract violation.
	Payload string `yaml:"payload"`

	// Verbatim runs the write without the static-type inference fallback.
	Verbatim bool `yaml:"verbatim,omitempty"`

	Expect *Expectation `yaml:"expect,omitempty"`
}

// Expectation is the expected outcome of one step.
type Expectation struct {
	Created     []string `yaml:"created,omitempty"`
	Updated     []string `yaml:"updated,omitempty"`
	Diagnostics int      `yaml:"diagnostics,omitempty"`

	// Error, when set, expects the write to fail with this error code
	// and skips the change-set comparison.
	Error string `yaml:"error,omitempty"`
}

// QuerySpec is the declarative form of a query tree, shared between YAML
// scenarios and CUE query description files.
type QuerySpec struct {
	Call   string      `yaml:"call" json:"call"`
	Arg    any         `yaml:"arg,omitempty" json:"arg,omitempty"`
	Shape  string      `yaml:"shape,omitempty" json:"shape,omitempty"` // singular (default) | plural | ref
	Refs   []string    `yaml:"refs,omitempty" json:"refs,omitempty"`
	Type   string      `yaml:"type,omitempty" json:"type,omitempty"`
	Fields []FieldSpec `yaml:"fields" json:"fields"`
}

// FieldSpec is the declarative form of one requested field. A field with
// children is a link, a field without is a scalar leaf.
type FieldSpec struct {
	Name     string      `yaml:"name" json:"name"`
	Type     string      `yaml:"type,omitempty" json:"type,omitempty"`
	Plural   bool        `yaml:"plural,omitempty" json:"plural,omitempty"`
	Children []FieldSpec `yaml:"children,omitempty" json:"children,omitempty"`
}

// Assertion validates one aspect of the final store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_state": record ID is in State
	// - "record_type":  record ID has type TypeName
	// - "field":        record ID's field Name equals Value
	// - "link":         record ID's field Name links to Target
	// - "links":        record ID's field Name links to Targets in order
	// - "root_call":    (Call, Arg) resolves to ID
	Type string `yaml:"type"`

	ID       string   `yaml:"id,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	State    string   `yaml:"state,omitempty"`
	TypeName string   `yaml:"type_name,omitempty"`
	Value    any      `yaml:"value,omitempty"`
	Target   string   `yaml:"target,omitempty"`
	Targets  []string `yaml:"targets,omitempty"`
	Call     string   `yaml:"call,omitempty"`
	Arg      string   `yaml:"arg,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordState = "record_state"
	AssertRecordType  = "record_type"
	AssertField       = "field"
	AssertLink        = "link"
	AssertLinks       = "links"
	AssertRootCall    = "root_call"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Query.Call == "" {
			return fmt.Errorf("steps[%d]: query.call is required", i)
		}
		if step.Payload == "" {
			return fmt.Errorf("steps[%d]: payload is required (use \"null\" or \"undefined\" explicitly)", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertRecordState:
		if a.ID == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: record_state requires id and state", index)
		}
	case AssertRecordType:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: record_type requires id", index)
		}
	case AssertField:
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: field requires id and name", index)
		}
	case AssertLink:
		if a.ID == "" || a.Name == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: link requires id, name, and target", index)
		}
	case AssertLinks:
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: links requires id and name", index)
		}
	case AssertRootCall:
		if a.Call == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: root_call requires call and id", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// BuildQuery converts the declarative form into a writer-ready query tree.
func (q *QuerySpec) BuildQuery() (*query.Root, error) {
	root := &query.Root{
		Call:   q.Call,
		Type:   q.Type,
		RefIDs: q.Refs,
	}

	switch q.Shape {
	case "", "singular":
		root.Shape = query.ShapeSingular
	case "plural":
		root.Shape = query.ShapePlural
	case "ref":
		root.Shape = query.ShapeRef
	default:
		return nil, fmt.Errorf("query %q: unknown shape %q", q.Call, q.Shape)
	}

	if q.Arg != nil {
		arg, err := payload.FromGo(q.Arg)
		if err != nil {
			return nil, fmt.Errorf("query %q: arg: %w", q.Call, err)
		}
		root.Arg = arg
	}

	children, err := buildFields(q.Call, q.Fields)
	if err != nil {
		return nil, err
	}
	root.Children = children

	if err := query.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

func buildFields(path string, specs []FieldSpec) ([]query.Node, error) {
	nodes := make([]query.Node, 0, len(specs))
	for _, f := range specs {
		if len(f.Children) == 0 {
			if f.Plural {
				return nil, fmt.Errorf("%s.%s: plural field requires children", path, f.Name)
			}
			nodes = append(nodes, query.Scalar{Name: f.Name})
			continue
		}
		children, err := buildFields(path+"."+f.Name, f.Children)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, query.Link{
			Name:     f.Name,
			Type:     f.Type,
			Plural:   f.Plural,
			Children: children,
		})
	}
	return nodes, nil
}
