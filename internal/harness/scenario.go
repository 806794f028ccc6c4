package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance test case loaded from YAML.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Graph is the graph id the scenario writes to. Defaults to Name.
	Graph string `yaml:"graph,omitempty"`

	// Types is inline CUE source with node_types and edge_types.
	Types string `yaml:"types,omitempty"`

	// TypesDir is a CUE package directory, resolved relative to the
	// scenario file.
	TypesDir string `yaml:"types_dir,omitempty"`

	// Steps are the mutations, applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// GraphID returns the graph the scenario writes to.
func (s *Scenario) GraphID() string {
	if s.Graph != "" {
		return s.Graph
	}
	return s.Name
}

// Step is one mutation. Which fields apply depends on Op.
type Step struct {
	Op         string         `yaml:"op"`
	ID         string         `yaml:"id,omitempty"`
	Type       string         `yaml:"type,omitempty"`
	Source     string         `yaml:"source,omitempty"`
	Target     string         `yaml:"target,omitempty"`
	Parent     string         `yaml:"parent,omitempty"`
	Child      string         `yaml:"child,omitempty"`
	Index      *int           `yaml:"index,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`

	// save_query
	Name       string   `yaml:"name,omitempty"`
	Query      string   `yaml:"query,omitempty"`
	Parameters []string `yaml:"parameters,omitempty"`

	// ExpectError is the error code the step must fail with, e.g.
	// NOT_FOUND. A step that fails with the expected code emits no events.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpAddNode     = "add_node"
	OpUpdateNode  = "update_node"
	OpRemoveNode  = "remove_node"
	OpAddEdge     = "add_edge"
	OpUpdateEdge  = "update_edge"
	OpRemoveEdge  = "remove_edge"
	OpInsertChild = "insert_child"
	OpMoveChild   = "move_child"
	OpSaveQuery   = "save_query"
)

// Assertion checks the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	Node     string         `yaml:"node,omitempty"`
	Property string         `yaml:"property,omitempty"`
	Value    any            `yaml:"value,omitempty"`
	EdgeType string         `yaml:"edge_type,omitempty"`
	Count    int            `yaml:"count,omitempty"`
	Query    string         `yaml:"query,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
	Events   []string       `yaml:"events,omitempty"`
	Parent   string         `yaml:"parent,omitempty"`
	Children []string       `yaml:"children,omitempty"`

	// AtStep evaluates graph assertions against the graph as of the last
	// event of that step (1-based) instead of the final graph.
	AtStep int `yaml:"at_step,omitempty"`
}

// Assertion types.
const (
	AssertNodeExists     = "node_exists"
	AssertNodeAbsent     = "node_absent"
	AssertEdgeCount      = "edge_count"
	AssertPropertyEquals = "property_equals"
	AssertQueryCount     = "query_count"
	AssertEventOrder     = "event_order"
	AssertChildOrder     = "child_order"
)

// LoadScenario reads and validates a scenario file. TypesDir is resolved
// relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath loads a scenario, resolving TypesDir relative
// to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
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

	if scenario.TypesDir != "" && !filepath.IsAbs(scenario.TypesDir) && basePath != "" {
		scenario.TypesDir = filepath.Join(basePath, scenario.TypesDir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

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
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Types != "" && s.TypesDir != "" {
		return fmt.Errorf("types and types_dir are mutually exclusive")
	}
	if s.TypesDir != "" {
		if _, err := os.Stat(s.TypesDir); os.IsNotExist(err) {
			return fmt.Errorf("types directory not found: %s", s.TypesDir)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, s.Op)
		}
		return nil
	}

	var errs []error
	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpAddNode:
		errs = append(errs, need("type", s.Type))
	case OpUpdateNode, OpRemoveNode, OpUpdateEdge, OpRemoveEdge:
		errs = append(errs, need("id", s.ID))
	case OpAddEdge:
		errs = append(errs, need("type", s.Type), need("source", s.Source), need("target", s.Target))
	case OpInsertChild, OpMoveChild:
		errs = append(errs, need("parent", s.Parent), need("child", s.Child))
		if s.Op == OpMoveChild && s.Index == nil {
			errs = append(errs, fmt.Errorf("steps[%d]: index is required for %s", index, s.Op))
		}
	case OpSaveQuery:
		errs = append(errs, need("id", s.ID), need("query", s.Query))
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.AtStep < 0 || a.AtStep > steps {
		return fmt.Errorf("assertions[%d]: at_step %d out of range 1..%d", index, a.AtStep, steps)
	}

	switch a.Type {
	case AssertNodeExists, AssertNodeAbsent:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertPropertyEquals:
		if a.Node == "" || a.Property == "" {
			return fmt.Errorf("assertions[%d]: node and property are required for property_equals", index)
		}
	case AssertEdgeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for edge_count", index)
		}
	case AssertQueryCount:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for query_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for query_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertChildOrder:
		if a.Parent == "" {
			return fmt.Errorf("assertions[%d]: parent is required for child_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
