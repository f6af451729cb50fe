package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a dispatch conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional path to a CUE operation table. Relative paths
	// are resolved against the scenario file. Empty means the embedded table.
	Schema string `yaml:"schema,omitempty"`

	// Policy is the allow-list in force. Nil allows every op.
	Policy *PolicySpec `yaml:"policy,omitempty"`

	// Flow contains the requests, dispatched in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and audit state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// PolicySpec uses the same spelling as the AI_POLICY_* environment
// variables.
type PolicySpec struct {
	DBExec string `yaml:"db_exec"`
	Ops    string `yaml:"ops"`
}

// FlowStep is one request.
type FlowStep struct {
	Op uint32 `yaml:"op"`

	// Args is a list of scalars. Mutually exclusive with ArgsJSON.
	Args []any `yaml:"args,omitempty"`

	// ArgsJSON is a raw JSON array, decoded like a request body's args.
	ArgsJSON string `yaml:"args_json,omitempty"`

	// Expect is the expected verdict. If nil, any verdict is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected verdict of one request.
type ExpectClause struct {
	// Verdict is "accepted" or "rejected".
	Verdict string `yaml:"verdict"`

	// Reason is the wire reason of a rejection, e.g. "argc".
	Reason string `yaml:"reason,omitempty"`

	// Code is the rejection code, e.g. "TYPE_MISMATCH".
	Code string `yaml:"code,omitempty"`

	// ProcID is the expected procedure of an accepted request.
	ProcID *uint32 `yaml:"proc_id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a request for Op with Verdict/Reason/Args appears
	// - "trace_order": Ops appear in order
	// - "trace_count": Op appears exactly Count times
	// - "final_state": query an audit table and verify expected values
	Type string `yaml:"type"`

	// Op is the requested op id (trace_contains, trace_count).
	Op *uint32 `yaml:"op,omitempty"`

	// Verdict and Reason narrow the match (trace_contains, trace_count).
	Verdict string `yaml:"verdict,omitempty"`
	Reason  string `yaml:"reason,omitempty"`

	// Args are the expected arguments (trace_contains). Prefix match: only
	// the listed positions are compared.
	Args []any `yaml:"args,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []uint32 `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the audit table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Verdicts recorded in the trace.
const (
	VerdictAccepted = "accepted"
	VerdictRejected = "rejected"
)

// LoadScenario reads and parses a scenario YAML file, resolving the schema
// path against the file's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. A relative schema path is joined to
// basePath when basePath is not empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
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
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, step := range s.Flow {
		if step.Args != nil && step.ArgsJSON != "" {
			return fmt.Errorf("flow[%d]: args and args_json are mutually exclusive", i)
		}
		if step.Expect != nil {
			if err := validateExpect(i, step.Expect); err != nil {
				return err
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, e *ExpectClause) error {
	switch e.Verdict {
	case VerdictAccepted:
		if e.Reason != "" || e.Code != "" {
			return fmt.Errorf("flow[%d].expect: reason and code apply to rejected requests only", index)
		}
	case VerdictRejected:
		if e.ProcID != nil {
			return fmt.Errorf("flow[%d].expect: proc_id applies to accepted requests only", index)
		}
	case "":
		return fmt.Errorf("flow[%d].expect: verdict is required", index)
	default:
		return fmt.Errorf("flow[%d].expect: unknown verdict %q", index, e.Verdict)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Verdict != "" && a.Verdict != VerdictAccepted && a.Verdict != VerdictRejected {
		return fmt.Errorf("assertions[%d]: unknown verdict %q", index, a.Verdict)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == nil {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == nil {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
