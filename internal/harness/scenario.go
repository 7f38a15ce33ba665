package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session against one engine: peers attach, send
// frames, the document changes and commands run. Assertions check the
// recorded trace and the final engine state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is a fixed session id. Defaults to "scenario".
	Session string `yaml:"session,omitempty"`

	// Document is an optional document YAML file, relative to the scenario
	// file. Without it snapshots come from a counting fake producer.
	Document string `yaml:"document,omitempty"`

	// Batch, when not 0, makes the transport launch batch peers for
	// DoWhenReady starting at this connection id.
	Batch uint64 `yaml:"batch,omitempty"`

	// UpdateTimeout and CommandTimeout bound synchronous steps.
	UpdateTimeout  time.Duration `yaml:"update_timeout,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted action. Exactly one field must be set.
type Step struct {
	Attach   *uint64      `yaml:"attach,omitempty"`
	Detach   *uint64      `yaml:"detach,omitempty"`
	Message  *MessageStep `yaml:"message,omitempty"`
	Block    *uint64      `yaml:"block,omitempty"`
	Unblock  *uint64      `yaml:"unblock,omitempty"`
	Update   *UpdateStep  `yaml:"update,omitempty"`
	Command  *CommandStep `yaml:"command,omitempty"`
	Submit   *SubmitStep  `yaml:"submit,omitempty"`
	AddPanel *string      `yaml:"add_panel,omitempty"`
	Close    bool         `yaml:"close,omitempty"`
}

// MessageStep delivers one raw frame from a peer.
type MessageStep struct {
	Conn uint64 `yaml:"conn"`
	Data string `yaml:"data"`
}

// UpdateStep publishes a document version. Replies are queued before the
// call so a sync wait can consume them.
type UpdateStep struct {
	// Version defaults to the next automatic version.
	Version *uint64       `yaml:"version,omitempty"`
	Mode    string        `yaml:"mode,omitempty"`
	Label   string        `yaml:"label,omitempty"`
	Replies []MessageStep `yaml:"replies,omitempty"`
	// Expect is "ok" or an error code. Empty skips the check.
	Expect string `yaml:"expect,omitempty"`
}

// CommandStep runs DoWhenReady.
type CommandStep struct {
	Name    string        `yaml:"name"`
	Arg     string        `yaml:"arg,omitempty"`
	Mode    string        `yaml:"mode,omitempty"`
	Label   string        `yaml:"label,omitempty"`
	Replies []MessageStep `yaml:"replies,omitempty"`
	Expect  string        `yaml:"expect,omitempty"`
}

// SubmitStep queues a command without waiting.
type SubmitStep struct {
	Name   string `yaml:"name"`
	Arg    string `yaml:"arg,omitempty"`
	Target uint64 `yaml:"target,omitempty"`
	Label  string `yaml:"label,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of sent_contains, sent_count, sent_order, callback,
	// final_state or file_written.
	Type string `yaml:"type"`

	Conn     uint64   `yaml:"conn,omitempty"`
	Prefix   string   `yaml:"prefix,omitempty"`
	Prefixes []string `yaml:"prefixes,omitempty"`

	// Count is the exact number of matches. For callback it defaults to 1.
	Count *int `yaml:"count,omitempty"`

	Label  string `yaml:"label,omitempty"`
	Result *bool  `yaml:"result,omitempty"`

	State *StateExpect `yaml:"state,omitempty"`

	File    string  `yaml:"file,omitempty"`
	Content *string `yaml:"content,omitempty"`
}

// StateExpect lists expected engine counters. Nil fields are not checked.
type StateExpect struct {
	Connections *int    `yaml:"connections,omitempty"`
	Commands    *int    `yaml:"commands,omitempty"`
	Running     *int    `yaml:"running,omitempty"`
	Waiters     *int    `yaml:"waiters,omitempty"`
	Delivered   *uint64 `yaml:"delivered,omitempty"`
}

// Assertion types.
const (
	AssertSentContains = "sent_contains"
	AssertSentCount    = "sent_count"
	AssertSentOrder    = "sent_order"
	AssertCallback     = "callback"
	AssertFinalState   = "final_state"
	AssertFileWritten  = "file_written"
)

// LoadScenario reads and validates a scenario file. A relative document
// path resolves against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Document != "" && !filepath.IsAbs(s.Document) {
		s.Document = filepath.Join(filepath.Dir(path), s.Document)
	}
	return s, nil
}

// ParseScenario decodes a scenario document. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	for _, ok := range []bool{
		st.Attach != nil, st.Detach != nil, st.Message != nil,
		st.Block != nil, st.Unblock != nil, st.Update != nil,
		st.Command != nil, st.Submit != nil, st.AddPanel != nil, st.Close,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", index, set)
	}

	switch {
	case st.Message != nil:
		if st.Message.Conn == 0 {
			return fmt.Errorf("steps[%d]: message.conn is required", index)
		}
	case st.Update != nil:
		if err := validateMode(st.Update.Mode); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case st.Command != nil:
		if st.Command.Name == "" {
			return fmt.Errorf("steps[%d]: command.name is required", index)
		}
		if err := validateMode(st.Command.Mode); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case st.Submit != nil:
		if st.Submit.Name == "" {
			return fmt.Errorf("steps[%d]: submit.name is required", index)
		}
	}
	return nil
}

func validateMode(mode string) error {
	switch mode {
	case "", "async", "sync":
		return nil
	}
	return fmt.Errorf("unknown mode %q (want async or sync)", mode)
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSentContains:
		if a.Prefix == "" {
			return fmt.Errorf("assertions[%d]: prefix is required for sent_contains", index)
		}
	case AssertSentCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for sent_count", index)
		}
	case AssertSentOrder:
		if len(a.Prefixes) == 0 {
			return fmt.Errorf("assertions[%d]: prefixes list is required for sent_order", index)
		}
	case AssertCallback:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for callback", index)
		}
	case AssertFinalState:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertFileWritten:
		if a.File == "" {
			return fmt.Errorf("assertions[%d]: file is required for file_written", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
