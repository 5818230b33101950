// This file defines the structure of a GitHub Actions workflow file (workflow.yml).
//
// There isn't a single "source of truth" for this schema. The closest are
// github.com/actions/runner (programmatic, types scattered) and
// https://www.schemastore.org/github-workflow.json (too strict in some places,
// too loose in others, e.g. timeout can be an expression but isn't in the schema).
// The subset below covers what the portal needs: trigger detection, the
// workflow_dispatch input declarations, and enough of the job map to sanity
// check that a document is in fact a workflow.

package gh_workflow_yml

import (
	"fmt"

	"go.yaml.in/yaml/v4"
)

// GhWorkflow represents a GitHub Actions workflow file.
type GhWorkflow struct {
	Name    string            `yaml:"name,omitempty"`
	RunName string            `yaml:"run-name,omitempty"`
	On      WorkflowTriggers  `yaml:"on,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Jobs    map[string]Job    `yaml:"jobs"`
}

// ----------------------------------------------------------------------------
// 1. Triggers (on: push | [push, pull_request] | { push: ... })
// ----------------------------------------------------------------------------

type WorkflowTriggers struct {
	// Events captures all trigger configurations. If "on" was a string or
	// list, they are converted to map keys with empty values.
	Events map[string]interface{} `yaml:"-"`

	// WorkflowDispatch is non-nil iff the workflow has a workflow_dispatch
	// trigger, with or without declared inputs.
	WorkflowDispatch *WorkflowDispatch `yaml:"-"`
}

func (w *WorkflowTriggers) UnmarshalYAML(value *yaml.Node) error {
	w.Events = make(map[string]interface{})

	// Case 1: Single string "on: workflow_dispatch"
	if value.Kind == yaml.ScalarNode {
		w.Events[value.Value] = map[string]interface{}{}
		if value.Value == "workflow_dispatch" {
			w.WorkflowDispatch = &WorkflowDispatch{}
		}
		return nil
	}

	// Case 2: Sequence "on: [push, workflow_dispatch]"
	if value.Kind == yaml.SequenceNode {
		for _, node := range value.Content {
			w.Events[node.Value] = map[string]interface{}{}
			if node.Value == "workflow_dispatch" {
				w.WorkflowDispatch = &WorkflowDispatch{}
			}
		}
		return nil
	}

	// Case 3: Map "on: { workflow_dispatch: { inputs: ... } }"
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}

	for name, node := range raw {
		var generic interface{}
		_ = node.Decode(&generic)
		w.Events[name] = generic

		if name == "workflow_dispatch" {
			wd := &WorkflowDispatch{}
			// "workflow_dispatch:" with no body is a null scalar and
			// decodes to the zero value, which is exactly what we want.
			if err := node.Decode(wd); err != nil {
				return err
			}
			w.WorkflowDispatch = wd
		}
	}

	return nil
}

// WorkflowDispatch is the workflow_dispatch trigger configuration.
type WorkflowDispatch struct {
	Inputs map[string]WorkflowDispatchInput `yaml:"inputs,omitempty"`

	// InputOrder preserves the declaration order of the inputs map,
	// so generated forms show fields the way the author wrote them.
	InputOrder []string `yaml:"-"`
}

func (w *WorkflowDispatch) UnmarshalYAML(value *yaml.Node) error {
	type plain WorkflowDispatch
	if err := value.Decode((*plain)(w)); err != nil {
		return err
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value != "inputs" {
			continue
		}
		inputs := value.Content[i+1]
		for j := 0; j+1 < len(inputs.Content); j += 2 {
			w.InputOrder = append(w.InputOrder, inputs.Content[j].Value)
		}
	}

	return nil
}

// WorkflowDispatchInput is a single declared dispatch input.
type WorkflowDispatchInput struct {
	Description string      `yaml:"description,omitempty"`
	Required    bool        `yaml:"required,omitempty"`
	Default     StringValue `yaml:"default,omitempty"`
	Type        string      `yaml:"type,omitempty"`
	Options     []string    `yaml:"options,omitempty"`
}

// ----------------------------------------------------------------------------
// 2. Job Definitions (only the parts the portal inspects)
// ----------------------------------------------------------------------------

type Job struct {
	Name   string            `yaml:"name,omitempty"`
	Needs  StringOrSlice     `yaml:"needs,omitempty"`
	If     string            `yaml:"if,omitempty"`
	RunsOn RunsOn            `yaml:"runs-on,omitempty"`
	Env    map[string]string `yaml:"env,omitempty"`
	Steps  []Step            `yaml:"steps,omitempty"`

	// Reusable workflow specific
	Uses string                 `yaml:"uses,omitempty"`
	With map[string]interface{} `yaml:"with,omitempty"`
}

type Step struct {
	ID   string                 `yaml:"id,omitempty"`
	If   string                 `yaml:"if,omitempty"`
	Name string                 `yaml:"name,omitempty"`
	Uses string                 `yaml:"uses,omitempty"`
	Run  string                 `yaml:"run,omitempty"`
	With map[string]interface{} `yaml:"with,omitempty"`
	Env  map[string]string      `yaml:"env,omitempty"`
}

// ----------------------------------------------------------------------------
// 3. Polymorphic Types
// ----------------------------------------------------------------------------

// StringValue handles scalar fields whose YAML type is unconstrained but
// which the portal always carries as a string.
// Example: "default: false" yields Value "false", IsSet true.
type StringValue struct {
	Value string
	IsSet bool
}

func (s *StringValue) UnmarshalYAML(value *yaml.Node) error {
	var v interface{}
	if err := value.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	s.Value = fmt.Sprintf("%v", v)
	s.IsSet = true
	return nil
}

// StringOrSlice handles:
// - String: "job-name"
// - List: ["job-a", "job-b"]
type StringOrSlice []string

func (s *StringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = []string{value.Value}
		return nil
	}
	var slice []string
	if err := value.Decode(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// RunsOn handles:
// - String: "ubuntu-latest"
// - List: ["self-hosted", "linux"]
// - Object: { group: "...", labels: ... }
type RunsOn struct {
	Target string   // For simple "ubuntu-latest" or expression strings
	Labels []string // For ["self-hosted", "linux"]
	Group  string   // For object syntax
}

func (r *RunsOn) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Target = value.Value
		return nil
	}

	if value.Kind == yaml.SequenceNode {
		return value.Decode(&r.Labels)
	}

	var temp struct {
		Group  string      `yaml:"group"`
		Labels interface{} `yaml:"labels"`
	}
	if err := value.Decode(&temp); err != nil {
		return err
	}
	r.Group = temp.Group
	return nil
}
