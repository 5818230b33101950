package gh_workflow_yml

import (
	"go.yaml.in/yaml/v4"

	"github.com/actionforge/actportal-cli/utils"
)

const (
	FallbackName        = "Unnamed Workflow"
	FallbackDescription = "No description available"
)

// WorkflowInput is one normalized dispatch input declaration. The default,
// if declared, is carried as its string representation regardless of the
// YAML scalar type it was written as.
type WorkflowInput struct {
	Name        string
	Description string
	Required    bool
	Default     string
	HasDefault  bool
	Type        string
	Options     []string
}

// WorkflowMetadata is the normalized record extracted from a workflow
// definition document.
type WorkflowMetadata struct {
	Name               string
	Description        string
	HasDispatchTrigger bool
	Inputs             []WorkflowInput
	JobCount           int
}

// ExtractMetadata parses a workflow definition document and extracts its
// declared dispatch inputs plus display metadata. It returns nil when the
// content cannot be parsed as a structured document; a document without a
// workflow_dispatch trigger or without inputs is not an error.
func ExtractMetadata(content []byte) *WorkflowMetadata {
	var wf GhWorkflow
	if err := yaml.Unmarshal(content, &wf); err != nil {
		utils.LogOut.Debugf("workflow document did not parse: %v\n", err)
		return nil
	}

	name := wf.Name
	if name == "" {
		name = FallbackName
	}

	// The workflow file format has no description field of its own,
	// so the display description falls back to the name.
	description := utils.If(wf.Name != "", wf.Name, FallbackDescription)

	meta := &WorkflowMetadata{
		Name:        name,
		Description: description,
		JobCount:    len(wf.Jobs),
	}

	wd := wf.On.WorkflowDispatch
	if wd == nil {
		return meta
	}

	meta.HasDispatchTrigger = true
	meta.Inputs = extractInputs(wd)

	return meta
}

func extractInputs(wd *WorkflowDispatch) []WorkflowInput {
	inputs := make([]WorkflowInput, 0, len(wd.Inputs))

	for _, name := range wd.InputOrder {
		decl, ok := wd.Inputs[name]
		if !ok {
			continue
		}

		inputType := decl.Type
		if inputType == "" {
			inputType = "string"
		}

		inputs = append(inputs, WorkflowInput{
			Name:        name,
			Description: decl.Description,
			Required:    decl.Required,
			Default:     decl.Default.Value,
			HasDefault:  decl.Default.IsSet,
			Type:        inputType,
			Options:     decl.Options,
		})
	}

	return inputs
}
