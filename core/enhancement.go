package core

import (
	"fmt"

	"go.yaml.in/yaml/v4"
)

// Enhancement is the optional UI hint attached to a curated catalog
// input. The control is a closed set of variants, one per known field
// kind, so invalid control/parameter combinations cannot be expressed.
// DependsOn and Condition become the field's visibility dependency.
type Enhancement struct {
	Control   Control
	DependsOn string
	Condition any
}

// Control is the tagged union over the known enhanced field kinds.
type Control interface {
	Kind() FieldKind
}

// BranchSelector offers the branches of a repository. Repository is
// optional and overrides the action's own repository as data source.
type BranchSelector struct {
	Repository string
}

func (BranchSelector) Kind() FieldKind { return FieldBranch }

// RepositorySelector offers repositories, optionally narrowed by a
// search query.
type RepositorySelector struct {
	Query string
}

func (RepositorySelector) Kind() FieldKind { return FieldRepository }

// DatePicker renders a calendar field.
type DatePicker struct{}

func (DatePicker) Kind() FieldKind { return FieldDate }

// MultiSelect offers multiple choices from a fixed option list.
type MultiSelect struct {
	Options []string
}

func (MultiSelect) Kind() FieldKind { return FieldMultiSelect }

// Textarea renders a multi-line text field.
type Textarea struct {
	Rows int
}

func (Textarea) Kind() FieldKind { return FieldTextarea }

func (e *Enhancement) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Control    string    `yaml:"control"`
		Repository string    `yaml:"repository"`
		Query      string    `yaml:"query"`
		Options    []string  `yaml:"options"`
		Rows       int       `yaml:"rows"`
		DependsOn  string    `yaml:"depends_on"`
		Condition  yaml.Node `yaml:"condition"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch raw.Control {
	case "branch-selector":
		e.Control = BranchSelector{Repository: raw.Repository}
	case "repository-selector":
		e.Control = RepositorySelector{Query: raw.Query}
	case "date-picker":
		e.Control = DatePicker{}
	case "multi-select":
		e.Control = MultiSelect{Options: raw.Options}
	case "textarea":
		e.Control = Textarea{Rows: raw.Rows}
	case "":
		// dependency-only enhancement, no control hint
	default:
		return fmt.Errorf("unknown enhancement control '%s'", raw.Control)
	}

	e.DependsOn = raw.DependsOn

	if !raw.Condition.IsZero() {
		var condition any
		if err := raw.Condition.Decode(&condition); err != nil {
			return err
		}
		e.Condition = condition
	}

	return nil
}
