package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rossmacarthur/cases"
)

// FieldKind is the UI field kind inferred for one action input.
type FieldKind string

const (
	FieldText        FieldKind = "text"
	FieldTextarea    FieldKind = "textarea"
	FieldBoolean     FieldKind = "boolean"
	FieldNumber      FieldKind = "number"
	FieldSelect      FieldKind = "select"
	FieldMultiSelect FieldKind = "multiselect"
	FieldBranch      FieldKind = "branch"
	FieldRepository  FieldKind = "repository"
	FieldDate        FieldKind = "date"
)

// Dependency makes a field visible only while another field holds
// exactly RequiredValue.
type Dependency struct {
	Field         string
	RequiredValue any
}

// FieldSchema is the validation-and-UI description derived from one
// ActionInput. Default is coerced to the field's semantic type where
// the kind calls for it (boolean and number), everything else keeps
// the declared string.
type FieldSchema struct {
	Name        string
	Label       string
	Description string
	Kind        FieldKind
	Required    bool
	Default     any
	HasDefault  bool
	Options     []string
	Rule        Rule
	DependsOn   *Dependency
}

// Schema is the full field list plus the combined rule, keyed by
// field name.
type Schema struct {
	Fields []FieldSchema
	Rules  map[string]Rule
}

// BuildSchema converts declared inputs into a validated, typed field
// schema. A dependency referencing a field that is not part of the
// same input list is dropped.
func BuildSchema(inputs []ActionInput) *Schema {
	names := map[string]struct{}{}
	for _, input := range inputs {
		names[input.Name] = struct{}{}
	}

	schema := &Schema{
		Rules: make(map[string]Rule, len(inputs)),
	}

	for _, input := range inputs {
		kind := inferFieldKind(input)
		rule := inferRule(input, kind)

		field := FieldSchema{
			Name:        input.Name,
			Label:       cases.ToTitle(input.Name),
			Description: input.Description,
			Kind:        kind,
			Required:    input.Required,
			Options:     fieldOptions(input),
			Rule:        rule,
		}

		if input.HasDefault {
			field.Default = coerceDefault(input.Default, kind)
			field.HasDefault = true
		}

		if dep := dependencyOf(input); dep != nil {
			if _, ok := names[dep.Field]; ok {
				field.DependsOn = dep
			}
		}

		schema.Fields = append(schema.Fields, field)
		schema.Rules[input.Name] = rule
	}

	return schema
}

// inferFieldKind picks the field kind, first match wins: explicit
// enhancement hint, declared semantic type, name heuristic, presence
// of options, plain text.
func inferFieldKind(input ActionInput) FieldKind {
	if input.Enhancement != nil && input.Enhancement.Control != nil {
		return input.Enhancement.Control.Kind()
	}

	switch input.Type {
	case "boolean":
		return FieldBoolean
	case "number":
		return FieldNumber
	case "choice", "select":
		return FieldSelect
	case "array":
		return FieldMultiSelect
	}

	name := strings.ToLower(input.Name)
	switch {
	case strings.Contains(name, "branch"):
		return FieldBranch
	case strings.Contains(name, "repo"):
		return FieldRepository
	case strings.Contains(name, "date"):
		return FieldDate
	case strings.Contains(name, "description"), strings.Contains(name, "comment"):
		return FieldTextarea
	}

	if len(input.Options) > 0 {
		return FieldSelect
	}

	return FieldText
}

func inferRule(input ActionInput, kind FieldKind) Rule {
	switch kind {
	case FieldBoolean:
		return &BooleanRule{Field: input.Name, Required: input.Required}
	case FieldNumber:
		return &NumberRule{Field: input.Name, Required: input.Required}
	case FieldSelect:
		if len(input.Options) > 0 {
			return &EnumRule{Field: input.Name, Required: input.Required, Options: input.Options}
		}
		return &StringRule{Field: input.Name, Required: input.Required}
	case FieldMultiSelect:
		return &ListRule{Field: input.Name, Required: input.Required}
	default:
		return &StringRule{Field: input.Name, Required: input.Required}
	}
}

func fieldOptions(input ActionInput) []string {
	if input.Enhancement != nil {
		if ms, ok := input.Enhancement.Control.(MultiSelect); ok && len(ms.Options) > 0 {
			return ms.Options
		}
	}
	return input.Options
}

func coerceDefault(def string, kind FieldKind) any {
	switch kind {
	case FieldBoolean:
		return def == "true"
	case FieldNumber:
		n, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return float64(0)
		}
		return n
	default:
		return def
	}
}

func dependencyOf(input ActionInput) *Dependency {
	if input.Enhancement == nil || input.Enhancement.DependsOn == "" {
		return nil
	}
	return &Dependency{
		Field:         input.Enhancement.DependsOn,
		RequiredValue: input.Enhancement.Condition,
	}
}

// DefaultValues returns the initial value map for a schema: the coerced
// default where one exists, otherwise the empty value of the kind.
func DefaultValues(schema *Schema) map[string]any {
	values := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		if field.HasDefault {
			values[field.Name] = field.Default
			continue
		}
		switch field.Kind {
		case FieldBoolean:
			values[field.Name] = false
		case FieldNumber:
			values[field.Name] = float64(0)
		case FieldMultiSelect:
			values[field.Name] = []string{}
		default:
			values[field.Name] = ""
		}
	}
	return values
}

// VisibleFields returns the names of the fields visible under the
// current values. A field with no dependency is always visible; one
// with a dependency is visible iff the depended-on field holds exactly
// the required value. Comparison is strict, "true" does not satisfy a
// boolean true condition.
func VisibleFields(schema *Schema, values map[string]any) map[string]struct{} {
	visible := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		if field.DependsOn == nil {
			visible[field.Name] = struct{}{}
			continue
		}
		if strictEqual(values[field.DependsOn.Field], field.DependsOn.RequiredValue) {
			visible[field.Name] = struct{}{}
		}
	}
	return visible
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	// numeric YAML conditions may decode as int while form values are
	// float64; both stay strictly typed otherwise
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ValidationResult is the outcome of validating a value map against a
// schema. On failure Errors maps each violation to its field name;
// violations with no field path land under "_form".
type ValidationResult struct {
	OK     bool
	Data   map[string]any
	Errors map[string]string
}

// FormErrorKey collects violations that cannot be attributed to a
// single field.
const FormErrorKey = "_form"

// Validate runs the combined rule over data. Hidden fields are excluded
// from required validation and from the returned data.
func Validate(schema *Schema, data map[string]any) ValidationResult {
	result := ValidationResult{
		Data:   make(map[string]any, len(schema.Fields)),
		Errors: map[string]string{},
	}

	if data == nil {
		data = map[string]any{}
	}

	visible := VisibleFields(schema, data)

	for _, field := range schema.Fields {
		if _, ok := visible[field.Name]; !ok {
			continue
		}

		value, present := data[field.Name]
		if err := field.Rule.Validate(value, present); err != nil {
			key := field.Name
			if key == "" {
				key = FormErrorKey
			}
			result.Errors[key] = err.Error()
			continue
		}

		if present && value != nil {
			result.Data[field.Name] = value
		}
	}

	result.OK = len(result.Errors) == 0
	if !result.OK {
		result.Data = nil
	}
	return result
}

// Rule validates a single field value. present reports whether the
// value map contained the key at all.
type Rule interface {
	Validate(value any, present bool) error
}

// StringRule accepts strings; when required the string must be
// non-empty.
type StringRule struct {
	Field    string
	Required bool
}

func (r *StringRule) Validate(value any, present bool) error {
	if !present || value == nil {
		if r.Required {
			return fmt.Errorf("%s is required", r.Field)
		}
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", r.Field)
	}
	if r.Required && strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", r.Field)
	}
	return nil
}

// BooleanRule accepts booleans. A required boolean only needs to be
// defined, not true.
type BooleanRule struct {
	Field    string
	Required bool
}

func (r *BooleanRule) Validate(value any, present bool) error {
	if !present || value == nil {
		if r.Required {
			return fmt.Errorf("%s must be defined", r.Field)
		}
		return nil
	}
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", r.Field)
	}
	return nil
}

// NumberRule accepts numbers. A required number only needs to be
// defined; zero passes.
type NumberRule struct {
	Field    string
	Required bool
}

func (r *NumberRule) Validate(value any, present bool) error {
	if !present || value == nil {
		if r.Required {
			return fmt.Errorf("%s must be defined", r.Field)
		}
		return nil
	}
	if _, ok := toFloat(value); !ok {
		return fmt.Errorf("%s must be a number", r.Field)
	}
	return nil
}

// EnumRule accepts one of a fixed option list.
type EnumRule struct {
	Field    string
	Required bool
	Options  []string
}

func (r *EnumRule) Validate(value any, present bool) error {
	if !present || value == nil {
		if r.Required {
			return fmt.Errorf("%s is required", r.Field)
		}
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", r.Field)
	}
	if r.Required && s == "" {
		return fmt.Errorf("%s is required", r.Field)
	}
	if s == "" {
		return nil
	}
	for _, option := range r.Options {
		if s == option {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %s", r.Field, strings.Join(r.Options, ", "))
}

// ListRule accepts a list of strings. A required list only needs to be
// defined, an empty list passes.
//
// TODO: product has not decided whether a required multiselect should
// reject an empty selection; until then the lax check stands.
type ListRule struct {
	Field    string
	Required bool
}

func (r *ListRule) Validate(value any, present bool) error {
	if !present || value == nil {
		if r.Required {
			return fmt.Errorf("%s must be defined", r.Field)
		}
		return nil
	}
	switch list := value.(type) {
	case []string:
		return nil
	case []any:
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("%s must be a list of strings", r.Field)
			}
		}
		return nil
	default:
		return fmt.Errorf("%s must be a list of strings", r.Field)
	}
}
