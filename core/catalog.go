package core

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"

	gh_workflow_yml "github.com/actionforge/actportal-cli/github/workflow.yml"
)

// CatalogAction is one discoverable unit of work: a workflow in some
// repository together with its declared dispatch inputs. Actions are
// immutable once loaded, the portal core never mutates them.
type CatalogAction struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description,omitempty"`
	Repository   string        `yaml:"repository"`    // "owner/name"
	WorkflowPath string        `yaml:"workflow_path"` // e.g. ".github/workflows/deploy.yml"
	Category     string        `yaml:"category,omitempty"`
	Tags         []string      `yaml:"tags,omitempty"`
	Featured     bool          `yaml:"featured,omitempty"`
	LastUpdated  time.Time     `yaml:"last_updated,omitempty"`
	Inputs       []ActionInput `yaml:"inputs,omitempty"`
}

// ActionInput is a declared parameter of a catalog action. The default,
// when present, is always carried as a string regardless of the semantic
// type tag.
type ActionInput struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Required    bool         `yaml:"required,omitempty"`
	Default     string       `yaml:"default,omitempty"`
	HasDefault  bool         `yaml:"-"`
	Type        string       `yaml:"type,omitempty"` // string|boolean|number|choice|array
	Options     []string     `yaml:"options,omitempty"`
	Enhancement *Enhancement `yaml:"enhancement,omitempty"`
}

func (a *ActionInput) UnmarshalYAML(value *yaml.Node) error {
	type plain ActionInput
	if err := value.Decode((*plain)(a)); err != nil {
		return err
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "default" {
			a.HasDefault = true
		}
	}
	return nil
}

// InputsFromWorkflow converts extracted workflow metadata into catalog
// inputs. Extracted inputs carry no enhancement, those only come from
// curated catalog entries.
func InputsFromWorkflow(meta *gh_workflow_yml.WorkflowMetadata) []ActionInput {
	if meta == nil {
		return nil
	}
	inputs := make([]ActionInput, 0, len(meta.Inputs))
	for _, in := range meta.Inputs {
		inputs = append(inputs, ActionInput{
			Name:        in.Name,
			Description: in.Description,
			Required:    in.Required,
			Default:     in.Default,
			HasDefault:  in.HasDefault,
			Type:        in.Type,
			Options:     in.Options,
		})
	}
	return inputs
}

// SortKey selects the catalog sort order.
type SortKey string

const (
	SortByName        SortKey = "name"
	SortByLastUpdated SortKey = "lastUpdated"
	SortByCategory    SortKey = "category"
)

// FilterOptions narrow and order the catalog.
type FilterOptions struct {
	Query        string
	Categories   []string
	FeaturedOnly bool
	SortBy       SortKey
	Descending   bool
}

// Catalog is the read-only collection of actions the portal offers.
// Construct one per application assembly and pass it to the components
// that need it; there is no package-level instance.
type Catalog struct {
	actions []CatalogAction
}

func NewCatalog(actions []CatalogAction) *Catalog {
	return &Catalog{actions: actions}
}

// LoadCatalog reads a catalog file. The file is a YAML document with a
// top-level "actions" list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read catalog file '%s'", path)
	}

	var doc struct {
		Actions []CatalogAction `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "unable to parse catalog file '%s'", path)
	}

	for i, action := range doc.Actions {
		if action.ID == "" {
			return nil, errors.Errorf("catalog entry %d has no id", i)
		}
	}

	return NewCatalog(doc.Actions), nil
}

// Get returns the action with the given id.
func (c *Catalog) Get(id string) (*CatalogAction, bool) {
	for i := range c.actions {
		if c.actions[i].ID == id {
			action := c.actions[i]
			return &action, true
		}
	}
	return nil, false
}

// All returns every action in catalog order.
func (c *Catalog) All() []CatalogAction {
	out := make([]CatalogAction, len(c.actions))
	copy(out, c.actions)
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := map[string]struct{}{}
	var categories []string
	for _, action := range c.actions {
		if action.Category == "" {
			continue
		}
		if _, ok := seen[action.Category]; !ok {
			seen[action.Category] = struct{}{}
			categories = append(categories, action.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

// Filter returns the subset matching opts, ordered by the sort key.
func (c *Catalog) Filter(opts FilterOptions) []CatalogAction {
	var out []CatalogAction

	query := strings.ToLower(strings.TrimSpace(opts.Query))

	for _, action := range c.actions {
		if opts.FeaturedOnly && !action.Featured {
			continue
		}
		if len(opts.Categories) > 0 && !containsFold(opts.Categories, action.Category) {
			continue
		}
		if query != "" && !matchesQuery(action, query) {
			continue
		}
		out = append(out, action)
	}

	sortActions(out, opts.SortBy, opts.Descending)
	return out
}

func matchesQuery(action CatalogAction, query string) bool {
	if strings.Contains(strings.ToLower(action.Name), query) ||
		strings.Contains(strings.ToLower(action.Description), query) ||
		strings.Contains(strings.ToLower(action.Repository), query) {
		return true
	}
	for _, tag := range action.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func sortActions(actions []CatalogAction, key SortKey, descending bool) {
	less := func(a, b CatalogAction) bool {
		switch key {
		case SortByLastUpdated:
			return a.LastUpdated.Before(b.LastUpdated)
		case SortByCategory:
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return a.Name < b.Name
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if descending {
			return less(actions[j], actions[i])
		}
		return less(actions[i], actions[j])
	})
}
