package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

const catalogDoc = `
actions:
  - id: deploy-api
    name: Deploy API
    description: Roll out the API service
    repository: org/api
    workflow_path: .github/workflows/deploy.yml
    category: deployment
    tags: [api, release]
    featured: true
    last_updated: 2026-02-01T00:00:00Z
    inputs:
      - name: environment
        required: true
        type: choice
        options: [staging, production]
      - name: dry_run
        type: boolean
        default: false
  - id: backup-db
    name: Backup Database
    repository: org/db
    workflow_path: .github/workflows/backup.yml
    category: maintenance
    last_updated: 2026-01-15T00:00:00Z
`

func writeCatalog(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, catalogDoc))
	require.NoError(t, err)
	require.Len(t, catalog.All(), 2)

	action, ok := catalog.Get("deploy-api")
	require.True(t, ok)
	assert.Equal(t, "org/api", action.Repository)
	assert.True(t, action.Featured)

	require.Len(t, action.Inputs, 2)
	assert.Equal(t, []string{"staging", "production"}, action.Inputs[0].Options)

	// a declared "default: false" is an explicit default, not absence
	assert.True(t, action.Inputs[1].HasDefault)
	assert.Equal(t, "false", action.Inputs[1].Default)
	assert.False(t, action.Inputs[0].HasDefault)

	_, ok = catalog.Get("nope")
	assert.False(t, ok)
}

func TestLoadCatalogRejectsMissingID(t *testing.T) {
	_, err := LoadCatalog(writeCatalog(t, "actions:\n  - name: Unnamed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestCatalogFilter(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, catalogDoc))
	require.NoError(t, err)

	out := catalog.Filter(FilterOptions{Query: "api"})
	require.Len(t, out, 1)
	assert.Equal(t, "deploy-api", out[0].ID)

	out = catalog.Filter(FilterOptions{Categories: []string{"Maintenance"}})
	require.Len(t, out, 1)
	assert.Equal(t, "backup-db", out[0].ID)

	out = catalog.Filter(FilterOptions{FeaturedOnly: true})
	require.Len(t, out, 1)
	assert.Equal(t, "deploy-api", out[0].ID)

	out = catalog.Filter(FilterOptions{Query: "does-not-exist"})
	assert.Empty(t, out)
}

func TestCatalogSortOrder(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, catalogDoc))
	require.NoError(t, err)

	out := catalog.Filter(FilterOptions{SortBy: SortByLastUpdated})
	require.Len(t, out, 2)
	assert.Equal(t, "backup-db", out[0].ID)

	out = catalog.Filter(FilterOptions{SortBy: SortByLastUpdated, Descending: true})
	assert.Equal(t, "deploy-api", out[0].ID)

	out = catalog.Filter(FilterOptions{SortBy: SortByName})
	assert.Equal(t, "backup-db", out[0].ID)
}

func TestCatalogCategories(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, catalogDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"deployment", "maintenance"}, catalog.Categories())
}

func TestEnhancementDecoding(t *testing.T) {
	doc := `
- name: targets
  enhancement:
    control: multi-select
    options: [eu, us]
- name: branch
  enhancement:
    control: branch-selector
    repository: org/other
- name: notes
  enhancement:
    control: textarea
    rows: 6
    depends_on: targets
    condition: eu
- name: plain
  enhancement:
    depends_on: targets
    condition: 3
`
	var inputs []ActionInput
	require.NoError(t, yaml.Unmarshal([]byte(doc), &inputs))
	require.Len(t, inputs, 4)

	ms, ok := inputs[0].Enhancement.Control.(MultiSelect)
	require.True(t, ok)
	assert.Equal(t, []string{"eu", "us"}, ms.Options)

	bs, ok := inputs[1].Enhancement.Control.(BranchSelector)
	require.True(t, ok)
	assert.Equal(t, "org/other", bs.Repository)

	ta, ok := inputs[2].Enhancement.Control.(Textarea)
	require.True(t, ok)
	assert.Equal(t, 6, ta.Rows)
	assert.Equal(t, "targets", inputs[2].Enhancement.DependsOn)
	assert.Equal(t, "eu", inputs[2].Enhancement.Condition)

	// a dependency-only enhancement has no control hint
	assert.Nil(t, inputs[3].Enhancement.Control)
	assert.Equal(t, 3, inputs[3].Enhancement.Condition)
}

func TestEnhancementUnknownControl(t *testing.T) {
	var input ActionInput
	err := yaml.Unmarshal([]byte("name: x\nenhancement:\n  control: carousel\n"), &input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carousel")
}

func TestInputsFromWorkflow(t *testing.T) {
	assert.Nil(t, InputsFromWorkflow(nil))
}
