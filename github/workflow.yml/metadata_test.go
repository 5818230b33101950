package gh_workflow_yml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetadataDispatchInputs(t *testing.T) {
	doc := []byte(`
name: Deploy
on:
  workflow_dispatch:
    inputs:
      branch:
        required: true
        default: main
jobs:
  deploy:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
`)

	meta := ExtractMetadata(doc)
	require.NotNil(t, meta)

	assert.Equal(t, "Deploy", meta.Name)
	assert.True(t, meta.HasDispatchTrigger)
	assert.Equal(t, 1, meta.JobCount)

	require.Len(t, meta.Inputs, 1)
	in := meta.Inputs[0]
	assert.Equal(t, "branch", in.Name)
	assert.True(t, in.Required)
	assert.Equal(t, "main", in.Default)
	assert.True(t, in.HasDefault)
	// type defaults to string when absent
	assert.Equal(t, "string", in.Type)
}

func TestExtractMetadataBooleanDefaultBecomesString(t *testing.T) {
	doc := []byte(`
name: Flags
on:
  workflow_dispatch:
    inputs:
      dry_run:
        type: boolean
        default: false
      retries:
        type: number
        default: 3
`)

	meta := ExtractMetadata(doc)
	require.NotNil(t, meta)
	require.Len(t, meta.Inputs, 2)

	assert.Equal(t, "false", meta.Inputs[0].Default)
	assert.Equal(t, "boolean", meta.Inputs[0].Type)
	assert.Equal(t, "3", meta.Inputs[1].Default)
}

func TestExtractMetadataInputOrderAndOptions(t *testing.T) {
	doc := []byte(`
on:
  workflow_dispatch:
    inputs:
      zulu:
        type: choice
        options: [c, a, b]
      alpha: {}
      mike: {}
`)

	meta := ExtractMetadata(doc)
	require.NotNil(t, meta)
	require.Len(t, meta.Inputs, 3)

	// declaration order, not lexical order
	assert.Equal(t, "zulu", meta.Inputs[0].Name)
	assert.Equal(t, "alpha", meta.Inputs[1].Name)
	assert.Equal(t, "mike", meta.Inputs[2].Name)

	// options pass through as a literal ordered list
	assert.Equal(t, []string{"c", "a", "b"}, meta.Inputs[0].Options)
}

func TestExtractMetadataNameFallbacks(t *testing.T) {
	meta := ExtractMetadata([]byte("on: push\njobs: {}\n"))
	require.NotNil(t, meta)
	assert.Equal(t, FallbackName, meta.Name)
	assert.Equal(t, FallbackDescription, meta.Description)
	assert.False(t, meta.HasDispatchTrigger)

	meta = ExtractMetadata([]byte("name: CI\non: push\n"))
	require.NotNil(t, meta)
	assert.Equal(t, "CI", meta.Name)
	assert.Equal(t, "CI", meta.Description)
}

func TestExtractMetadataTriggerForms(t *testing.T) {
	// scalar form
	meta := ExtractMetadata([]byte("on: workflow_dispatch\n"))
	require.NotNil(t, meta)
	assert.True(t, meta.HasDispatchTrigger)
	assert.Empty(t, meta.Inputs)

	// sequence form
	meta = ExtractMetadata([]byte("on: [push, workflow_dispatch]\n"))
	require.NotNil(t, meta)
	assert.True(t, meta.HasDispatchTrigger)

	// map form without inputs
	meta = ExtractMetadata([]byte("on:\n  workflow_dispatch:\n  push:\n    branches: [main]\n"))
	require.NotNil(t, meta)
	assert.True(t, meta.HasDispatchTrigger)
	assert.Empty(t, meta.Inputs)

	// no dispatch trigger at all
	meta = ExtractMetadata([]byte("on:\n  push: {}\n"))
	require.NotNil(t, meta)
	assert.False(t, meta.HasDispatchTrigger)
}

func TestExtractMetadataUnparseableReturnsNil(t *testing.T) {
	assert.Nil(t, ExtractMetadata([]byte("{ not valid yaml")))
	assert.Nil(t, ExtractMetadata([]byte("\t\tbroken")))
}
