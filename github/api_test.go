package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchWorkflowPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.DispatchWorkflow(context.Background(), "org", "repo", "deploy.yml", "main",
		map[string]string{"environment": "staging"})
	require.NoError(t, err)

	assert.Equal(t, "/repos/org/repo/actions/workflows/deploy.yml/dispatches", gotPath)
	assert.Equal(t, "main", gotBody["ref"])

	// the dispatch contract requires a flat string-to-string input map
	inputs, ok := gotBody["inputs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "staging", inputs["environment"])
}

func TestCheckWritePermission(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"login":"octocat"}`))
		case "/repos/org/repo/collaborators/octocat/permission":
			_, _ = w.Write([]byte(`{"permission":"write"}`))
		case "/repos/org/other/collaborators/octocat/permission":
			_, _ = w.Write([]byte(`{"permission":"read"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	allowed, err := client.CheckWritePermission(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = client.CheckWritePermission(context.Background(), "org", "other")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGetFileContentDecodesBase64(t *testing.T) {
	workflow := "name: Deploy\non:\n  workflow_dispatch:\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(workflow))
	// the contents API wraps encoded payloads with line breaks
	wrapped := encoded[:10] + "\n" + encoded[10:]

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/contents/.github/workflows/deploy.yml", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		resp := map[string]string{
			"encoding": "base64",
			"content":  wrapped,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	content, err := client.GetFileContent(context.Background(), "org", "repo", ".github/workflows/deploy.yml", "main")
	require.NoError(t, err)
	assert.Equal(t, workflow, string(content))
}

func TestListBranches(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/branches", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[{"name":"main","protected":true},{"name":"develop"}]`))
	})

	branches, err := client.ListBranches(context.Background(), "org", "repo", 50)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "main", branches[0].Name)
	assert.True(t, branches[0].Protected)
}

func TestSearchRepositories(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "portal in:name", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[{"id":1,"full_name":"org/portal"}]}`))
	})

	repos, err := client.SearchRepositories(context.Background(), "portal in:name", 10)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "org/portal", repos[0].FullName)
}

func TestListWorkflowRuns(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/org/repo/actions/workflows/deploy.yml/runs", r.URL.Path)
		_, _ = w.Write([]byte(`{"workflow_runs":[
			{"id":101,"status":"queued","created_at":"2026-02-01T10:00:00Z"},
			{"id":100,"status":"completed","conclusion":"success","created_at":"2026-02-01T09:00:00Z"}
		]}`))
	})

	runs, err := client.ListWorkflowRuns(context.Background(), "org", "repo", "deploy.yml", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(101), runs[0].ID)
	assert.Equal(t, "queued", runs[0].Status)
	assert.Equal(t, "success", runs[1].Conclusion)
}
