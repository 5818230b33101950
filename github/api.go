package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/actionforge/actportal-cli/utils"
)

type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch"`
	UpdatedAt     time.Time `json:"updated_at"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadBranch string    `json:"head_branch"`
	RunNumber  int       `json:"run_number"`
	Event      string    `json:"event"`
	HTMLURL    string    `json:"html_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

// GetAuthenticatedUser returns the identity behind the configured token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	body, err := c.Request(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return nil, err
	}
	user := &User{}
	if err := json.Unmarshal(body, user); err != nil {
		return nil, decodeError("user", err)
	}
	return user, nil
}

// ListRepositories lists repositories the authenticated user can access.
func (c *Client) ListRepositories(ctx context.Context, perPage int) ([]Repository, error) {
	path := fmt.Sprintf("/user/repos?per_page=%d&sort=updated", perPage)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var repos []Repository
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, decodeError("repositories", err)
	}
	return repos, nil
}

// SearchRepositories runs a free-text repository search.
func (c *Client) SearchRepositories(ctx context.Context, query string, perPage int) ([]Repository, error) {
	path := fmt.Sprintf("/search/repositories?q=%s&per_page=%d", url.QueryEscape(query), perPage)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Items []Repository `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, decodeError("search result", err)
	}
	return result.Items, nil
}

// GetPermissionLevel returns the collaborator permission of username on
// owner/repo, one of "admin", "maintain", "write", "triage", "read", "none".
func (c *Client) GetPermissionLevel(ctx context.Context, owner, repo, username string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/collaborators/%s/permission", owner, repo, username)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", decodeError("permission", err)
	}
	return result.Permission, nil
}

// CheckWritePermission reports whether the authenticated user may trigger
// workflows on owner/repo.
func (c *Client) CheckWritePermission(ctx context.Context, owner, repo string) (bool, error) {
	user, err := c.GetAuthenticatedUser(ctx)
	if err != nil {
		return false, err
	}

	level, err := c.GetPermissionLevel(ctx, owner, repo, user.Login)
	if err != nil {
		return false, err
	}

	switch level {
	case "admin", "maintain", "write":
		return true, nil
	default:
		return false, nil
	}
}

// ListWorkflows lists the workflows of a repository.
func (c *Client) ListWorkflows(ctx context.Context, owner, repo string) ([]Workflow, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows", owner, repo)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Workflows []Workflow `json:"workflows"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, decodeError("workflows", err)
	}
	return result.Workflows, nil
}

// DispatchWorkflow requests a new run of the workflow on the given ref.
// The inputs map must be flat string-to-string; the API rejects anything
// else. A successful dispatch returns no run id.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowID, ref string, inputs map[string]string) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches", owner, repo, workflowID)
	payload := map[string]any{
		"ref":    ref,
		"inputs": inputs,
	}
	_, err := c.Request(ctx, http.MethodPost, path, payload)
	return err
}

// ListWorkflowRuns lists recent runs of one workflow, newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo, workflowID string, perPage int) ([]WorkflowRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/runs?per_page=%d", owner, repo, workflowID, perPage)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, decodeError("workflow runs", err)
	}
	return result.WorkflowRuns, nil
}

// GetWorkflowRun fetches one run by id.
func (c *Client) GetWorkflowRun(ctx context.Context, owner, repo string, runID int64) (*WorkflowRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/runs/%d", owner, repo, runID)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	run := &WorkflowRun{}
	if err := json.Unmarshal(body, run); err != nil {
		return nil, decodeError("workflow run", err)
	}
	return run, nil
}

// CancelWorkflowRun requests cancellation of a run.
func (c *Client) CancelWorkflowRun(ctx context.Context, owner, repo string, runID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/runs/%d/cancel", owner, repo, runID)
	_, err := c.Request(ctx, http.MethodPost, path, nil)
	return err
}

// RerunWorkflowRun requests a rerun of a finished run.
func (c *Client) RerunWorkflowRun(ctx context.Context, owner, repo string, runID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/runs/%d/rerun", owner, repo, runID)
	_, err := c.Request(ctx, http.MethodPost, path, nil)
	return err
}

// ListBranches lists branches of a repository. Used as the data source
// of branch selector fields.
func (c *Client) ListBranches(ctx context.Context, owner, repo string, perPage int) ([]Branch, error) {
	path := fmt.Sprintf("/repos/%s/%s/branches?per_page=%d", owner, repo, perPage)
	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var branches []Branch
	if err := json.Unmarshal(body, &branches); err != nil {
		return nil, decodeError("branches", err)
	}
	return branches, nil
}

// GetFileContent fetches a file via the contents API and decodes its
// base64 payload. Used to retrieve workflow definition documents.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, filePath, ref string) ([]byte, error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.TrimPrefix(filePath, "/"))
	if ref != "" {
		path += "?ref=" + url.QueryEscape(ref)
	}

	body, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, decodeError("file content", err)
	}

	if result.Encoding != "base64" {
		return []byte(result.Content), nil
	}

	decoded, err := utils.DecodeBase64(result.Content)
	if err != nil {
		return nil, &ApiError{
			Type:    ErrUnknown,
			Message: fmt.Sprintf("unable to decode file content: %v", err),
		}
	}
	return decoded, nil
}

func decodeError(what string, err error) *ApiError {
	return &ApiError{
		Type:    ErrUnknown,
		Message: fmt.Sprintf("unable to decode %s response: %v", what, err),
	}
}
