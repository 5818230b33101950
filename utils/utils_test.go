package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"git@github.com:org/repo.git", "org/repo"},
		{"https://github.com/org/repo.git", "org/repo"},
		{"https://github.com/org/repo", "org/repo"},
		{"ssh://git@github.com/org/repo.git", "org/repo"},
	}

	for _, tt := range tests {
		got, err := ParseRemoteURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}

	_, err := ParseRemoteURL("https://gitlab.com/org/repo.git")
	assert.Error(t, err)

	_, err = ParseRemoteURL("git@github.com:broken")
	assert.Error(t, err)
}

func TestDecodeBase64StripsLineBreaks(t *testing.T) {
	// the contents API wraps payloads at 60 characters
	decoded, err := DecodeBase64("aGVsbG8g\nd29ybGQ=\r\n")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(decoded))

	_, err = DecodeBase64("not base64 !!!")
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actportal.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
repository = "org/repo"
ref = "main"
poll_interval_ms = 2000
`), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "org/repo", settings.Repository)
	assert.Equal(t, "main", settings.Ref)
	assert.Equal(t, 2000, settings.PollIntervalMs)

	// a missing file yields empty settings, not an error
	settings, err = LoadSettings(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, settings.Repository)
}

func TestLoadEnvFileRejectsYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("token: abc\n"), 0o644))

	err := LoadEnvFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML")
}

func TestIf(t *testing.T) {
	assert.Equal(t, "a", If(true, "a", "b"))
	assert.Equal(t, "b", If(false, "a", "b"))
	assert.Equal(t, 2, Min(2, 5))
	assert.Equal(t, 2, Min(5, 2))
}
