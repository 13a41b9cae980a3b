package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, `unknown_setting = "value"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_Suggestion(t *testing.T) {
	path := writeTestConfig(t, `server_ulr = "http://localhost:8000"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "server_url"`)
}

func TestLoad_KnownKeyInsideTable(t *testing.T) {
	path := writeTestConfig(t, "[network]\nconnect_timeout = \"5s\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be at top level")
}

func TestLoad_UnknownKey_MultipleReported(t *testing.T) {
	path := writeTestConfig(t, "log_levle = \"info\"\ndownload_dri = \"/tmp\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "download_dir")
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "log_level", closestMatch("log_levl", knownGlobalKeysList))
	assert.Empty(t, closestMatch("completely_unrelated_name", knownGlobalKeysList))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}
