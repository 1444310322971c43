package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "--allow-missing")
}

func TestParse_NoEntries(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Flags(t *testing.T) {
	cfg, exit, err := Parse([]string{
		"--project", "/work/project.hcl",
		"--platform", "ios",
		"--scale", "2",
		"--mocks",
		"--validate",
		"--allow-missing",
		"--concurrency", "4",
		"--max-diagnostics", "50",
		"--log-format", "JSON",
		"--log-level", "debug",
		"./index.js", "./worker.js",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"./index.js", "./worker.js"}, cfg.Entries)
	assert.Equal(t, "/work/project.hcl", cfg.ProjectFile)
	assert.Empty(t, cfg.Root)
	assert.Equal(t, "ios", cfg.Platform)
	assert.Equal(t, 2, cfg.Scale)
	assert.True(t, cfg.Mocks)
	assert.True(t, cfg.Validate)
	assert.True(t, cfg.AllowMissing)
	assert.False(t, cfg.Watch)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 50, cfg.MaxDiagnostics)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_DefaultRoot(t *testing.T) {
	cfg, _, err := Parse([]string{"index.js"}, &bytes.Buffer{})
	require.NoError(t, err)

	wd, err := filepath.Abs(".")
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.Root)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"--nope", "a.js"}, wantMsg: "unknown flag: --nope"},
		{name: "bad log format", args: []string{"--log-format", "xml", "a.js"}, wantMsg: "invalid log-format"},
		{name: "bad log level", args: []string{"--log-level", "trace", "a.js"}, wantMsg: "invalid log-level"},
		{name: "negative scale", args: []string{"--scale", "-1", "a.js"}, wantMsg: "scale cannot be negative"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})

			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
