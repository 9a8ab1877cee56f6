package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTokens(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	g := &globals{fs: fs}
	cmd := newTokensCommand(g)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.js", []byte("a+b"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/notes.txt", []byte("a+b"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/semtok.yaml", []byte("types: [variable, operator]\nmodifiers: []\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/ops.scm", []byte(`"+" @operator`), 0o644))
	return fs
}

func TestTokensTable(t *testing.T) {
	out, err := runTokens(t, testFs(t), "/src")
	require.NoError(t, err)
	assert.Contains(t, out, "/src/a.js\n")
	assert.Contains(t, out, "  0:1\t1\toperator\n")
	assert.NotContains(t, out, "notes.txt")
}

func TestTokensRaw(t *testing.T) {
	fs := testFs(t)
	out, err := runTokens(t, fs, "--raw", "/src/a.js")
	require.NoError(t, err)
	// Default legend: variable is 0, operator is 6.
	assert.JSONEq(t, `{"path":"/src/a.js","data":[0,0,1,0,0,0,1,1,6,0,0,1,1,0,0]}`, out)
}

func TestTokensConfigAndQuery(t *testing.T) {
	fs := testFs(t)
	g := &globals{fs: fs, configPath: "/etc/semtok.yaml"}
	cmd := newTokensCommand(g)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--raw", "--language", "javascript", "--query", "/etc/ops.scm", "/src/notes.txt"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.JSONEq(t, `{"path":"/src/notes.txt","data":[0,1,1,1,0]}`, out.String())
}

func TestTokensQueryNeedsLanguage(t *testing.T) {
	_, err := runTokens(t, testFs(t), "--query", "/etc/ops.scm", "/src")
	assert.Error(t, err)
}
