package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

func execWhitelist(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := baseRootCmd()
	cmd.AddCommand(newWhitelistCmd())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs(append([]string{"whitelist"}, args...))
	err := cmd.Execute()

	return out.String(), err
}

func useTempWhitelist(t *testing.T) m.Path {
	t.Helper()

	path := filepath.Join(t.TempDir(), "whitelist.yaml")
	viper.Set(whitelistPathConfigKey, path)
	t.Cleanup(func() { viper.Set(whitelistPathConfigKey, defaultWhitelistPath) })

	return m.Path(path)
}

func TestWhitelistAdd_PersistsEntry(t *testing.T) {
	path := useTempWhitelist(t)

	out, err := execWhitelist(t, "add", "SVAnalytics*", "--kind", "class", "--reason", "reflection")
	require.NoError(t, err)
	assert.Contains(t, out, "added")

	entries, err := whitelist.Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SVAnalytics*", entries[0].Pattern)
	assert.Equal(t, m.KindClass, entries[0].Kind)
	assert.Equal(t, "reflection", entries[0].Reason)
}

func TestWhitelistAdd_DuplicateIsIdempotent(t *testing.T) {
	path := useTempWhitelist(t)

	_, err := execWhitelist(t, "add", "SVCore")
	require.NoError(t, err)

	out, err := execWhitelist(t, "add", "SVCore")
	require.NoError(t, err)
	assert.Contains(t, out, "already whitelisted")

	entries, err := whitelist.Load(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWhitelistAdd_RejectsUnknownKind(t *testing.T) {
	useTempWhitelist(t)

	_, err := execWhitelist(t, "add", "SVCore", "--kind", "macro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macro")
}

func TestWhitelistList_Empty(t *testing.T) {
	useTempWhitelist(t)

	out, err := execWhitelist(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no user whitelist entries")
}

func TestWhitelistList_RendersEntries(t *testing.T) {
	useTempWhitelist(t)

	_, err := execWhitelist(t, "add", "SVCore", "--reason", "public API")
	require.NoError(t, err)

	out, err := execWhitelist(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SVCore")
	assert.Contains(t, out, "all")
	assert.Contains(t, out, "public API")
}
