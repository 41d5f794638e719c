package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "recommend", "prune", "mcp"} {
		assert.True(t, names[want], "missing %s", want)
	}
	assert.NotNil(t, root.Flags().Lookup("port"), "root serves by default")
}

func TestRecommendRequiresQuery(t *testing.T) {
	root := NewRootCmd(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"recommend"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arg")
}

func TestPruneOnSQLite(t *testing.T) {
	t.Setenv("STORE", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/cache.db")
	root := NewRootCmd(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	root.SetArgs([]string{"prune"})
	require.NoError(t, root.Execute())
}
