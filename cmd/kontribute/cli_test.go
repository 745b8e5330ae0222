package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("KONTRIBUTE_CONFIG", "")
	t.Setenv("KONTRIBUTE_REGISTRY_PATH", filepath.Join(dir, "registry.db"))
	t.Setenv("KONTRIBUTE_SHARD_ENDPOINTS", "")
	t.Setenv("KONTRIBUTE_LEDGER_ADDR", "127.0.0.1:1")
}

func TestStoryKeyCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "story", "key", "alice", "the hollow tree")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "author_alice_story_the%20hollow%20tree", got["story_key"])
	assert.Equal(t, "user_alice", got["partition_key"])
	assert.True(t, strings.HasPrefix(got["first_proposal"], "proposal_1_for_author_alice_story_"))
}

func TestRegistryCommands(t *testing.T) {
	isolate(t)

	_, err := run(t, "registry", "add", "http://shared")
	require.NoError(t, err)
	_, err = run(t, "registry", "add", "--partition", "user_alice", "--position", "1", "http://alice-1/")
	require.NoError(t, err)

	out, err := run(t, "registry", "ls", "--for", "user_alice")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "http://alice-1")
	assert.Contains(t, lines[2], "http://shared")

	_, err = run(t, "registry", "rm", "--partition", "user_alice", "http://alice-1")
	require.NoError(t, err)
	_, err = run(t, "registry", "rm", "--partition", "user_alice", "http://alice-1")
	assert.Error(t, err)
}

func TestStoryShowWithoutReplicas(t *testing.T) {
	isolate(t)

	out, err := run(t, "story", "show", "author_alice_story_missing")
	require.NoError(t, err)
	assert.Contains(t, out, "not available yet")

	_, err = run(t, "story", "show", "garbage")
	assert.Error(t, err)
}
