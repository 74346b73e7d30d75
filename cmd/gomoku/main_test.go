package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

// settingsFor parses args with the real flag set and builds settings.
func settingsFor(t *testing.T, args ...string) (game.Settings, error) {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	var o options
	f := cmd.Flags()
	o.board, _ = f.GetInt("board")
	o.playerX, _ = f.GetString("player-x")
	o.playerO, _ = f.GetString("player-o")
	o.undo, _ = f.GetBool("undo")
	o.timeout, _ = f.GetInt("timeout")
	o.depth, _ = f.GetString("depth")
	o.level, _ = f.GetString("level")
	o.radius, _ = f.GetInt("radius")
	return buildSettings(o, config.DefaultConfig(), f.Changed)
}

func TestDefaults(t *testing.T) {
	s, err := settingsFor(t)
	require.NoError(t, err)
	assert.Equal(t, 19, s.BoardSize)
	assert.Equal(t, game.Human, s.X.Kind)
	assert.Equal(t, game.AI, s.O.Kind)
	assert.Equal(t, 4, s.O.Depth)
	assert.Equal(t, 2, s.Radius)
	assert.Zero(t, s.Timeout)
	assert.False(t, s.Undo)
}

func TestFlags(t *testing.T) {
	s, err := settingsFor(t, "-b", "15", "-d", "3:5", "-r", "4", "-t", "30", "-u")
	require.NoError(t, err)
	assert.Equal(t, 15, s.BoardSize)
	assert.Equal(t, 3, s.X.Depth)
	assert.Equal(t, 5, s.O.Depth)
	assert.Equal(t, 4, s.Radius)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.True(t, s.Undo)
}

func TestLevel(t *testing.T) {
	s, err := settingsFor(t, "-l", "hard")
	require.NoError(t, err)
	assert.Equal(t, 6, s.X.Depth)
	assert.Equal(t, 6, s.O.Depth)

	_, err = settingsFor(t, "-l", "grandmaster")
	assert.Error(t, err)
}

func TestPlayerImplications(t *testing.T) {
	s, err := settingsFor(t, "-o", "human")
	require.NoError(t, err)
	assert.Equal(t, game.AI, s.X.Kind)
	assert.Equal(t, game.Human, s.O.Kind)

	s, err = settingsFor(t, "-x", "ai")
	require.NoError(t, err)
	assert.Equal(t, game.AI, s.X.Kind)
	assert.Equal(t, game.Human, s.O.Kind)

	s, err = settingsFor(t, "-x", "ai", "-o", "ai")
	require.NoError(t, err)
	assert.Equal(t, game.AI, s.X.Kind)
	assert.Equal(t, game.AI, s.O.Kind)

	s, err = settingsFor(t, "-x", "human", "-o", "human")
	require.NoError(t, err)
	assert.Equal(t, game.Human, s.X.Kind)
	assert.Equal(t, game.Human, s.O.Kind)
}

func TestInvalidFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-b", "17"},
		{"-r", "0"},
		{"-r", "6"},
		{"-d", "11"},
		{"-d", "2:x"},
		{"-x", "robot"},
		{"-t", "-1"},
	} {
		_, err := settingsFor(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestHeadlessGameWritesRecord(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "game.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  size: 4096\n"), 0o644))

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"-c", cfgPath, "-b", "15", "-x", "ai", "-o", "ai", "-d", "1", "-r", "1", "-j", record})
	require.NoError(t, cmd.Execute(), errOut.String())

	assert.Contains(t, out.String(), "X: AI (depth 1) | O: AI (depth 1)")
	assert.Contains(t, out.String(), "Game saved to "+record)
	sess, err := game.Load(record, game.FileLimits)
	require.NoError(t, err)
	assert.True(t, sess.Status().Finished())
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "game.json")
	require.NoError(t, os.WriteFile(record, []byte(`{"X":{"player":"human"},"O":{"player":"AI"},"board_size":15,
"moves":[{"X (human)":[7,7]},{"O (AI)":[6,6]}]}`), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewBufferString("\n\n\n"))
	cmd.SetArgs([]string{"-c", filepath.Join(dir, "missing.yaml"), "-p", record})
	err := cmd.Execute()
	// A missing explicit config file is an error.
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("{}\n"), 0o644))
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewBufferString("\n\n\n"))
	cmd.SetArgs([]string{"-c", filepath.Join(dir, "c.yaml"), "-p", record})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Move 2/2: O at [6, 6]")
	assert.Contains(t, out.String(), "Replay complete")
}
