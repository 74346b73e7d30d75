package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
)

func TestBindIsRequired(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind")
}

func TestRunRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, run(ctx, options{bind: "localhost:http"}))
	assert.Error(t, run(ctx, options{bind: "9900", agentPort: 70000}))

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  max_depth: 42\n"), 0o644))
	err := run(ctx, options{bind: "9900", configPath: cfgPath})
	var invalid *config.InvalidConfig
	assert.ErrorAs(t, err, &invalid)
}

func TestOpenStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Persist = false
	db, err := openStore(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, db)

	cfg.Cache.Persist = true
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "tt")
	db, err = openStore(cfg, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
	assert.DirExists(t, cfg.Cache.Dir)
}
