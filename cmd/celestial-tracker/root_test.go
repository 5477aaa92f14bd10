package main

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "10.0.0.1")
	t.Setenv("ASSET_ROOT", "/srv/env")

	cmd, f := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "8123", "--reload"}))

	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.True(t, cfg.Assets.Reload)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/srv/env", cfg.Assets.Root)
}

func TestLoadConfigRejectsInvalidFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "")

	cmd, f := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "70000"}))

	_, err := loadConfig(cmd, f)
	assert.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	cmd, _ := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), appVersion)
}

func TestRejectsPositionalArgs(t *testing.T) {
	cmd, _ := newRootCmd()
	cmd.SetArgs([]string{"serve"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestExecuteContextStopsServer(t *testing.T) {
	t.Chdir(t.TempDir())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("ASSET_ROOT", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd, _ := newRootCmd()
	cmd.SetArgs([]string{})

	assert.NoError(t, cmd.ExecuteContext(ctx))
}
