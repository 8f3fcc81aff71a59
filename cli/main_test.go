package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// setArgs makes os.Args match args, since commands parse os.Args again from within Execute.
func setArgs(t *testing.T, args ...string) {
	orig := os.Args
	os.Args = append([]string{"oscluster"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

// capture runs fn with stdout and stderr redirected.
func capture(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStdout, origStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = w, w
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()
	fn()
	w.Close()
	<-done
	os.Stdout, os.Stderr = origStdout, origStderr
	return buf.String()
}

func TestVersion(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("OSCLUSTER_HOME", home)
	t.Setenv("OSCLUSTER_ENV_FILE", "")
	setArgs(t, "version")
	out := capture(t, func() {
		require.NoError(t, run([]string{"version"}))
	})
	_, err := os.Stat(filepath.Join(home, "conf"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "v"))
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("OSCLUSTER_TEST_VALUE=from-file\n"), 0600))
	t.Setenv("OSCLUSTER_ENV_FILE", envFile)
	t.Setenv("OSCLUSTER_TEST_VALUE", "")
	os.Unsetenv("OSCLUSTER_TEST_VALUE")
	require.NoError(t, loadEnvFile())
	require.Equal(t, "from-file", os.Getenv("OSCLUSTER_TEST_VALUE"))

	t.Setenv("OSCLUSTER_ENV_FILE", filepath.Join(dir, "missing.env"))
	require.Error(t, loadEnvFile())
}

func TestRenderConfig(t *testing.T) {
	t.Setenv("OSCLUSTER_HOME", t.TempDir())
	t.Setenv("OSCLUSTER_ENV_FILE", "")
	args := []string{"render-config", "--family", "elasticsearch", "--version", "6.8.23", "--cluster-name", "demo", "--role", "manager"}
	setArgs(t, args...)
	out := capture(t, func() {
		require.NoError(t, run(args))
	})
	require.Contains(t, out, "discovery.zen.minimum_master_nodes: 2")
	require.Contains(t, out, "node.master: true")
}
