/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execRoot runs a fresh command tree and returns stdout and stderr separately
func execRoot(t *testing.T, args []string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	registerSubcommands(cmd)

	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)

	full := append([]string{"--log-level", "error", "--no-color"}, args...)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

// writeExport lays out an export where ios and android share one image
func writeExport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "metadata.json", `{
  "version": 0,
  "bundler": "metro",
  "fileMetadata": {
    "ios": {
      "bundle": "_expo/static/js/ios/index.hbc",
      "assets": [{"path": "assets/abc123", "ext": "png"}]
    },
    "android": {
      "bundle": "_expo/static/js/android/index.hbc",
      "assets": [{"path": "assets/abc123", "ext": "png"}, {"path": "assets/f0f0", "ext": "ttf"}]
    }
  }
}`)
	writeFile(t, dir, "assetmap.json", `{
  "abc123": {"httpServerLocation": "/assets/images", "name": "icon", "type": "png"},
  "f0f0": {"httpServerLocation": "/assets/fonts", "name": "Inter", "type": "ttf"}
}`)
	writeFile(t, dir, "_expo/static/js/ios/index.hbc", "ios bundle")
	writeFile(t, dir, "_expo/static/js/android/index.hbc", "android bundle")
	writeFile(t, dir, "assets/abc123", "png bytes")
	writeFile(t, dir, "assets/f0f0", "font bytes")
	return dir
}

// writeConfig points the CLI at a test endpoint with fast confirmation
func writeConfig(t *testing.T, apiURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "otapublish.yaml")
	writeFile(t, filepath.Dir(path), filepath.Base(path), `api:
  url: `+apiURL+`
  token: test-token
  requests_per_second: 0
upload:
  max_attempts: 2
confirm:
  initial_delay: 5ms
  step: 5ms
  max_delay: 20ms
  timeout: 5s
`)
	return path
}
