package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

const twoPlatformMetadata = `{
  "version": 0,
  "bundler": "metro",
  "fileMetadata": {
    "ios": {
      "bundle": "_expo/static/js/ios/index.hbc",
      "assets": [{"path": "assets/abc123", "ext": "png"}, {"path": "assets/f0f0", "ext": "ttf"}]
    },
    "android": {
      "bundle": "_expo/static/js/android/index.hbc",
      "assets": [{"path": "assets/abc123", "ext": ".png"}]
    }
  }
}`
