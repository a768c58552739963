package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/safeio"
)

// AssetMapFile is the optional asset map written next to metadata.json.
const AssetMapFile = "assetmap.json"

// AssetMapEntry describes the pre-hash location of an asset.
type AssetMapEntry struct {
	HTTPServerLocation string `json:"httpServerLocation"`
	Name               string `json:"name"`
	Type               string `json:"type"`
}

// AssetMap is keyed by content hash.
type AssetMap map[string]AssetMapEntry

// assetHashPattern captures the hash segment of ".../assets/<hash>".
var assetHashPattern = regexp.MustCompile(`^(?:.*/)?assets/([a-z0-9]+)$`)

// LoadAssetMap reads assetmap.json from distRoot. The map only feeds display
// paths, so a missing or unreadable file yields nil.
func LoadAssetMap(distRoot string) AssetMap {
	data, err := safeio.ReadFileContained(distRoot, filepath.Join(distRoot, AssetMapFile))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("Ignoring unreadable asset map", logger.Err(err))
		}
		return nil
	}

	var m AssetMap
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Debug("Ignoring invalid asset map", logger.Err(err))
		return nil
	}
	return m
}

// OriginalPath recovers the human-readable path of a hashed asset.
// ok is false when the path carries no hash or the map has no entry for it.
func (m AssetMap) OriginalPath(storedPath string) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	match := assetHashPattern.FindStringSubmatch(filepath.ToSlash(storedPath))
	if match == nil {
		return "", false
	}
	entry, ok := m[match[1]]
	if !ok || entry.Name == "" {
		return "", false
	}

	prefix := strings.TrimPrefix(entry.HTTPServerLocation, "/assets")
	name := entry.Name
	if entry.Type != "" {
		name += "." + entry.Type
	}
	return prefix + "/" + name, true
}
