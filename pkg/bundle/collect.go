package bundle

import (
	"fmt"

	"github.com/fulmenhq/otapublish/pkg/safeio"
)

// RawAsset is one (platform, asset) occurrence. The same file may appear in
// several platforms and yields one RawAsset each time.
type RawAsset struct {
	Path          string `json:"path"`
	ContentType   string `json:"contentType"`
	FileExtension string `json:"fileExtension,omitempty"`
	// OriginalPath is a display hint; empty when it could not be resolved.
	OriginalPath string `json:"originalPath,omitempty"`
}

// DisplayPath prefers the original path and falls back to the stored path.
func (a RawAsset) DisplayPath() string {
	if a.OriginalPath != "" {
		return a.OriginalPath
	}
	return a.Path
}

// PlatformAssets groups the launch asset and regular assets of one platform.
type PlatformAssets struct {
	Platform    Platform   `json:"platform"`
	LaunchAsset RawAsset   `json:"launchAsset"`
	Assets      []RawAsset `json:"assets"`
}

// CollectedAssets is ordered by Platforms.
type CollectedAssets []PlatformAssets

// Count returns every asset occurrence including launch assets and duplicates.
func (c CollectedAssets) Count() int {
	n := 0
	for _, p := range c {
		n += 1 + len(p.Assets)
	}
	return n
}

// LaunchAssetCount returns the number of launch assets, one per platform.
func (c CollectedAssets) LaunchAssetCount() int {
	return len(c)
}

// All flattens the collection: per platform, the launch asset then its assets.
func (c CollectedAssets) All() []RawAsset {
	out := make([]RawAsset, 0, c.Count())
	for _, p := range c {
		out = append(out, p.LaunchAsset)
		out = append(out, p.Assets...)
	}
	return out
}

// CollectAssets resolves every metadata entry into an absolute path with its
// content type. assetMap may be nil.
func CollectAssets(distRoot string, m *Metadata, assetMap AssetMap) (CollectedAssets, error) {
	collected := make(CollectedAssets, 0, len(m.FileMetadata))

	for _, entry := range m.FileMetadata {
		bundlePath, err := safeio.JoinContained(distRoot, entry.Files.Bundle)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("%s bundle path %q: %v", entry.Platform, entry.Files.Bundle, err)}
		}

		group := PlatformAssets{
			Platform: entry.Platform,
			LaunchAsset: RawAsset{
				Path:          bundlePath,
				ContentType:   LaunchAssetContentType,
				FileExtension: LaunchAssetExtension,
			},
			Assets: make([]RawAsset, 0, len(entry.Files.Assets)),
		}

		for _, a := range entry.Files.Assets {
			assetPath, err := safeio.JoinContained(distRoot, a.Path)
			if err != nil {
				return nil, &ValidationError{Message: fmt.Sprintf("%s asset path %q: %v", entry.Platform, a.Path, err)}
			}
			raw := RawAsset{
				Path:          assetPath,
				ContentType:   ContentTypeForExtension(a.Ext),
				FileExtension: NormalizeExtension(a.Ext),
			}
			if original, ok := assetMap.OriginalPath(a.Path); ok {
				raw.OriginalPath = original
			}
			group.Assets = append(group.Assets, raw)
		}

		collected = append(collected, group)
	}

	return collected, nil
}
