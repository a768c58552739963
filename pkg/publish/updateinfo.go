package publish

import "github.com/fulmenhq/otapublish/pkg/bundle"

// AssetReference is how a manifest points at a stored asset.
type AssetReference struct {
	FileSHA256    string `json:"fileSHA256" yaml:"fileSHA256"`
	BundleKey     string `json:"bundleKey" yaml:"bundleKey"`
	ContentType   string `json:"contentType" yaml:"contentType"`
	FileExtension string `json:"fileExtension,omitempty" yaml:"fileExtension,omitempty"`
	StorageKey    string `json:"storageKey" yaml:"storageKey"`
}

// PlatformUpdateInfo lists the asset references of one platform.
type PlatformUpdateInfo struct {
	Platform    bundle.Platform  `json:"platform" yaml:"platform"`
	LaunchAsset AssetReference   `json:"launchAsset" yaml:"launchAsset"`
	Assets      []AssetReference `json:"assets" yaml:"assets"`
}

// UpdateInfoGroup is ordered by platform like the collection it came from.
type UpdateInfoGroup []PlatformUpdateInfo

func referenceFor(a Asset) AssetReference {
	return AssetReference{
		FileSHA256:    a.FileSHA256,
		BundleKey:     a.BundleKey,
		ContentType:   a.ContentType,
		FileExtension: a.FileExtension,
		StorageKey:    a.StorageKey,
	}
}

// BuildUpdateInfoGroup converts hashed assets into manifest references.
// Duplicates within a platform are kept; the manifest lists what the bundle uses.
func BuildUpdateInfoGroup(hashed HashedAssets) UpdateInfoGroup {
	group := make(UpdateInfoGroup, 0, len(hashed))
	for _, p := range hashed {
		info := PlatformUpdateInfo{
			Platform:    p.Platform,
			LaunchAsset: referenceFor(p.LaunchAsset),
			Assets:      make([]AssetReference, 0, len(p.Assets)),
		}
		for _, a := range p.Assets {
			info.Assets = append(info.Assets, referenceFor(a))
		}
		group = append(group, info)
	}
	return group
}
