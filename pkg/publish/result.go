package publish

import "math"

// WarningThresholdRatio is the share of the per-publish asset limit above
// which callers should warn.
const WarningThresholdRatio = 0.75

// AssetUploadResult summarizes a publish.
type AssetUploadResult struct {
	AssetCount               int      `json:"assetCount" yaml:"assetCount"`
	LaunchAssetCount         int      `json:"launchAssetCount" yaml:"launchAssetCount"`
	UniqueAssetCount         int      `json:"uniqueAssetCount" yaml:"uniqueAssetCount"`
	UniqueUploadedAssetCount int      `json:"uniqueUploadedAssetCount" yaml:"uniqueUploadedAssetCount"`
	UniqueUploadedAssetPaths []string `json:"uniqueUploadedAssetPaths" yaml:"uniqueUploadedAssetPaths"`
	AssetLimitPerUpdateGroup int      `json:"assetLimitPerUpdateGroup" yaml:"assetLimitPerUpdateGroup"`
}

// ExceedsWarningThreshold reports whether this publish uploaded more than
// 75% of the asset limit.
func (r *AssetUploadResult) ExceedsWarningThreshold() bool {
	return ExceedsWarningThreshold(r.UniqueUploadedAssetCount, r.AssetLimitPerUpdateGroup)
}

// ExceedsWarningThreshold is uploaded > floor(limit * 0.75).
func ExceedsWarningThreshold(uploaded, limit int) bool {
	return uploaded > int(math.Floor(float64(limit)*WarningThresholdRatio))
}

func aggregate(hashed HashedAssets, unique, uploaded []Asset, limit int) *AssetUploadResult {
	res := &AssetUploadResult{
		LaunchAssetCount:         len(hashed),
		UniqueAssetCount:         len(unique),
		UniqueUploadedAssetCount: len(uploaded),
		UniqueUploadedAssetPaths: []string{},
		AssetLimitPerUpdateGroup: limit,
	}
	for _, p := range hashed {
		res.AssetCount += 1 + len(p.Assets)
	}
	for _, a := range uploaded {
		if a.OriginalPath != "" {
			res.UniqueUploadedAssetPaths = append(res.UniqueUploadedAssetPaths, a.OriginalPath)
		}
	}
	return res
}
