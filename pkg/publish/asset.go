package publish

import (
	"context"
	"runtime"

	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/contenthash"
	"golang.org/x/sync/errgroup"
)

// Asset is a RawAsset with its content address.
type Asset struct {
	bundle.RawAsset
	FileSHA256 string `json:"fileSHA256"`
	BundleKey  string `json:"bundleKey"`
	StorageKey string `json:"storageKey"`
	Size       int64  `json:"size"`
}

// HashedPlatformAssets mirrors bundle.PlatformAssets with hashes attached.
type HashedPlatformAssets struct {
	Platform    bundle.Platform
	LaunchAsset Asset
	Assets      []Asset
}

// HashedAssets is ordered like the CollectedAssets it was built from.
type HashedAssets []HashedPlatformAssets

// All flattens per platform: launch asset first, then the regular assets.
func (h HashedAssets) All() []Asset {
	var out []Asset
	for _, p := range h {
		out = append(out, p.LaunchAsset)
		out = append(out, p.Assets...)
	}
	return out
}

// HashAssets hashes every occurrence once, with at most concurrency files
// open at a time. The result is in input order.
func HashAssets(ctx context.Context, raws []bundle.RawAsset, concurrency int) ([]Asset, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	out := make([]Asset, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := contenthash.HashFile(raws[i].Path)
			if err != nil {
				return err
			}
			out[i] = Asset{
				RawAsset:   raws[i],
				FileSHA256: h.SHA256,
				BundleKey:  h.BundleKey,
				StorageKey: contenthash.StorageKey(raws[i].ContentType, h.SHA256),
				Size:       h.Size,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HashCollected hashes a whole collection, keeping the platform grouping.
func HashCollected(ctx context.Context, collected bundle.CollectedAssets, concurrency int) (HashedAssets, error) {
	hashed, err := HashAssets(ctx, collected.All(), concurrency)
	if err != nil {
		return nil, err
	}

	out := make(HashedAssets, 0, len(collected))
	pos := 0
	for _, p := range collected {
		group := HashedPlatformAssets{
			Platform:    p.Platform,
			LaunchAsset: hashed[pos],
			Assets:      hashed[pos+1 : pos+1+len(p.Assets)],
		}
		pos += 1 + len(p.Assets)
		out = append(out, group)
	}
	return out, nil
}

// Dedupe keeps the first asset for each storage key, preserving order.
func Dedupe(assets []Asset) []Asset {
	seen := make(map[string]struct{}, len(assets))
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.StorageKey]; ok {
			continue
		}
		seen[a.StorageKey] = struct{}{}
		out = append(out, a)
	}
	return out
}

func storageKeys(assets []Asset) []string {
	keys := make([]string, len(assets))
	for i, a := range assets {
		keys[i] = a.StorageKey
	}
	return keys
}
