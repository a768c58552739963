package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/otapublish/pkg/store"
)

const assetMetadataQuery = `query GetAssetMetadataAsync($storageKeys: [String!]!) {
  asset {
    metadata(storageKeys: $storageKeys) {
      storageKey
      status
    }
  }
}`

const signedUploadMutation = `mutation GetSignedAssetUploadSpecifications($assetContentTypes: [String!]!) {
  asset {
    getSignedAssetUploadSpecifications(assetContentTypes: $assetContentTypes) {
      specifications
    }
  }
}`

const assetLimitQuery = `query AppAssetLimit($appId: String!) {
  app {
    byId(appId: $appId) {
      id
      assetLimitPerUpdateGroup
    }
  }
}`

// CheckExistence reports EXISTS or DOES_NOT_EXIST for each storage key
func (c *Client) CheckExistence(ctx context.Context, storageKeys []string) ([]store.AssetStatus, error) {
	var data struct {
		Asset struct {
			Metadata []store.AssetStatus `json:"metadata"`
		} `json:"asset"`
	}
	vars := map[string]any{"storageKeys": storageKeys}
	if err := c.execute(ctx, "asset metadata", assetMetadataQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.Asset.Metadata, nil
}

// NegotiateUploads asks for one signed upload destination per request.
// The API keys destinations by content type and derives storage keys itself.
func (c *Client) NegotiateUploads(ctx context.Context, requests []store.UploadRequest) ([]store.UploadSpecification, error) {
	contentTypes := make([]string, len(requests))
	for i, r := range requests {
		contentTypes[i] = r.ContentType
	}

	var data struct {
		Asset struct {
			GetSignedAssetUploadSpecifications struct {
				Specifications []string `json:"specifications"`
			} `json:"getSignedAssetUploadSpecifications"`
		} `json:"asset"`
	}
	vars := map[string]any{"assetContentTypes": contentTypes}
	if err := c.execute(ctx, "signed upload specifications", signedUploadMutation, vars, &data); err != nil {
		return nil, err
	}

	raw := data.Asset.GetSignedAssetUploadSpecifications.Specifications
	specs := make([]store.UploadSpecification, 0, len(raw))
	for i, s := range raw {
		var spec store.UploadSpecification
		if err := json.Unmarshal([]byte(s), &spec); err != nil {
			return nil, fmt.Errorf("failed to decode upload specification %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// AssetLimit returns the project's per-update-group asset limit
func (c *Client) AssetLimit(ctx context.Context, projectID string) (int, error) {
	var data struct {
		App struct {
			ByID struct {
				ID                       string `json:"id"`
				AssetLimitPerUpdateGroup int    `json:"assetLimitPerUpdateGroup"`
			} `json:"byId"`
		} `json:"app"`
	}
	vars := map[string]any{"appId": projectID}
	if err := c.execute(ctx, "asset limit", assetLimitQuery, vars, &data); err != nil {
		return 0, err
	}
	return data.App.ByID.AssetLimitPerUpdateGroup, nil
}
