package publish

import (
	"context"
	"fmt"

	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/store"
)

// filterExisting returns the subset of assets the store does not report as
// present. Keys missing from the response count as missing.
func (p *Publisher) filterExisting(ctx context.Context, assets []Asset) ([]Asset, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	statuses, err := p.store.CheckExistence(ctx, storageKeys(assets))
	if err != nil {
		return nil, fmt.Errorf("failed to check asset existence: %w", err)
	}

	exists := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		if s.Status == store.StatusExists {
			exists[s.StorageKey] = true
		}
	}

	missing := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if !exists[a.StorageKey] {
			missing = append(missing, a)
		}
	}
	return missing, nil
}

// negotiate requests one upload destination per asset in sequential batches.
// specs[i] belongs to assets[i].
func (p *Publisher) negotiate(ctx context.Context, assets []Asset) ([]store.UploadSpecification, error) {
	batchSize := p.opts.BatchSize
	specs := make([]store.UploadSpecification, 0, len(assets))

	for start := 0; start < len(assets); start += batchSize {
		end := start + batchSize
		if end > len(assets) {
			end = len(assets)
		}

		requests := make([]store.UploadRequest, 0, end-start)
		for _, a := range assets[start:end] {
			requests = append(requests, store.UploadRequest{StorageKey: a.StorageKey, ContentType: a.ContentType})
		}

		got, err := p.store.NegotiateUploads(ctx, requests)
		if err != nil {
			return nil, fmt.Errorf("failed to negotiate upload URLs: %w", err)
		}
		if len(got) != len(requests) {
			return nil, &ProtocolError{Message: fmt.Sprintf("requested %d upload specifications, received %d", len(requests), len(got))}
		}
		for i, spec := range got {
			if spec.URL == "" {
				return nil, &ProtocolError{Message: fmt.Sprintf("upload specification %d has no URL", start+i)}
			}
		}
		specs = append(specs, got...)
		logger.Trace("Negotiated upload batch", logger.Int("from", start), logger.Int("to", end))
	}

	return specs, nil
}
