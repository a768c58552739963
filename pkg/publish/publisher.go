package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/fulmenhq/otapublish/pkg/work"
)

const (
	// DefaultUploadConcurrency caps transfers in flight for one publish.
	DefaultUploadConcurrency = 15
	// DefaultBatchSize bounds assets per upload negotiation request.
	DefaultBatchSize = 100
)

// ProgressFunc receives the unique asset count and how many are still missing.
type ProgressFunc func(totalUnique, missing int)

// Options configures a Publisher. Zero values take the defaults, except
// Confirm.Timeout where zero means no bound.
type Options struct {
	UploadConcurrency int
	BatchSize         int
	HashConcurrency   int
	Confirm           ConfirmPolicy
	Progress          ProgressFunc
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		UploadConcurrency: DefaultUploadConcurrency,
		BatchSize:         DefaultBatchSize,
		Confirm:           DefaultConfirmPolicy(),
	}
}

// Publisher uploads the assets of an exported bundle to an AssetStore.
type Publisher struct {
	store     store.AssetStore
	transport store.Transport
	opts      Options

	after func(time.Duration) <-chan time.Time
}

// NewPublisher wires a store and transport into a pipeline.
func NewPublisher(s store.AssetStore, t store.Transport, opts Options) *Publisher {
	def := DefaultOptions()
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = def.UploadConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Confirm.InitialDelay <= 0 {
		opts.Confirm.InitialDelay = def.Confirm.InitialDelay
	}
	if opts.Confirm.Step <= 0 {
		opts.Confirm.Step = def.Confirm.Step
	}
	if opts.Confirm.MaxDelay <= 0 {
		opts.Confirm.MaxDelay = def.Confirm.MaxDelay
	}
	return &Publisher{
		store:     s,
		transport: t,
		opts:      opts,
		after:     time.After,
	}
}

func (p *Publisher) progress(totalUnique, missing int) {
	if p.opts.Progress != nil {
		p.opts.Progress(totalUnique, missing)
	}
}

// UploadAssets hashes the collection and publishes it. See UploadHashed.
func (p *Publisher) UploadAssets(ctx context.Context, collected bundle.CollectedAssets, projectID string) (*AssetUploadResult, error) {
	hashed, err := HashCollected(ctx, collected, p.opts.HashConcurrency)
	if err != nil {
		return nil, err
	}
	return p.UploadHashed(ctx, hashed, projectID)
}

// UploadHashed makes every unique asset present in the store: assets the
// store already has are skipped, the rest are negotiated, uploaded and then
// polled until visible.
func (p *Publisher) UploadHashed(ctx context.Context, hashed HashedAssets, projectID string) (*AssetUploadResult, error) {
	all := hashed.All()
	unique := Dedupe(all)
	logger.Debug("Collected assets",
		logger.Int("total", len(all)),
		logger.Int("unique", len(unique)),
		logger.Int("platforms", len(hashed)))

	limit, err := p.store.AssetLimit(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset limit for project %s: %w", projectID, err)
	}

	missing, err := p.filterExisting(ctx, unique)
	if err != nil {
		return nil, err
	}
	p.progress(len(unique), len(missing))

	if len(missing) > 0 {
		specs, err := p.negotiate(ctx, missing)
		if err != nil {
			return nil, err
		}
		p.progress(len(unique), len(missing))

		logger.Info(fmt.Sprintf("Uploading %d of %d unique assets", len(missing), len(unique)),
			logger.Int64("bytes", totalSize(missing)))
		if err := p.upload(ctx, missing, specs); err != nil {
			return nil, err
		}

		if err := p.confirm(ctx, missing, len(unique)); err != nil {
			return nil, err
		}
	}

	return aggregate(hashed, unique, missing, limit), nil
}

// upload transfers assets[i] to specs[i] with at most UploadConcurrency in
// flight. The first terminal failure stops the remaining transfers.
func (p *Publisher) upload(ctx context.Context, assets []Asset, specs []store.UploadSpecification) error {
	items := make([]work.WorkItem, len(assets))
	for i, a := range assets {
		items[i] = work.WorkItem{ID: a.StorageKey, Index: i, Path: a.Path}
	}
	if err := work.ValidateItems(items); err != nil {
		return fmt.Errorf("invalid upload batch: %w", err)
	}

	proc := work.ProcessorFunc(func(ctx context.Context, item *work.WorkItem) error {
		if err := p.transport.Upload(ctx, item.Path, specs[item.Index]); err != nil {
			return &TransferError{Path: assets[item.Index].DisplayPath(), StorageKey: item.ID, Err: err}
		}
		return nil
	})

	cfg := work.DispatcherConfig{
		MaxWorkers:  p.opts.UploadConcurrency,
		StopOnError: true,
	}
	if logger.Enabled(logger.TraceLevel) {
		cfg.ProgressCallback = func(r work.ExecutionResult) {
			if r.Success {
				logger.Trace("Uploaded asset",
					logger.String("path", assets[r.Index].Path),
					logger.String("storage_key", r.WorkItemID),
					logger.Duration("took", r.Duration))
			}
		}
	}

	summary, err := work.NewDispatcher(cfg, proc).Execute(ctx, items)
	if summary != nil {
		logger.Debug("Upload pool finished",
			logger.Int("uploaded", summary.Successful),
			logger.Int("failed", summary.Failed),
			logger.Int("skipped", summary.Skipped),
			logger.Int("peak_in_flight", summary.PeakInFlight),
			logger.Duration("took", summary.TotalDuration))
	}
	return err
}

func totalSize(assets []Asset) int64 {
	var n int64
	for _, a := range assets {
		n += a.Size
	}
	return n
}
