package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fulmenhq/otapublish/pkg/api"
	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/publish"
	"github.com/fulmenhq/otapublish/pkg/s3store"
	"github.com/fulmenhq/otapublish/pkg/safeio"
	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/fulmenhq/otapublish/pkg/transport"
	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the assets of an exported bundle",
		Long: `Publish hashes every launch bundle and asset in the export directory, asks the
asset store which ones it is missing, uploads those and waits until the store
reports all of them.`,
		Args: cobra.NoArgs,
		RunE: runPublish,
	}

	cmd.Flags().StringP("input-dir", "i", "dist", "Export directory containing metadata.json")
	cmd.Flags().String("project-id", "", "Project the update group belongs to")
	cmd.Flags().StringP("platform", "p", bundle.PlatformAll, "Platform to publish (android|ios|web|all)")
	cmd.Flags().StringP("output", "o", outputText, "Result format (text|json|yaml)")
	cmd.Flags().String("report-file", "", "Also write the result to this file")
	cmd.Flags().String("store", "", "Asset store backend (graphql|s3)")
	cmd.Flags().String("api-url", "", "GraphQL endpoint of the asset store")
	cmd.Flags().Int("concurrency", 0, "Maximum uploads in flight")
	cmd.Flags().Int("hash-concurrency", 0, "Maximum files hashed at once (0 = number of CPUs)")
	cmd.Flags().Duration("confirm-timeout", 0, "Give up waiting for uploaded assets after this long (0 = wait forever)")

	return cmd
}

func runPublish(cmd *cobra.Command, _ []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	projectID, _ := cmd.Flags().GetString("project-id")
	platform, _ := cmd.Flags().GetString("platform")
	output, _ := cmd.Flags().GetString("output")
	reportFile, _ := cmd.Flags().GetString("report-file")

	if err := validateOutputFormat(output); err != nil {
		return err
	}
	if reportFile != "" {
		p, err := cleanPathFlag("report-file", reportFile)
		if err != nil {
			return err
		}
		reportFile = p
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if projectID == "" && cfg.Store.Backend == config.BackendGraphQL {
		return &configError{err: fmt.Errorf("--project-id is required for the %s backend", config.BackendGraphQL)}
	}

	collected, err := loadExport(inputDir, platform)
	if err != nil {
		return err
	}

	assetStore, err := newAssetStore(cfg)
	if err != nil {
		return &configError{err: err}
	}
	uploader := transport.New(transport.Options{
		MaxAttempts: cfg.Upload.MaxAttempts,
		Timeout:     cfg.Upload.Timeout,
	})

	progress := &progressLogger{}
	pub := publish.NewPublisher(assetStore, uploader, publish.Options{
		UploadConcurrency: cfg.Upload.Concurrency,
		BatchSize:         cfg.Upload.BatchSize,
		HashConcurrency:   cfg.Hash.Concurrency,
		Confirm: publish.ConfirmPolicy{
			InitialDelay: cfg.Confirm.InitialDelay,
			Step:         cfg.Confirm.Step,
			MaxDelay:     cfg.Confirm.MaxDelay,
			Timeout:      cfg.Confirm.Timeout,
		},
		Progress: progress.report,
	})

	start := time.Now()
	result, err := pub.UploadAssets(cmd.Context(), collected, projectID)
	if err != nil {
		return err
	}
	logger.Info("Published assets",
		logger.Int("uploaded", result.UniqueUploadedAssetCount),
		logger.Int("unique", result.UniqueAssetCount),
		logger.String("elapsed", formatDuration(time.Since(start))))

	if result.ExceedsWarningThreshold() {
		logger.Warn(fmt.Sprintf(
			"This update uploaded %d new assets, more than 75%% of the limit of %d assets per update group. Publishing will fail if the limit is exceeded.",
			result.UniqueUploadedAssetCount, result.AssetLimitPerUpdateGroup))
	}

	if err := writePublishReport(cmd.OutOrStdout(), output, result); err != nil {
		return err
	}
	if reportFile != "" {
		var buf bytes.Buffer
		if err := writePublishReport(&buf, output, result); err != nil {
			return err
		}
		if err := safeio.WriteFilePreservePerms(reportFile, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
	}
	return nil
}

// newAssetStore builds the configured backend
func newAssetStore(cfg *config.Config) (store.AssetStore, error) {
	switch cfg.Store.Backend {
	case config.BackendS3:
		return s3store.New(cfg.Store.S3)
	case config.BackendGraphQL:
		return api.NewClient(cfg.API), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// progressLogger logs the missing count whenever it changes
type progressLogger struct {
	last int
	seen bool
}

func (p *progressLogger) report(totalUnique, missing int) {
	if p.seen && missing == p.last {
		return
	}
	p.seen = true
	p.last = missing
	if missing == 0 {
		logger.Info(fmt.Sprintf("All %d unique assets are present in the asset store", totalUnique))
		return
	}
	logger.Info(fmt.Sprintf("Waiting on %d of %d unique assets", missing, totalUnique))
}
