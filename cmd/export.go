package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/safeio"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// loadExport reads metadata.json and the asset map of an export directory
// and resolves every asset of the selected platforms
func loadExport(inputDir, platform string) (bundle.CollectedAssets, error) {
	inputDir, err := cleanPathFlag("input-dir", inputDir)
	if err != nil {
		return nil, err
	}
	meta, err := bundle.LoadMetadata(inputDir)
	if err != nil {
		return nil, err
	}
	meta, err = bundle.FilterPlatforms(meta, platform)
	if err != nil {
		return nil, err
	}

	assetMap := bundle.LoadAssetMap(inputDir)
	collected, err := bundle.CollectAssets(inputDir, meta, assetMap)
	if err != nil {
		return nil, err
	}

	logger.Debug("Collected export",
		logger.String("input_dir", inputDir),
		logger.Strings("platforms", meta.PlatformNames()),
		logger.Int("assets", collected.Count()))
	return collected, nil
}

// loadConfig reads configuration and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, &configError{err: err}
	}

	applyFlagOverrides(cmd.Flags(), cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags over file and env settings
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("concurrency") {
		cfg.Upload.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("hash-concurrency") {
		cfg.Hash.Concurrency, _ = flags.GetInt("hash-concurrency")
	}
	if flags.Changed("confirm-timeout") {
		cfg.Confirm.Timeout, _ = flags.GetDuration("confirm-timeout")
	}
	if flags.Changed("store") {
		cfg.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("api-url") {
		cfg.API.URL, _ = flags.GetString("api-url")
	}
}

func cleanPathFlag(name, value string) (string, error) {
	p, err := safeio.CleanUserPath(value)
	if err != nil {
		return "", &configError{err: fmt.Errorf("--%s %q: %w", name, value, err)}
	}
	return p, nil
}

func validateOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return &configError{err: fmt.Errorf("unsupported output format: %s (expected text, json or yaml)", format)}
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
