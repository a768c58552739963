package cmd

import (
	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/publish"
	"github.com/spf13/cobra"
)

// inspectReport summarizes an export without contacting the asset store
type inspectReport struct {
	AssetCount       int                     `json:"assetCount" yaml:"assetCount"`
	LaunchAssetCount int                     `json:"launchAssetCount" yaml:"launchAssetCount"`
	UniqueAssetCount int                     `json:"uniqueAssetCount" yaml:"uniqueAssetCount"`
	UniqueBytes      int64                   `json:"uniqueBytes" yaml:"uniqueBytes"`
	UpdateInfoGroup  publish.UpdateInfoGroup `json:"updateInfoGroup" yaml:"updateInfoGroup"`

	paths map[bundle.Platform][]string
}

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Hash an export and show its storage keys without uploading",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}

	cmd.Flags().StringP("input-dir", "i", "dist", "Export directory containing metadata.json")
	cmd.Flags().StringP("platform", "p", bundle.PlatformAll, "Platform to inspect (android|ios|web|all)")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text|json|yaml)")
	cmd.Flags().Int("hash-concurrency", 0, "Maximum files hashed at once (0 = number of CPUs)")

	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	platform, _ := cmd.Flags().GetString("platform")
	output, _ := cmd.Flags().GetString("output")
	hashConcurrency, _ := cmd.Flags().GetInt("hash-concurrency")

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	collected, err := loadExport(inputDir, platform)
	if err != nil {
		return err
	}
	hashed, err := publish.HashCollected(cmd.Context(), collected, hashConcurrency)
	if err != nil {
		return err
	}

	unique := publish.Dedupe(hashed.All())
	report := &inspectReport{
		AssetCount:       collected.Count(),
		LaunchAssetCount: collected.LaunchAssetCount(),
		UniqueAssetCount: len(unique),
		UpdateInfoGroup:  publish.BuildUpdateInfoGroup(hashed),
		paths:            make(map[bundle.Platform][]string, len(hashed)),
	}
	for _, a := range unique {
		report.UniqueBytes += a.Size
	}
	for _, p := range hashed {
		for _, a := range p.Assets {
			report.paths[p.Platform] = append(report.paths[p.Platform], a.DisplayPath())
		}
	}

	return writeInspectReport(cmd.OutOrStdout(), output, report)
}
