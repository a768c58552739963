package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fulmenhq/otapublish/pkg/publish"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// maxPathWidth bounds the display width of a path in text reports
const maxPathWidth = 72

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writePublishReport(w io.Writer, format string, result *publish.AssetUploadResult) error {
	if format != outputText {
		return writeStructured(w, format, result)
	}

	fmt.Fprintf(w, "Assets:          %d (%d launch)\n", result.AssetCount, result.LaunchAssetCount)
	fmt.Fprintf(w, "Unique assets:   %d\n", result.UniqueAssetCount)
	fmt.Fprintf(w, "Uploaded:        %d\n", result.UniqueUploadedAssetCount)
	fmt.Fprintf(w, "Limit per group: %d\n", result.AssetLimitPerUpdateGroup)
	if len(result.UniqueUploadedAssetPaths) > 0 {
		fmt.Fprintln(w, "Uploaded paths:")
		for _, p := range result.UniqueUploadedAssetPaths {
			fmt.Fprintf(w, "  %s\n", truncatePath(p, maxPathWidth))
		}
	}
	return nil
}

func writeInspectReport(w io.Writer, format string, report *inspectReport) error {
	if format != outputText {
		return writeStructured(w, format, report)
	}

	fmt.Fprintf(w, "Assets:        %d (%d launch)\n", report.AssetCount, report.LaunchAssetCount)
	fmt.Fprintf(w, "Unique assets: %d\n", report.UniqueAssetCount)
	fmt.Fprintf(w, "Total size:    %d bytes\n", report.UniqueBytes)
	for _, p := range report.UpdateInfoGroup {
		fmt.Fprintf(w, "\n%s\n", p.Platform)
		fmt.Fprintf(w, "  %-44s  %s\n", p.LaunchAsset.StorageKey, p.LaunchAsset.ContentType)
		for i, a := range p.Assets {
			label := ""
			if i < len(report.paths[p.Platform]) {
				label = truncatePath(report.paths[p.Platform][i], maxPathWidth)
			}
			fmt.Fprintf(w, "  %-44s  %-24s %s\n", a.StorageKey, a.ContentType, label)
		}
	}
	return nil
}

// truncatePath keeps the tail of a path, which carries the file name,
// within width display columns
func truncatePath(p string, width int) string {
	if runewidth.StringWidth(p) <= width {
		return p
	}
	const ellipsis = "..."
	runes := []rune(p)
	kept := 0
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if kept+w > width-len(ellipsis) {
			break
		}
		kept += w
		start--
	}
	return ellipsis + string(runes[start:])
}
