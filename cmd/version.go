/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/otapublish/pkg/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show otapublish version information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show module and platform details")
	cmd.Flags().Bool("json", false, "Output version information in JSON format")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	info := map[string]string{
		"version":   buildinfo.BinaryVersion,
		"goVersion": runtime.Version(),
		"platform":  runtime.GOOS,
		"arch":      runtime.GOARCH,
	}
	if mod := buildinfo.ModuleVersion(); mod != "" {
		info["moduleVersion"] = mod
	}

	if jsonOutput {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "otapublish %s\n", info["version"])
	if extended {
		fmt.Fprintf(out, "Go Version: %s\n", info["goVersion"])
		fmt.Fprintf(out, "Platform: %s/%s\n", info["platform"], info["arch"])
		if mod, ok := info["moduleVersion"]; ok {
			fmt.Fprintf(out, "Module Version: %s\n", mod)
		}
	}
	return nil
}
