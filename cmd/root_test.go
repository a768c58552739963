/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/otapublish/pkg/api"
	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/exitcode"
	"github.com/fulmenhq/otapublish/pkg/publish"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeLogger(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "debug", "")
	cmd.Flags().Bool("json", true, "")
	cmd.Flags().Bool("no-color", true, "")

	// This should not panic
	initializeLogger(cmd)
}

func TestInitializeLogger_InvalidLevel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "invalid", "")
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("no-color", false, "")

	// Should default to info level
	initializeLogger(cmd)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := newRootCommand()
	registerSubcommands(cmd)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"publish", "inspect", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.NotEmpty(t, rootCmd.Version)
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"canceled", fmt.Errorf("upload: %w", context.Canceled), exitcode.Interrupted},
		{"config", &configError{err: errors.New("bad")}, exitcode.ConfigError},
		{"validation", &bundle.ValidationError{Message: "bad metadata"}, exitcode.ValidationError},
		{"not found", &bundle.NotFoundError{Message: "missing"}, exitcode.NotFoundError},
		{"protocol", &publish.ProtocolError{Message: "short"}, exitcode.ProtocolError},
		{"timeout", &publish.ConfirmationTimeoutError{}, exitcode.ConfirmationTimeout},
		{"transfer", &publish.TransferError{Err: errors.New("reset")}, exitcode.TransferError},
		{"network", fmt.Errorf("check: %w", &api.HTTPError{StatusCode: 502}), exitcode.NetworkError},
		{"other", errors.New("boom"), exitcode.GeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "/images/icon.png", truncatePath("/images/icon.png", 40))

	got := truncatePath("/very/long/directory/structure/with/many/levels/icon.png", 20)
	assert.Equal(t, "...y/levels/icon.png", got)

	wide := truncatePath("/画像/画像/画像/画像/画像/アイコン.png", 16)
	assert.Contains(t, wide, ".png")
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := newPublishCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--concurrency", "4", "--confirm-timeout", "0", "--store", "s3"}))

	cfg := config.Default()
	applyFlagOverrides(cmd.Flags(), &cfg)

	assert.Equal(t, 4, cfg.Upload.Concurrency)
	assert.Zero(t, cfg.Confirm.Timeout)
	assert.Equal(t, config.BackendS3, cfg.Store.Backend)
	assert.Equal(t, config.Default().API.URL, cfg.API.URL, "unset flags leave config alone")
	assert.Equal(t, config.Default().Hash.Concurrency, cfg.Hash.Concurrency)
}
