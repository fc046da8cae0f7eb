// Package cmd provides the catalogctl commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debatearchive/catalog/internal/config"
	"github.com/debatearchive/catalog/internal/document/service"
	"github.com/debatearchive/catalog/internal/index"
	"github.com/debatearchive/catalog/internal/sequence"
	"github.com/debatearchive/catalog/pkg/logger"
)

// loadConfig is replaced in tests.
var loadConfig = config.LoadConfig

// NewRootCmd creates the root command for catalogctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Maintenance tool for the document catalog",
		Long: `catalogctl issues editor tokens and moves catalog snapshots in and
out of the configured index. It reads the same environment as the server.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openService opens the configured index for a one-shot command.
func openService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	logger.Init(cfg.Logging.Level)
	idx, closeIndex, err := index.Open(cfg.Index)
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(idx, sequence.NewIndexAllocator(idx))
	if err := svc.Bootstrap(ctx); err != nil {
		closeIndex()
		return nil, nil, fmt.Errorf("index %s: %w", cfg.Index.Name, err)
	}
	return svc, closeIndex, nil
}
