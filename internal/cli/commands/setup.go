package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlgate/internal/cli/config"
	"github.com/leapstack-labs/sqlgate/internal/cli/output"
	intconfig "github.com/leapstack-labs/sqlgate/internal/config"
	"github.com/leapstack-labs/sqlgate/internal/gateway"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Gateway  *gateway.Gateway
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open gateway.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutGateway(cmd)
	if err != nil {
		return nil, nil, err
	}

	gw, err := gateway.Open(cmd.Context(), cmdCtx.Cfg.GatewayOptions(), cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Gateway = gw

	cleanup := func() {
		if err := gw.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close gateway", slog.String("error", err.Error()))
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutGateway creates a CommandContext without opening an engine.
// Useful for commands that don't need database access.
func NewCommandContextWithoutGateway(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	mode, _ := cmd.Flags().GetString("output")
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode)),
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading it
// from the working directory when the command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	cfg, _, err := intconfig.Load("", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
