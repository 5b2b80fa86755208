package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/internal/cliopt"
	"github.com/codesearch/codesearch/internal/cliutil"
	"github.com/codesearch/codesearch/internal/config"
)

// env is what a command needs after global flags are resolved.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *codesearch.Engine
}

func (e *env) Close() error {
	return e.engine.Close()
}

// openEnv loads the config, builds the logger and opens the engine. Logs go
// to the command's stderr so stdout stays parseable.
func openEnv(ctx context.Context, cmd *cobra.Command, g *cliopt.GlobalOptions, create bool) (*env, error) {
	cfg, err := g.Config()
	if err != nil {
		return nil, err
	}
	logger, err := cliopt.Logger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	engine, err := cliutil.OpenEngine(ctx, cfg, logger, create)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, engine: engine}, nil
}

func NewInitCmd(g *cliopt.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the index tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer e.Close()
			cmd.Printf("initialized %s index\n", e.engine.Backend())
			return nil
		},
	}
}
