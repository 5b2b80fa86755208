package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cliopt"
)

func NewCleanupCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var (
		grace    time.Duration
		optimize bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove file content no repository references",
		Long: `Cleanup deletes stored files that no repository path points to and that
were created before now minus --grace, so content written by an indexing
run still in progress is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("grace") {
				grace = e.cfg.Maintenance.OrphanGrace.Duration
			}
			n, err := e.engine.CleanupOrphanedFiles(cmd.Context(), grace)
			if err != nil {
				return err
			}
			cmd.Printf("removed %d orphaned files\n", n)
			if optimize {
				if err := e.engine.Optimize(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("optimized")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 24*time.Hour, "keep orphans younger than this")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "also run the backend's optimize step")
	return cmd
}
