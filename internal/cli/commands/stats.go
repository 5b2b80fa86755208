package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cliopt"
	"github.com/codesearch/codesearch/internal/cliutil"
)

func NewStatsCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show repository and file counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.engine.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), st)
			}
			return cliutil.PrintTable(cmd.OutOrStdout(), []string{"KNOWN REPOS", "INDEXED REPOS", "UNIQUE FILES"}, [][]string{{
				strconv.FormatInt(st.TotalKnownRepositories, 10),
				strconv.FormatInt(st.TotalIndexedRepositories, 10),
				strconv.FormatInt(st.TotalIndexedUniqueFiles, 10),
			}})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
