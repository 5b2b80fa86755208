package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/internal/cliopt"
	"github.com/codesearch/codesearch/internal/ingest"
)

func NewIndexCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var (
		repo    codesearch.Repository
		ref     string
		exclude []string
		maxSize int64
	)
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a directory as the default branch of a repository",
		Long: `Index walks <dir>, stores every text file under the repository's default
branch and removes files a previous run indexed that are gone now. Binary,
oversized and excluded files are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo.ProjectID <= 0 {
				return fmt.Errorf("--project must be a positive id")
			}
			if repo.DisplayName == "" {
				repo.DisplayName = repo.FullName
			}
			e, err := openEnv(cmd.Context(), cmd, g, true)
			if err != nil {
				return err
			}
			defer e.Close()

			opts := ingest.Options{
				Repository:   repo,
				Ref:          ref,
				Exclude:      append(append([]string(nil), e.cfg.Index.Exclude...), exclude...),
				MaxFileBytes: e.cfg.Index.MaxFileBytes,
				Logger:       e.logger,
			}
			if cmd.Flags().Changed("max-file-bytes") {
				opts.MaxFileBytes = maxSize
			}
			res, err := ingest.Directory(cmd.Context(), e.engine, args[0], opts)
			if err != nil {
				return err
			}
			cmd.Printf("indexed %d files, skipped %d, removed %d\n", res.Indexed, res.Skipped, res.Removed)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&repo.ProjectID, "project", 0, "project id")
	f.StringVar(&repo.DisplayName, "name", "", "display name (defaults to --full-name)")
	f.StringVar(&repo.FullName, "full-name", "", "full name, matched by namespace:")
	f.StringVar(&repo.ProjectURL, "url", "", "project web URL")
	f.StringVar(&repo.AvatarURL, "avatar-url", "", "project avatar URL")
	f.StringVar(&repo.DefaultBranch, "branch", "main", "default branch")
	f.StringVar(&ref, "ref", "", "indexed ref to record (default \"local\")")
	f.StringArrayVar(&exclude, "exclude", nil, "extra doublestar exclude pattern (repeatable)")
	f.Int64Var(&maxSize, "max-file-bytes", 0, "skip files larger than this")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("full-name")
	return cmd
}
