package commands

import (
	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cliopt"
)

func NewGrantCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var projectID, userID int64
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Let a user read a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.engine.GrantAccess(cmd.Context(), projectID, userID); err != nil {
				return err
			}
			cmd.Printf("user %d can read project %d\n", userID, projectID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func NewSetAccessCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var (
		userID   int64
		projects []int64
	)
	cmd := &cobra.Command{
		Use:   "set-access",
		Short: "Replace the set of repositories a user can read",
		Long:  `Set-access replaces every grant of the user. Passing no --project revokes all access.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.engine.SetUserRepositories(cmd.Context(), userID, projects); err != nil {
				return err
			}
			cmd.Printf("user %d can read %d projects\n", userID, len(projects))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id")
	cmd.Flags().Int64SliceVar(&projects, "project", nil, "project id (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
