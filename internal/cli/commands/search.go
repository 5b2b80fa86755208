package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/internal/cliopt"
	"github.com/codesearch/codesearch/internal/cliutil"
)

func NewSearchCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var (
		userID int64
		format string
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search files the user can read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			of, err := cliutil.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			results, err := e.engine.Search(cmd.Context(), strings.Join(args, " "), userID)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), of, results)
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "id of the searching user")
	cmd.Flags().StringVar(&format, "format", "pretty", "format: pretty|paths|json")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printResults(w io.Writer, format cliutil.OutputFormat, results []codesearch.SearchResult) error {
	switch format {
	case cliutil.FormatJSON:
		return cliutil.PrintJSON(w, results)
	case cliutil.FormatPaths:
		for _, r := range results {
			fmt.Fprintf(w, "%s:%s\n", r.FullName, r.FilePath)
		}
		return nil
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s %s\n  %s\n", r.FullName, r.FilePath, r.FileURL)
		for _, c := range r.Chunks {
			lines := strings.Split(c.HTML, "\n")
			for i, line := range lines {
				fmt.Fprintf(w, "  %5d | %s\n", c.FirstLineNumber+i, line)
			}
			fmt.Fprintln(w, "  ------")
		}
	}
	return nil
}

func NewExplainCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "explain <query>...",
		Short: "Show tokens, parse tree and SQL for a query without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ex, err := e.engine.Explain(strings.Join(args, " "), userID)
			if err != nil {
				return err
			}
			return cliutil.PrintJSON(cmd.OutOrStdout(), ex)
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 1, "id of the searching user")
	return cmd
}
