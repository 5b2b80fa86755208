package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cli/commands"
	"github.com/codesearch/codesearch/internal/cliopt"
)

// usageError marks bad flags or arguments; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// NewRootCmd builds the command tree. Output goes to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &cliopt.GlobalOptions{}
	root := &cobra.Command{
		Use:           "codesearch",
		Short:         "Permission-aware code search over indexed repositories",
		Long:          rootLong,
		Example:       rootExamples,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	cliopt.BindGlobalFlags(root.PersistentFlags(), g)

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		commands.NewInitCmd(g),
		commands.NewIndexCmd(g),
		commands.NewSearchCmd(g),
		commands.NewExplainCmd(g),
		commands.NewGrantCmd(g),
		commands.NewSetAccessCmd(g),
		commands.NewDeleteCmd(g),
		commands.NewCleanupCmd(g),
		commands.NewStatsCmd(g),
		commands.NewServeCmd(g),
	)
	for _, c := range root.Commands() {
		if c.Args == nil {
			continue
		}
		args := c.Args
		c.Args = func(cmd *cobra.Command, a []string) error {
			if err := args(cmd, a); err != nil {
				return usageError{err}
			}
			return nil
		}
	}
	return root
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, argv, os.Stdout, os.Stderr)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(argv)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "error:", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}
