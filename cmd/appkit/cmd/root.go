package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/GoCodeAlone/appkit"
	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// OsExit is replaced in tests.
var OsExit = os.Exit

// NewRootCommand creates the root command for the appkit binary
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appkit",
		Short: "appkit - run an application through its lifecycle",
		Long: `appkit drives a demo application through create, init_app, configure,
run and shutdown with the bundled extensions registered.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewRunCommand())

	return cmd
}

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("appkit v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// ExitCode maps a command error to a process exit status. A blueprint
// without a run phase exits with 2.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, appkit.ErrNotImplemented):
		return 2
	default:
		return 1
	}
}
