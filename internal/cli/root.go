package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Exit statuses of the verify command.
const (
	ExitOK    = 0
	ExitFail  = 1
	ExitFault = 2
)

// ExitError carries the process exit status of a command. Err is nil when
// the status alone is the outcome, e.g. a run that recorded errors.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFail
}

var rootCmd = &cobra.Command{
	Use:   "sonata-verify <unix timestamp>",
	Short: "Check the SonATA test signal results of the latest activity",
	Long: `sonata-verify checks that the most recent SonATA observing activity started
after the given unix timestamp completed, that every expected dx node took
part in it, and that every node confirmed the calibration test signal.

Exit status is 0 when no errors were found (warnings are allowed), 1 when
the timestamp is missing or at least one error was found, and 2 when the
configuration or the observation database could not be used.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args:          cobra.ArbitraryArgs,
	RunE:          runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		printUsage(out)
		return &ExitError{Code: ExitFail}
	}

	ts, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		printUsage(out)
		return &ExitError{Code: ExitFail, Err: fmt.Errorf("invalid unix timestamp %q", args[0])}
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	rep, err := app.Verify(cmd.Context(), time.Unix(ts, 0), out)
	if err != nil {
		return &ExitError{Code: ExitFault, Err: err}
	}
	if rep.ExitStatus != ExitOK {
		return &ExitError{Code: rep.ExitStatus}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "check for SonATA test results")
	fmt.Fprintln(w, "usage: sonata-verify <unix timestamp before test activity results>")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sonata-verify %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	addConfigFlags(rootCmd)
	registerCompletions(rootCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt cancels the context of the
// running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
