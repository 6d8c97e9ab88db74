package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"devkit/internal/tools"
)

var (
	configFile   string
	catalogFiles []string
	dataDir      string
	outputJSON   bool
	jobs         int
	cmdTimeout   time.Duration
	resultsFile  string
	noProgress   bool
	quiet        bool
)

// shutdownSignals cancel the running batch.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Execute runs the root cobra command and returns the process exit code.
func Execute() int {
	ctx, stop := signalContext()
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals...)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devkit",
		Short:         "Install, test and maintain developer tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(cmd.PersistentFlags())

	for _, op := range tools.Operations() {
		cmd.AddCommand(newActionCmd(op))
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configFile, "config", "", "Path to the settings file (default <data>/config.yaml)")
	fs.StringArrayVar(&catalogFiles, "catalog", nil, "Additional catalog file (YAML or TOML); repeatable")
	fs.StringVar(&dataDir, "data-dir", "", "Override the data directory (default $DEVKIT_HOME or the platform location)")
	fs.BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	fs.IntVarP(&jobs, "jobs", "j", 0, "Number of tools processed concurrently (default from settings)")
	fs.DurationVar(&cmdTimeout, "timeout", 0, "Timeout for each external command (default from settings)")
	fs.StringVar(&resultsFile, "results-file", "", "Write the batch results as JSON to this file")
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress table")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print warnings and errors")
}
