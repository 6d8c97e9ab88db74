package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"devkit/internal/catalog"
	"devkit/internal/orchestrator"
	"devkit/internal/tools"
	"devkit/internal/tui"
)

var (
	actionVersion   string
	actionSilent    bool
	actionForce     bool
	actionDetailed  bool
	actionAddToPath bool
	actionExtras    []string
)

var actionShort = map[tools.Operation]string{
	tools.OpInstall:   "Install tools that are not yet present",
	tools.OpTest:      "Run each tool's functionality checks",
	tools.OpReinstall: "Uninstall and install tools again",
	tools.OpUpdate:    "Upgrade installed tools",
	tools.OpCheck:     "Verify installed versions meet their minimums",
	tools.OpFixPath:   "Add missing tool directories to PATH",
	tools.OpUninstall: "Remove tools and their PATH entries",
	tools.OpStatus:    "Report the detected state of tools",
}

// defaultsToAll reports whether op may run without explicit targets.
func defaultsToAll(op tools.Operation) bool {
	switch op {
	case tools.OpStatus, tools.OpCheck, tools.OpTest:
		return true
	}
	return false
}

func newActionCmd(op tools.Operation) *cobra.Command {
	use := string(op) + " <tool|category|all>..."
	if defaultsToAll(op) {
		use = string(op) + " [tool|category|all]..."
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: actionShort[op],
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, op, args)
		},
	}

	if op == tools.OpInstall || op == tools.OpReinstall {
		cmd.Flags().StringVar(&actionVersion, "version", "", "Install a specific version when the method supports it")
	}
	cmd.Flags().BoolVar(&actionSilent, "silent", false, "Suppress installer UI and prompts where supported")
	cmd.Flags().BoolVar(&actionForce, "force", false, "Act even if the tool looks satisfied or a blocking process runs")
	cmd.Flags().BoolVar(&actionDetailed, "detailed", false, "Include per-test and subprocess detail")
	cmd.Flags().BoolVar(&actionAddToPath, "add-to-path", false, "Repair PATH after installing")
	cmd.Flags().StringArrayVar(&actionExtras, "extra", nil, "Install an optional add-on defined by the tool; repeatable")
	return cmd
}

func actionOptions() tools.Options {
	return tools.Options{
		Force:     actionForce,
		Silent:    actionSilent,
		Detailed:  actionDetailed,
		AddToPath: actionAddToPath,
		Version:   actionVersion,
		Extras:    actionExtras,
	}
}

func runAction(cmd *cobra.Command, op tools.Operation, args []string) error {
	targets := args
	if len(targets) == 0 {
		if !defaultsToAll(op) {
			return fmt.Errorf("%s needs at least one tool or category (use %q for every tool)", op, catalog.AllTarget)
		}
		targets = []string{catalog.AllTarget}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := actionOptions()
	orch := s.orchestrator()
	ctx := tools.WithMinimums(cmd.Context(), s.cfg.ToolMinimums())
	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON)

	var batch *orchestrator.Batch
	switch mode {
	case tui.ModeTUI:
		resolution := orch.ResolveTargets(targets)
		model := tui.NewBatchModel(op, resolution.Targets)
		runCtx, cancel := context.WithCancel(ctx)
		err := tui.RunWithWork(out, model, cancel, func(send func(tea.Msg)) {
			orch.Reporter = tui.NewBatchReporter(send)
			batch = orch.Run(runCtx, op, targets, opts)
		})
		cancel()
		if err != nil {
			return err
		}
		// The table truncates messages; repeat failures in full.
		for _, res := range batch.Ordered() {
			if res.Outcome != nil && res.Outcome.State() == tools.StateFailure {
				s.console.Result(res)
			}
		}
	case tui.ModePlain:
		if opts.Detailed {
			s.engine.Output = s.console.Raw()
		}
		orch.Reporter = consoleReporter{console: s.console}
		batch = orch.Run(ctx, op, targets, opts)
	default:
		batch = orch.Run(ctx, op, targets, opts)
	}

	for _, w := range batch.Warnings {
		s.console.Warnf("%s", w)
	}

	if path := s.cfg.ResultsPath(); path != "" {
		abs, _ := filepath.Abs(path)
		if err := batch.WriteFile(abs); err != nil {
			return err
		}
		s.console.Infof("results written to %s", abs)
	}

	if mode == tui.ModeJSON {
		data, err := json.MarshalIndent(batch, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	}

	succeeded, failed, skipped := batch.Counts()
	if !batch.Succeeded() {
		if s.logPath != "" {
			s.console.Infof("log: %s", s.logPath)
		}
		return fmt.Errorf("%s: %d failed, %d succeeded, %d skipped", op, failed, succeeded, skipped)
	}
	s.console.Successf("%s: %d succeeded, %d skipped", op, succeeded, skipped)
	return nil
}

// consoleReporter prints levelled lines as targets finish.
type consoleReporter struct {
	console *tui.Console
}

func (r consoleReporter) Start(target string, op tools.Operation) {
	r.console.Infof("%s %s...", op, target)
}

func (r consoleReporter) Complete(res tools.Result) {
	r.console.Result(res)
}
