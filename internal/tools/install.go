package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

// Install brings desc to the installed state. An already satisfied tool is
// left alone unless opts.Force is set.
func (e *Engine) Install(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	before := e.Detect(ctx, desc)
	if before.Installed && !opts.Force && !before.belowKnownMinimum() && (opts.Version == "" || opts.Version == before.Version) {
		return Result{Outcome: Success{Message: "already " + before.Summary()}, Status: &before}
	}
	if missing := before.MissingDependencies(); len(missing) > 0 {
		return Result{
			Outcome: failure(KindMissingDependency, "requires %s", joinNames(missing)),
			Status:  &before,
		}
	}

	unlock, err := e.acquireInstallLock(ctx, desc.Key())
	if err != nil {
		return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
	}
	defer unlock()

	var notes []string
	if desc.Method == catalog.MethodDownload {
		dir, err := e.downloadInstall(ctx, desc, opts)
		if err != nil {
			return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
		}
		notes = append(notes, "unpacked into "+dir)
	} else {
		cands, err := e.candidates(desc, opts, variantInstall)
		if err != nil {
			return Result{Outcome: failure(KindMissingDependency, "%v", err), Status: &before}
		}
		winner, err := e.runCandidates(ctx, cands)
		if err != nil {
			return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
		}
		notes = append(notes, "installed via "+winner)
	}

	notes = append(notes, e.installExtras(ctx, desc, opts)...)

	if opts.AddToPath || desc.Method == catalog.MethodDownload {
		fix := e.RepairPath(ctx, desc, opts)
		notes = append(notes, "PATH: "+fix.Message())
	}

	after := e.Detect(ctx, desc)
	res := Result{Status: &after, Notes: notes}
	if !after.Installed {
		res.Outcome = failure(KindVerificationFailed, "install finished but %s", after.Summary())
		return res
	}
	if !after.MeetsMinimum {
		res.Outcome = failure(KindVerificationFailed, "installed %s but minimum is %s", displayVersion(after), after.Minimum)
		return res
	}
	res.Outcome = Success{Message: fmt.Sprintf("installed %s", displayVersion(after))}
	return res
}

// installExtras runs the requested add-ons best-effort and reports each one.
func (e *Engine) installExtras(ctx context.Context, desc catalog.Descriptor, opts Options) []string {
	if len(opts.Extras) == 0 {
		return nil
	}
	vars := e.vars(desc, opts)
	var notes []string
	for _, name := range opts.Extras {
		extra, ok := lookupExtra(desc, name)
		if !ok {
			notes = append(notes, fmt.Sprintf("extra %s: not defined for %s", name, desc.Key()))
			continue
		}
		var errs []error
		for _, line := range extra.Commands {
			line = runner.Expand(line, vars)
			if _, err := e.exec(ctx, e.shell(line), e.commandTimeout()); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			notes = append(notes, fmt.Sprintf("extra %s: %d of %d commands failed", name, len(errs), len(extra.Commands)))
			continue
		}
		notes = append(notes, fmt.Sprintf("extra %s: installed", name))
	}
	return notes
}

func lookupExtra(desc catalog.Descriptor, name string) (catalog.Extra, bool) {
	for key, extra := range desc.Extras {
		if strings.EqualFold(key, name) {
			return extra, true
		}
	}
	return catalog.Extra{}, false
}

// Reinstall forcibly removes desc and installs it again.
func (e *Engine) Reinstall(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	removeOpts := opts
	removeOpts.Force = true
	removed := e.Uninstall(ctx, desc, removeOpts)
	if !removed.Succeeded() {
		removed.Notes = append(removed.Notes, "reinstall stopped before install")
		return removed
	}

	opts.Force = true
	res := e.Install(ctx, desc, opts)
	res.Notes = append([]string{"uninstall: " + removed.Message()}, res.Notes...)
	return res
}
