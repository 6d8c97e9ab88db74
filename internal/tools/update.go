package tools

import (
	"context"
	"fmt"

	"devkit/internal/catalog"
)

// Update upgrades an installed tool in place and reports the version change.
func (e *Engine) Update(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	before := e.Detect(ctx, desc)
	if !before.Installed {
		return Result{Outcome: failure(KindNotInstalled, "%s; install it first", before.Summary()), Status: &before}
	}
	if blocked := e.checkBlocked(ctx, desc, opts); blocked != nil {
		return Result{Outcome: blocked, Status: &before}
	}

	unlock, err := e.acquireInstallLock(ctx, desc.Key())
	if err != nil {
		return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
	}
	defer unlock()

	var notes []string
	if desc.Method == catalog.MethodDownload {
		refresh := opts
		refresh.Force = true
		if _, err := e.downloadInstall(ctx, desc, refresh); err != nil {
			return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
		}
		notes = append(notes, "downloaded latest artefact")
	} else {
		cands, err := e.candidates(desc, opts, variantUpgrade)
		if err != nil {
			return Result{Outcome: failure(KindMissingDependency, "%v", err), Status: &before}
		}
		winner, err := e.runCandidates(ctx, cands)
		if err != nil {
			return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
		}
		notes = append(notes, "upgraded via "+winner)
	}

	after := e.Detect(ctx, desc)
	res := Result{Status: &after, Notes: notes}
	switch {
	case !after.Installed:
		res.Outcome = failure(KindVerificationFailed, "update finished but %s", after.Summary())
	case before.Version == after.Version:
		res.Outcome = Success{Message: fmt.Sprintf("already up to date (%s)", displayVersion(after))}
	default:
		res.Outcome = Success{Message: fmt.Sprintf("updated %s → %s", displayVersion(before), displayVersion(after))}
	}
	return res
}
