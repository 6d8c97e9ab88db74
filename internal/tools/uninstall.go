package tools

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"devkit/internal/catalog"
)

// Uninstall removes desc and strips the PATH entries devkit added for it.
func (e *Engine) Uninstall(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	if blocked := e.checkBlocked(ctx, desc, opts); blocked != nil {
		return Result{Outcome: blocked}
	}

	before := e.Detect(ctx, desc)
	var recorded []string
	if e.History != nil {
		dirs, err := e.History.Dirs(desc.Key())
		if err != nil {
			e.logger().Warn("read path history", zap.String("tool", desc.Key()), zap.Error(err))
		}
		recorded = dirs
	}
	if !before.Installed && len(recorded) == 0 {
		return Result{Outcome: Skipped{Reason: "not installed"}, Status: &before}
	}

	unlock, err := e.acquireInstallLock(ctx, desc.Key())
	if err != nil {
		return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
	}
	defer unlock()

	var notes []string
	if before.Installed {
		if desc.Method == catalog.MethodDownload {
			dir := e.vars(desc, opts)["install_dir"]
			if err := os.RemoveAll(dir); err != nil {
				return Result{Outcome: failure(KindCommandFailed, "remove %s: %v", dir, err), Status: &before}
			}
			notes = append(notes, "removed "+dir)
		} else {
			cands, err := e.candidates(desc, opts, variantUninstall)
			if err != nil {
				return Result{Outcome: failure(KindMissingDependency, "%v", err), Status: &before}
			}
			winner, err := e.runCandidates(ctx, cands)
			if err != nil {
				return Result{Outcome: failure(KindCommandFailed, "%v", err), Status: &before}
			}
			notes = append(notes, "removed via "+winner)
		}
	}

	if len(recorded) > 0 {
		notes = append(notes, e.stripRecordedPaths(desc, recorded)...)
	}

	after := e.Detect(ctx, desc)
	res := Result{Status: &after, Notes: notes}
	switch {
	case after.Installed:
		res.Outcome = failure(KindVerificationFailed, "still detected at %s", after.Path)
	case before.Installed:
		res.Outcome = Success{Message: fmt.Sprintf("uninstalled %s", displayVersion(before))}
	default:
		res.Outcome = Success{Message: "removed leftover PATH entries"}
	}
	return res
}

// stripRecordedPaths removes PATH entries from the tool's history. Failures
// are reported as notes only.
func (e *Engine) stripRecordedPaths(desc catalog.Descriptor, dirs []string) []string {
	var notes []string
	if e.Paths != nil {
		removed, err := e.Paths.Remove(dirs...)
		if err != nil {
			e.logger().Warn("strip PATH entries", zap.String("tool", desc.Key()), zap.Error(err))
			notes = append(notes, fmt.Sprintf("PATH cleanup incomplete: %v", err))
		}
		if len(removed) > 0 {
			notes = append(notes, "removed from PATH: "+joinNames(removed))
		}
	}
	if err := e.History.Forget(desc.Key()); err != nil {
		notes = append(notes, fmt.Sprintf("path history not updated: %v", err))
	}
	return notes
}
