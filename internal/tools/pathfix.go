package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devkit/internal/catalog"
	"devkit/internal/pathenv"
)

// RepairPath appends the descriptor's existing hint directories to the
// search path. Directories already present are left alone, so repeated runs
// never duplicate entries.
func (e *Engine) RepairPath(ctx context.Context, desc catalog.Descriptor, opts Options) Result {
	vars := e.vars(desc, opts)
	hints := append([]string(nil), desc.PathHints...)
	if desc.Method == catalog.MethodDownload && vars["install_dir"] != "" {
		hints = append([]string{vars["install_dir"]}, hints...)
	}
	if len(hints) == 0 {
		return Result{Outcome: Skipped{Reason: "no path hints defined"}}
	}
	if e.Paths == nil {
		return Result{Outcome: failure(KindPathError, "no PATH store configured")}
	}

	dirs := pathenv.ResolveHints(hints, vars)
	if len(dirs) == 0 {
		return Result{Outcome: Skipped{Reason: "none of the path hint directories exist"}}
	}

	added, err := e.Paths.Append(dirs...)
	var notes []string
	if len(added) > 0 && e.History != nil {
		if herr := e.History.Record(desc.Key(), added...); herr != nil {
			e.logger().Warn("record path history", zap.String("tool", desc.Key()), zap.Error(herr))
			notes = append(notes, fmt.Sprintf("path history not updated: %v", herr))
		}
	}
	if err != nil {
		return Result{Outcome: failure(KindPathError, "%v", err), Notes: notes}
	}
	if len(added) == 0 {
		return Result{Outcome: Success{Message: "PATH already contains " + joinNames(dirs)}, Notes: notes}
	}
	return Result{Outcome: Success{Message: "added to PATH: " + joinNames(added)}, Notes: notes}
}
