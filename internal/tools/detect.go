package tools

import (
	"context"
	"fmt"
	"strings"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

// Detect reports whether desc is installed. It never fails: absence and command
// errors are recorded on the returned Status.
func (e *Engine) Detect(ctx context.Context, desc catalog.Descriptor) Status {
	minimum, notes := resolveMinimumVersion(ctx, desc)
	status := Status{Tool: desc.Key(), Minimum: minimum, Notes: notes}

	if len(desc.Requires) > 0 {
		status.Dependencies = make(map[string]bool, len(desc.Requires))
		for _, dep := range desc.Requires {
			_, err := e.lookPath(dep)
			status.Dependencies[dep] = err == nil
		}
	}

	path, err := e.locate(desc)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	if detectCmd := strings.TrimSpace(desc.DetectCommand); detectCmd != "" {
		line := runner.Expand(detectCmd, map[string]string{"exe": quoteArg(path), "name": desc.Key()})
		if _, err := e.exec(ctx, e.shell(line), e.versionTimeout()); err != nil {
			status.Error = fmt.Sprintf("detect command failed: %v", err)
			return status
		}
	}

	status.Installed = true
	status.Path = path

	line, err := e.readVersion(ctx, desc, path)
	if err != nil {
		status.Notes = append(status.Notes, fmt.Sprintf("version lookup failed: %v", err))
	} else {
		status.VersionLine = line
		status.Version = extractVersion(line)
	}
	status.MeetsMinimum = meetsMinimum(status.Version, minimum)
	return status
}

// locate returns the first executable found on the search path.
func (e *Engine) locate(desc catalog.Descriptor) (string, error) {
	for _, exe := range desc.Executables {
		if strings.TrimSpace(exe) == "" {
			continue
		}
		if path, err := e.lookPath(exe); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH", joinNames(desc.Executables))
}

// StatusOf renders Detect as an informational result.
func (e *Engine) StatusOf(ctx context.Context, desc catalog.Descriptor) Result {
	status := e.Detect(ctx, desc)
	return Result{Outcome: Success{Message: status.Summary()}, Status: &status}
}

// Check succeeds when the tool is installed at or above its minimum version.
func (e *Engine) Check(ctx context.Context, desc catalog.Descriptor) Result {
	status := e.Detect(ctx, desc)
	res := Result{Status: &status}
	switch {
	case !status.Installed:
		res.Outcome = failure(KindNotInstalled, "%s", status.Summary())
	case !status.MeetsMinimum:
		res.Outcome = failure(KindVerificationFailed, "version %s below minimum %s", displayVersion(status), status.Minimum)
	default:
		res.Outcome = Success{Message: status.Summary()}
	}
	return res
}

func displayVersion(s Status) string {
	if s.Version == "" {
		return "unknown"
	}
	return s.Version
}
