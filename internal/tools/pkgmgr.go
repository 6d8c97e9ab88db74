package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

type variant int

const (
	variantInstall variant = iota
	variantUpgrade
	variantUninstall
)

func (v variant) String() string {
	switch v {
	case variantUpgrade:
		return "upgrade"
	case variantUninstall:
		return "uninstall"
	default:
		return "install"
	}
}

// managerBinaries lists the executable names looked up for each package manager.
var managerBinaries = map[string][]string{
	catalog.Winget: {"winget"},
	catalog.Choco:  {"choco"},
	catalog.Pip:    {"pip", "pip3"},
	catalog.Npm:    {"npm"},
	catalog.Yarn:   {"yarn"},
}

// ManagerInfo describes the availability of one package manager.
type ManagerInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
	Hint      string `json:"hint,omitempty"`
}

// Managers checks every supported package manager in preference order.
func (e *Engine) Managers() []ManagerInfo {
	order := e.Policy.PackageManagers
	if len(order) == 0 {
		order = catalog.DefaultPackageManagers
	}
	infos := make([]ManagerInfo, 0, len(order))
	for _, pm := range order {
		path, ok := e.managerPath(pm)
		info := ManagerInfo{Name: pm, Path: path, Available: ok}
		if !ok {
			info.Hint = managerHint(pm)
		}
		infos = append(infos, info)
	}
	return infos
}

func (e *Engine) managerPath(pm string) (string, bool) {
	for _, bin := range managerBinaries[strings.ToLower(pm)] {
		if path, err := e.lookPath(bin); err == nil {
			return path, true
		}
	}
	return "", false
}

// managerArgs builds the argument list for a package manager operation.
func managerArgs(pm, pkg string, v variant, opts Options) []string {
	switch pm {
	case catalog.Winget:
		agreements := []string{"-e", "--accept-package-agreements", "--accept-source-agreements"}
		var args []string
		switch v {
		case variantUninstall:
			args = []string{"uninstall", "--id", pkg, "-e"}
		case variantUpgrade:
			args = append([]string{"upgrade", "--id", pkg}, agreements...)
		default:
			args = append([]string{"install", "--id", pkg}, agreements...)
			if opts.Version != "" {
				args = append(args, "--version", opts.Version)
			}
			if opts.Force {
				args = append(args, "--force")
			}
		}
		if opts.Silent {
			args = append(args, "--silent")
		}
		return args
	case catalog.Choco:
		switch v {
		case variantUninstall:
			return []string{"uninstall", pkg, "-y"}
		case variantUpgrade:
			return []string{"upgrade", pkg, "-y"}
		}
		args := []string{"install", pkg, "-y"}
		if opts.Version != "" {
			args = append(args, "--version", opts.Version)
		}
		if opts.Force {
			args = append(args, "--force")
		}
		return args
	case catalog.Pip:
		switch v {
		case variantUninstall:
			return []string{"uninstall", "-y", pkg}
		case variantUpgrade:
			return []string{"install", "--upgrade", pkg}
		}
		spec := pkg
		if opts.Version != "" {
			spec = pkg + "==" + opts.Version
		}
		args := []string{"install", spec}
		if opts.Force {
			args = append(args, "--force-reinstall")
		}
		return args
	case catalog.Npm:
		switch v {
		case variantUninstall:
			return []string{"uninstall", "-g", pkg}
		case variantUpgrade:
			return []string{"install", "-g", pkg + "@latest"}
		}
		spec := pkg
		if opts.Version != "" {
			spec = pkg + "@" + opts.Version
		}
		args := []string{"install", "-g", spec}
		if opts.Force {
			args = append(args, "--force")
		}
		return args
	case catalog.Yarn:
		switch v {
		case variantUninstall:
			return []string{"global", "remove", pkg}
		case variantUpgrade:
			return []string{"global", "upgrade", pkg}
		}
		spec := pkg
		if opts.Version != "" {
			spec = pkg + "@" + opts.Version
		}
		return []string{"global", "add", spec}
	}
	return nil
}

type candidate struct {
	label string
	cmd   runner.Command
}

// candidates assembles the ordered commands to try for an install, upgrade
// or uninstall of desc.
func (e *Engine) candidates(desc catalog.Descriptor, opts Options, v variant) ([]candidate, error) {
	vars := e.vars(desc, opts)
	var out []candidate

	if desc.Method == catalog.MethodScript && v != variantUninstall && strings.TrimSpace(desc.Script) != "" {
		script := vars["script"]
		if _, err := os.Stat(script); err != nil {
			return nil, fmt.Errorf("%w: script %s not found", ErrMissingDependency, script)
		}
		out = append(out, candidate{label: "script " + filepath.Base(script), cmd: scriptCommand(script)})
	}

	var unavailable []string
	if desc.Method == catalog.MethodPackageManager || v == variantUninstall {
		for _, pm := range desc.ManagerOrder(e.Policy.PackageManagers) {
			bin, ok := e.managerPath(pm)
			if !ok {
				unavailable = append(unavailable, pm)
				continue
			}
			out = append(out, candidate{
				label: pm,
				cmd:   runner.Command{Path: bin, Args: managerArgs(pm, desc.Packages[pm], v, opts)},
			})
		}
	}

	for _, line := range explicitCommands(desc, v) {
		line = runner.Expand(line, vars)
		out = append(out, candidate{label: line, cmd: e.shell(line)})
	}

	if len(out) == 0 {
		if len(unavailable) > 0 {
			return nil, fmt.Errorf("%w: no %s command available; package managers not found: %s (%s)",
				ErrNoCandidates, v, joinNames(unavailable), managerHint(unavailable[0]))
		}
		return nil, fmt.Errorf("%w: no %s command configured", ErrNoCandidates, v)
	}
	return out, nil
}

func explicitCommands(desc catalog.Descriptor, v variant) []string {
	var lines []string
	switch v {
	case variantUninstall:
		lines = desc.UninstallCommands
	case variantUpgrade:
		lines = desc.UpgradeCommands
		if len(lines) == 0 {
			lines = desc.InstallCommands
		}
	default:
		lines = desc.InstallCommands
	}
	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func scriptCommand(path string) runner.Command {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ps1":
		return runner.Command{Path: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-File", path}}
	case ".cmd", ".bat":
		return runner.Command{Path: "cmd", Args: []string{"/c", path}}
	case ".sh":
		return runner.Command{Path: "sh", Args: []string{path}}
	}
	if runtime.GOOS == "windows" {
		return runner.Command{Path: "cmd", Args: []string{"/c", path}}
	}
	return runner.Command{Path: path}
}

// runCandidates tries each candidate in order; the first exit status 0 wins.
func (e *Engine) runCandidates(ctx context.Context, cands []candidate) (string, error) {
	var lastErr error
	for _, c := range cands {
		res, err := e.exec(ctx, c.cmd, e.commandTimeout())
		if err == nil {
			return c.label, nil
		}
		lastErr = fmt.Errorf("%s: %w", c.label, err)
		if out := strings.TrimSpace(res.Output()); out != "" {
			lastErr = fmt.Errorf("%w: %s", lastErr, truncate(lastLine(out), 300))
		}
		if ctx.Err() != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
