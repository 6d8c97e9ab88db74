// Package catalog holds the declarative descriptors for every managed tool and
// the category aliases that group them.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Method selects how a descriptor's install commands are produced.
type Method string

const (
	MethodPackageManager Method = "package-manager"
	MethodScript         Method = "script"
	MethodDownload       Method = "direct-download"
)

// Package manager identifiers accepted in descriptor package maps.
const (
	Winget = "winget"
	Choco  = "choco"
	Pip    = "pip"
	Npm    = "npm"
	Yarn   = "yarn"
)

// DefaultPackageManagers is the preference order used when neither the
// descriptor nor the settings override it.
var DefaultPackageManagers = []string{Winget, Choco, Pip, Npm, Yarn}

// DefaultVersionCommand runs the resolved executable with --version.
const DefaultVersionCommand = "{exe} --version"

// ErrInvalidDescriptor wraps every descriptor validation failure.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// TestCommand is a functionality check: the command must exit 0 and its
// output must contain Expect (case-insensitive). An empty Expect checks the
// exit status only.
type TestCommand struct {
	Name    string `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Command string `yaml:"command" toml:"command" json:"command"`
	Expect  string `yaml:"expect,omitempty" toml:"expect,omitempty" json:"expect,omitempty"`
}

// Label returns the test name, falling back to the command line.
func (t TestCommand) Label() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return t.Command
}

// Download describes a vendor artefact fetched directly.
type Download struct {
	URL        string `yaml:"url" toml:"url" json:"url"`
	Checksum   string `yaml:"checksum,omitempty" toml:"checksum,omitempty" json:"checksum,omitempty"`
	Archive    string `yaml:"archive,omitempty" toml:"archive,omitempty" json:"archive,omitempty"`
	InstallDir string `yaml:"install_dir" toml:"install_dir" json:"install_dir"`
}

// Extra is an optional add-on installed after the tool itself, such as
// editor extensions or GPU builds of a framework.
type Extra struct {
	Description string   `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Commands    []string `yaml:"commands" toml:"commands" json:"commands"`
}

// Descriptor is the static configuration for one installable tool.
type Descriptor struct {
	Name              string            `yaml:"name" toml:"name" json:"name"`
	DisplayName       string            `yaml:"display_name,omitempty" toml:"display_name,omitempty" json:"display_name,omitempty"`
	Description       string            `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Categories        []string          `yaml:"categories,omitempty" toml:"categories,omitempty" json:"categories,omitempty"`
	Executables       []string          `yaml:"executables" toml:"executables" json:"executables"`
	VersionCommand    string            `yaml:"version_command,omitempty" toml:"version_command,omitempty" json:"version_command,omitempty"`
	DetectCommand     string            `yaml:"detect_command,omitempty" toml:"detect_command,omitempty" json:"detect_command,omitempty"`
	Method            Method            `yaml:"method" toml:"method" json:"method"`
	Packages          map[string]string `yaml:"packages,omitempty" toml:"packages,omitempty" json:"packages,omitempty"`
	PackageManagers   []string          `yaml:"package_managers,omitempty" toml:"package_managers,omitempty" json:"package_managers,omitempty"`
	InstallCommands   []string          `yaml:"install_commands,omitempty" toml:"install_commands,omitempty" json:"install_commands,omitempty"`
	UpgradeCommands   []string          `yaml:"upgrade_commands,omitempty" toml:"upgrade_commands,omitempty" json:"upgrade_commands,omitempty"`
	UninstallCommands []string          `yaml:"uninstall_commands,omitempty" toml:"uninstall_commands,omitempty" json:"uninstall_commands,omitempty"`
	Script            string            `yaml:"script,omitempty" toml:"script,omitempty" json:"script,omitempty"`
	Download          *Download         `yaml:"download,omitempty" toml:"download,omitempty" json:"download,omitempty"`
	Tests             []TestCommand     `yaml:"tests,omitempty" toml:"tests,omitempty" json:"tests,omitempty"`
	PathHints         []string          `yaml:"path_hints,omitempty" toml:"path_hints,omitempty" json:"path_hints,omitempty"`
	MinimumVersion    string            `yaml:"minimum_version,omitempty" toml:"minimum_version,omitempty" json:"minimum_version,omitempty"`
	Requires          []string          `yaml:"requires,omitempty" toml:"requires,omitempty" json:"requires,omitempty"`
	BlockingProcesses []string          `yaml:"blocking_processes,omitempty" toml:"blocking_processes,omitempty" json:"blocking_processes,omitempty"`
	Extras            map[string]Extra  `yaml:"extras,omitempty" toml:"extras,omitempty" json:"extras,omitempty"`
}

// Key is the lookup key for the descriptor.
func (d Descriptor) Key() string {
	return normalizeName(d.Name)
}

// Label returns the display name, falling back to the key.
func (d Descriptor) Label() string {
	if strings.TrimSpace(d.DisplayName) != "" {
		return d.DisplayName
	}
	return d.Name
}

// VersionTemplate returns the version command, applying the default.
func (d Descriptor) VersionTemplate() string {
	if strings.TrimSpace(d.VersionCommand) == "" {
		return DefaultVersionCommand
	}
	return d.VersionCommand
}

// ManagerOrder returns the package managers to try, in order, restricted to
// those the descriptor has a package id for.
func (d Descriptor) ManagerOrder(preferred []string) []string {
	order := d.PackageManagers
	if len(order) == 0 {
		order = preferred
	}
	if len(order) == 0 {
		order = DefaultPackageManagers
	}
	seen := make(map[string]struct{}, len(order))
	var out []string
	for _, pm := range order {
		pm = strings.ToLower(strings.TrimSpace(pm))
		if _, dup := seen[pm]; dup {
			continue
		}
		seen[pm] = struct{}{}
		if strings.TrimSpace(d.Packages[pm]) != "" {
			out = append(out, pm)
		}
	}
	return out
}

// ExtraNames returns the configured extras in sorted order.
func (d Descriptor) ExtraNames() []string {
	names := make([]string, 0, len(d.Extras))
	for name := range d.Extras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate enforces the descriptor invariants: a name, at least one
// executable, a known method, and at least one way to install.
func (d Descriptor) Validate() error {
	var problems []string

	if d.Key() == "" {
		problems = append(problems, "name is required")
	}
	if len(nonEmpty(d.Executables)) == 0 {
		problems = append(problems, "executables must not be empty")
	}

	for pm := range d.Packages {
		if !isKnownManager(pm) {
			problems = append(problems, fmt.Sprintf("unknown package manager %q", pm))
		}
	}
	for _, pm := range d.PackageManagers {
		if !isKnownManager(pm) {
			problems = append(problems, fmt.Sprintf("unknown package manager %q in package_managers", pm))
		}
	}

	explicit := len(nonEmpty(d.InstallCommands))
	switch d.Method {
	case MethodPackageManager:
		if len(d.ManagerOrder(nil)) == 0 && explicit == 0 {
			problems = append(problems, "package-manager method needs packages or install_commands")
		}
	case MethodScript:
		if strings.TrimSpace(d.Script) == "" && explicit == 0 {
			problems = append(problems, "script method needs script or install_commands")
		}
	case MethodDownload:
		if d.Download == nil || strings.TrimSpace(d.Download.URL) == "" {
			problems = append(problems, "direct-download method needs download.url")
		} else if strings.TrimSpace(d.Download.InstallDir) == "" {
			problems = append(problems, "direct-download method needs download.install_dir")
		}
		if d.Download != nil && !isKnownArchive(d.Download.Archive) {
			problems = append(problems, fmt.Sprintf("unsupported archive %q", d.Download.Archive))
		}
	case "":
		problems = append(problems, "method is required")
	default:
		problems = append(problems, fmt.Sprintf("unknown method %q", d.Method))
	}

	for i, tc := range d.Tests {
		if strings.TrimSpace(tc.Command) == "" {
			problems = append(problems, fmt.Sprintf("tests[%d] has no command", i))
		}
	}
	for name, extra := range d.Extras {
		if len(nonEmpty(extra.Commands)) == 0 {
			problems = append(problems, fmt.Sprintf("extra %q has no commands", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	name := d.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Errorf("%w %s: %s", ErrInvalidDescriptor, name, strings.Join(problems, "; "))
}

func isKnownManager(pm string) bool {
	switch strings.ToLower(strings.TrimSpace(pm)) {
	case Winget, Choco, Pip, Npm, Yarn:
		return true
	}
	return false
}

func isKnownArchive(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "none", "zip", "tar.gz":
		return true
	}
	return false
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
