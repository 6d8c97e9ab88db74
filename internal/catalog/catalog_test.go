package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuiltinCatalogValidates(t *testing.T) {
	cat, err := Load(nil, true)
	if err != nil {
		t.Fatalf("builtin catalog: %v", err)
	}
	if cat.Len() < 10 {
		t.Fatalf("expected a populated builtin catalog, got %d tools", cat.Len())
	}
	for _, name := range []string{"git", "nodejs", "python", "vscode"} {
		if _, ok := cat.Get(name); !ok {
			t.Fatalf("builtin catalog missing %q", name)
		}
	}
	web, ok := cat.Category("web-development")
	if !ok || len(web) == 0 {
		t.Fatal("expected web-development category")
	}
	essentials, ok := cat.Category("essentials")
	if !ok {
		t.Fatal("expected essentials category")
	}
	if diff := cmp.Diff([]string{"git", "vscode", "nodejs", "python"}, essentials); diff != "" {
		t.Fatalf("essentials mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "a.yaml")
	writeFile(t, yamlPath, `
tools:
  - name: foo
    executables: [foo.exe]
    method: package-manager
    packages:
      winget: Foo.Foo
    categories: [extras]
`)
	tomlPath := filepath.Join(dir, "b.toml")
	writeFile(t, tomlPath, `
[categories]
bundle = ["foo", "bar"]

[[tools]]
name = "bar"
executables = ["bar"]
method = "script"
script = "echo installing bar"

[[tools.tests]]
command = "bar --help"
expect = "usage"
`)

	cat, err := Load([]string{yamlPath, tomlPath}, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"bar", "foo"}, cat.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	bar, _ := cat.Get("BAR")
	if bar.Method != MethodScript || len(bar.Tests) != 1 || bar.Tests[0].Expect != "usage" {
		t.Fatalf("unexpected bar descriptor: %+v", bar)
	}
	if members, _ := cat.Category("bundle"); len(members) != 2 {
		t.Fatalf("bundle members = %v", members)
	}
	if members, _ := cat.Category("Extras"); len(members) != 1 || members[0] != "foo" {
		t.Fatalf("extras members = %v", members)
	}
}

func TestLoadUserOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "git.yaml")
	writeFile(t, path, `
tools:
  - name: git
    executables: [git]
    method: script
    script: echo custom git
`)
	cat, err := Load([]string{path}, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	git, _ := cat.Get("git")
	if git.Method != MethodScript || git.Script != "echo custom git" {
		t.Fatalf("expected user override, got %+v", git)
	}
}

func TestLoadDuplicateAcrossUserFiles(t *testing.T) {
	dir := t.TempDir()
	body := `
tools:
  - name: foo
    executables: [foo]
    method: script
    script: echo foo
`
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, body)
	writeFile(t, b, body)

	_, err := Load([]string{a, b}, false)
	if err == nil || !strings.Contains(err.Error(), "defined in both") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typo.yaml")
	writeFile(t, path, `
tools:
  - name: foo
    executable: [foo]
    method: script
    script: echo foo
`)
	if _, err := Load([]string{path}, false); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load([]string{filepath.Join(t.TempDir(), "missing.yaml")}, false)
	if err == nil || !strings.Contains(err.Error(), "load catalog") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "valid package manager",
			desc: Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodPackageManager, Packages: map[string]string{"winget": "Foo"}},
		},
		{
			name: "valid explicit commands",
			desc: Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodPackageManager, InstallCommands: []string{"true"}},
		},
		{
			name:    "missing executables",
			desc:    Descriptor{Name: "foo", Method: MethodScript, Script: "x"},
			wantErr: "executables must not be empty",
		},
		{
			name:    "missing name",
			desc:    Descriptor{Executables: []string{"foo"}, Method: MethodScript, Script: "x"},
			wantErr: "name is required",
		},
		{
			name:    "no packages",
			desc:    Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodPackageManager},
			wantErr: "needs packages",
		},
		{
			name:    "unknown manager",
			desc:    Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodPackageManager, Packages: map[string]string{"brew": "foo"}},
			wantErr: `unknown package manager "brew"`,
		},
		{
			name:    "download without url",
			desc:    Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodDownload, Download: &Download{InstallDir: "x"}},
			wantErr: "download.url",
		},
		{
			name:    "unknown method",
			desc:    Descriptor{Name: "foo", Executables: []string{"foo"}, Method: "magic"},
			wantErr: `unknown method "magic"`,
		},
		{
			name:    "empty test command",
			desc:    Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodScript, Script: "x", Tests: []TestCommand{{Expect: "y"}}},
			wantErr: "tests[0] has no command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestNewRejectsBadCategories(t *testing.T) {
	foo := Descriptor{Name: "foo", Executables: []string{"foo"}, Method: MethodScript, Script: "x"}

	if _, err := New([]Descriptor{foo}, map[string][]string{"group": {"missing"}}); err == nil {
		t.Fatal("expected unknown member error")
	}
	if _, err := New([]Descriptor{foo}, map[string][]string{"all": {"foo"}}); err == nil {
		t.Fatal("expected reserved category error")
	}
	if _, err := New([]Descriptor{foo}, map[string][]string{"foo": {"foo"}}); err == nil {
		t.Fatal("expected shadowing error")
	}
}

func TestManagerOrder(t *testing.T) {
	d := Descriptor{Packages: map[string]string{"choco": "git", "winget": "Git.Git", "npm": ""}}
	if diff := cmp.Diff([]string{"winget", "choco"}, d.ManagerOrder(nil)); diff != "" {
		t.Fatalf("default order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"choco", "winget"}, d.ManagerOrder([]string{"choco", "npm", "winget"})); diff != "" {
		t.Fatalf("preferred order mismatch (-want +got):\n%s", diff)
	}
	d.PackageManagers = []string{"winget"}
	if diff := cmp.Diff([]string{"winget"}, d.ManagerOrder([]string{"choco"})); diff != "" {
		t.Fatalf("descriptor order mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionTemplateDefault(t *testing.T) {
	if got := (Descriptor{}).VersionTemplate(); got != DefaultVersionCommand {
		t.Fatalf("VersionTemplate = %q", got)
	}
	if got := (Descriptor{VersionCommand: "{exe} version"}).VersionTemplate(); got != "{exe} version" {
		t.Fatalf("VersionTemplate = %q", got)
	}
}
