package tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		line, want string
	}{
		{"git version 2.45.1.windows.1", "2.45.1"},
		{"Python 3.12.1", "3.12.1"},
		{"v20.11.0", "20.11.0"},
		{"Terraform v1.7.4\non linux", "1.7.4"},
		{"1.12.1", "1.12.1"},
		{"rustc 1.76.0 (07dca489a 2024)", "1.76.0"},
		{"openjdk 17.0.10+7 2024-01-16", "17.0.10+7"},
		{"no digits here", "no digits here"},
	}
	for _, tt := range tests {
		if got := extractVersion(firstLine(tt.line)); got != tt.want {
			t.Errorf("extractVersion(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		current, minimum string
		want             bool
	}{
		{"2.45.1", "2.30", true},
		{"2.30.0", "2.30", true},
		{"2.29.9", "2.30", false},
		{"3.12.1-rc1", "3.12", true},
		{"", "1.0", false},
		{"anything", "", true},
		{"17.0.10+7", "17", true},
		{"1.2.beta", "1.3", false},
	}
	for _, tt := range tests {
		if got := meetsMinimum(tt.current, tt.minimum); got != tt.want {
			t.Errorf("meetsMinimum(%q, %q) = %v, want %v", tt.current, tt.minimum, got, tt.want)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		passed, total int
		threshold     float64
		want          bool
	}{
		{7, 10, 0.7, true},
		{6, 10, 0.7, false},
		{10, 10, 0.7, true},
		{0, 10, 0.7, false},
		{2, 3, 0.7, false},
		{3, 3, 1, true},
		{0, 0, 0.7, true},
	}
	for _, tt := range tests {
		if got := meetsThreshold(tt.passed, tt.total, tt.threshold); got != tt.want {
			t.Errorf("meetsThreshold(%d, %d, %v) = %v, want %v", tt.passed, tt.total, tt.threshold, got, tt.want)
		}
	}
}

func TestManagerArgs(t *testing.T) {
	tests := []struct {
		name string
		pm   string
		v    variant
		opts Options
		want []string
	}{
		{"winget install", "winget", variantInstall, Options{Version: "2.0", Silent: true},
			[]string{"install", "--id", "Git.Git", "-e", "--accept-package-agreements", "--accept-source-agreements", "--version", "2.0", "--silent"}},
		{"winget uninstall", "winget", variantUninstall, Options{}, []string{"uninstall", "--id", "Git.Git", "-e"}},
		{"choco force", "choco", variantInstall, Options{Force: true}, []string{"install", "Git.Git", "-y", "--force"}},
		{"choco upgrade", "choco", variantUpgrade, Options{}, []string{"upgrade", "Git.Git", "-y"}},
		{"pip pinned", "pip", variantInstall, Options{Version: "1.0"}, []string{"install", "Git.Git==1.0"}},
		{"pip upgrade", "pip", variantUpgrade, Options{}, []string{"install", "--upgrade", "Git.Git"}},
		{"npm pinned", "npm", variantInstall, Options{Version: "5.4.2"}, []string{"install", "-g", "Git.Git@5.4.2"}},
		{"npm upgrade", "npm", variantUpgrade, Options{}, []string{"install", "-g", "Git.Git@latest"}},
		{"yarn remove", "yarn", variantUninstall, Options{}, []string{"global", "remove", "Git.Git"}},
		{"unknown", "brew", variantInstall, Options{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := managerArgs(tt.pm, "Git.Git", tt.v, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
