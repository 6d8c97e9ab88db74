package tui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"devkit/internal/tools"
)

func batchModel() ProgressModel {
	return NewBatchModel(tools.OpInstall, []string{"git", "nodejs", "python"})
}

func rowFields(m ProgressModel, key string) []string {
	return m.rows[m.rowIndex[key]].Fields
}

func TestNewBatchModelStartsPending(t *testing.T) {
	m := batchModel()
	want := []string{"git", StatusPending, "", ""}
	if diff := cmp.Diff(want, rowFields(m, "git")); diff != "" {
		t.Fatalf("git row mismatch (-want +got):\n%s", diff)
	}
	processed, total := m.progressCounts()
	if processed != 0 || total != 3 {
		t.Fatalf("progressCounts = %d/%d, want 0/3", processed, total)
	}
}

func TestAddRowIgnoresDuplicateKey(t *testing.T) {
	m := batchModel()
	m.AddRow("git", []string{"git", StatusSuccess})
	if len(m.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(m.rows))
	}
	if got := rowFields(m, "git")[1]; got != StatusPending {
		t.Fatalf("status = %q, want %q", got, StatusPending)
	}
}

func TestRowUpdateByColumnName(t *testing.T) {
	m := batchModel()
	updated, _ := m.Update(TargetUpdateMsg{
		Target: "nodejs",
		Fields: map[string]string{ColStatus: StatusFailed, ColMessage: "blocked: node.exe running"},
	})
	m = updated.(ProgressModel)

	want := []string{"nodejs", StatusFailed, "", "blocked: node.exe running"}
	if diff := cmp.Diff(want, rowFields(m, "nodejs")); diff != "" {
		t.Fatalf("nodejs row mismatch (-want +got):\n%s", diff)
	}
	if got := rowFields(m, "git")[1]; got != StatusPending {
		t.Fatalf("git status changed to %q", got)
	}
}

func TestRowUpdateUnknownKeyIsIgnored(t *testing.T) {
	m := batchModel()
	m.Apply(TargetUpdateMsg{Target: "docker", Fields: map[string]string{ColStatus: StatusSuccess}})
	for _, key := range []string{"git", "nodejs", "python"} {
		if got := rowFields(m, key)[1]; got != StatusPending {
			t.Errorf("%s status = %q, want pending", key, got)
		}
	}
}

func TestReporterDrivesRows(t *testing.T) {
	m := batchModel()
	r := NewBatchReporter(func(msg tea.Msg) { m.Apply(msg.(TargetUpdateMsg)) })

	r.Start("git", tools.OpInstall)
	if got := rowFields(m, "git")[1]; got != StatusRunning {
		t.Fatalf("after Start status = %q, want running", got)
	}

	r.Complete(tools.Result{
		Target:    "git",
		Operation: tools.OpInstall,
		Outcome:   tools.Success{Message: "installed via winget"},
		Duration:  1500 * time.Millisecond,
	})
	r.Complete(tools.Result{
		Target:    "python",
		Operation: tools.OpInstall,
		Outcome:   tools.Failure{Kind: tools.KindCommandFailed, Reason: "all candidates failed"},
	})

	want := []string{"git", StatusSuccess, "1.5s", "installed via winget"}
	if diff := cmp.Diff(want, rowFields(m, "git")); diff != "" {
		t.Errorf("git row mismatch (-want +got):\n%s", diff)
	}
	want = []string{"python", StatusFailed, "-", "command-failed: all candidates failed"}
	if diff := cmp.Diff(want, rowFields(m, "python")); diff != "" {
		t.Errorf("python row mismatch (-want +got):\n%s", diff)
	}
	processed, total := m.progressCounts()
	if processed != 2 || total != 3 {
		t.Errorf("progressCounts = %d/%d, want 2/3", processed, total)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		name    string
		outcome tools.Outcome
		want    string
	}{
		{"success", tools.Success{}, StatusSuccess},
		{"skipped", tools.Skipped{Reason: "already installed"}, StatusSkipped},
		{"failure", tools.Failure{Kind: tools.KindBlocked}, StatusFailed},
		{"canceled", tools.Failure{Kind: tools.KindCanceled}, StatusCanceled},
		{"missing outcome", nil, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLabel(tools.Result{Outcome: tt.outcome}); got != tt.want {
				t.Errorf("StatusLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "-"},
		{250 * time.Millisecond, "250ms"},
		{2500 * time.Millisecond, "2.5s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 7*time.Second, "3m07s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.in); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBatchDoneQuits(t *testing.T) {
	m := batchModel()
	updated, cmd := m.Update(BatchDoneMsg{})
	m = updated.(ProgressModel)
	if !m.Done() || m.Interrupted() {
		t.Fatalf("Done=%v Interrupted=%v, want true/false", m.Done(), m.Interrupted())
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
}

func TestCtrlCMarksInterrupted(t *testing.T) {
	m := batchModel()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)
	if !m.Done() || !m.Interrupted() {
		t.Fatalf("Done=%v Interrupted=%v, want true/true", m.Done(), m.Interrupted())
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
}

func TestTickReschedulesUntilDone(t *testing.T) {
	m := batchModel()
	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)
	if m.tick != 1 || cmd == nil {
		t.Fatalf("tick=%d cmd=%v, want 1 and a next tick", m.tick, cmd)
	}

	updated, _ = m.Update(BatchDoneMsg{})
	m = updated.(ProgressModel)
	if _, cmd = m.Update(tickMsg{}); cmd != nil {
		t.Fatal("expected no tick command after done")
	}
}

func TestViewFooter(t *testing.T) {
	m := batchModel()
	m.Apply(TargetUpdateMsg{Target: "git", Fields: map[string]string{ColStatus: StatusSkipped, ColMessage: "already installed"}})

	view := m.View()
	for _, want := range []string{ColTool, ColStatus, ColMessage, "git", "already installed", "install 1/3"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	updated, _ := m.Update(BatchDoneMsg{})
	if view := updated.(ProgressModel).View(); strings.Contains(view, "install 1/3") {
		t.Errorf("footer should be hidden once done:\n%s", view)
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		{"short", 10, 0, "short"},
		{"winget failed", 6, 0, "winget"},
		{"winget failed", 6, 2, "nget f"},
		{"abcdef", 4, 6, "   a"},
		{"abcdef", 0, 0, ""},
	}
	for _, tt := range tests {
		if got := marqueeText(tt.text, tt.width, tt.tick); got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"git", 10, "git"},
		{"verification-failed", 10, "verific..."},
		{"abcd", 3, "abc"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
	if got := NonEmptyOrDash("  "); got != "-" {
		t.Errorf("NonEmptyOrDash(blank) = %q", got)
	}
}

func TestConsoleQuietKeepsWarnings(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.Infof("checking %s", "git")
	c.Successf("done")
	c.Warnf("PATH entry missing")
	c.Errorf("install failed")

	want := "[WARNING] PATH entry missing\n[ERROR] install failed\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("console output mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleRawSharesLock(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	raw := c.Raw()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Warnf("slow mirror")
		}()
		go func() {
			defer wg.Done()
			_, _ = raw.Write([]byte("[git] fetching\n"))
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line != "[WARNING] slow mirror" && line != "[git] fetching" {
			t.Fatalf("torn line %q", line)
		}
	}
}

func TestConsoleResult(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.Result(tools.Result{
		Target:    "git",
		Operation: tools.OpTest,
		Outcome:   tools.Failure{Kind: tools.KindTestsFailed, Reason: "1/3 tests passed"},
		Tests: []tools.TestDetail{
			{Name: "version", Passed: true},
			{Name: "clone", Passed: false},
		},
	})
	want := "[ERROR] test git: tests-failed: 1/3 tests passed\n" +
		"[INFO]   [pass] version\n" +
		"[INFO]   [FAIL] clone\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("console output mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	if got := DetectMode(&buf, false, true); got != ModeJSON {
		t.Errorf("json flag: got %v, want ModeJSON", got)
	}
	if got := DetectMode(&buf, false, false); got != ModePlain {
		t.Errorf("buffer writer: got %v, want ModePlain", got)
	}
	if ColorEnabled(&buf) {
		t.Error("colour should be disabled for non-terminal writers")
	}
}
