package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Operation names a lifecycle action.
type Operation string

const (
	OpInstall   Operation = "install"
	OpTest      Operation = "test"
	OpReinstall Operation = "reinstall"
	OpUpdate    Operation = "update"
	OpCheck     Operation = "check"
	OpFixPath   Operation = "fix-path"
	OpUninstall Operation = "uninstall"
	OpStatus    Operation = "status"
)

// Operations lists every lifecycle action in CLI order.
func Operations() []Operation {
	return []Operation{OpInstall, OpTest, OpReinstall, OpUpdate, OpCheck, OpFixPath, OpUninstall, OpStatus}
}

// ParseOperation resolves an action name, case-insensitively.
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations() {
		if strings.EqualFold(string(op), strings.TrimSpace(name)) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// Status captures the detected state of one tool. It is recomputed on every
// Detect and never persisted.
type Status struct {
	Tool         string          `json:"tool"`
	Installed    bool            `json:"installed"`
	Version      string          `json:"version,omitempty"`
	VersionLine  string          `json:"version_line,omitempty"`
	Path         string          `json:"path,omitempty"`
	Dependencies map[string]bool `json:"dependencies,omitempty"`
	Minimum      string          `json:"minimum,omitempty"`
	MeetsMinimum bool            `json:"meets_minimum"`
	Error        string          `json:"error,omitempty"`
	Notes        []string        `json:"notes,omitempty"`
}

// belowKnownMinimum is true only when a parsed version fails the minimum. An
// unknown version is not treated as outdated.
func (s Status) belowKnownMinimum() bool {
	return s.Installed && s.Version != "" && !s.MeetsMinimum
}

// MissingDependencies lists the required executables that were not found.
func (s Status) MissingDependencies() []string {
	var missing []string
	for name, ok := range s.Dependencies {
		if !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Summary renders the status as a one-line message.
func (s Status) Summary() string {
	if !s.Installed {
		if s.Error != "" {
			return "not installed (" + s.Error + ")"
		}
		return "not installed"
	}
	version := s.Version
	if version == "" {
		version = "unknown version"
	}
	msg := fmt.Sprintf("installed %s at %s", version, s.Path)
	switch {
	case s.belowKnownMinimum():
		msg += fmt.Sprintf(" (below minimum %s)", s.Minimum)
	case s.Minimum != "" && !s.MeetsMinimum:
		msg += fmt.Sprintf(" (minimum %s unverified)", s.Minimum)
	}
	return msg
}

// State is the coarse classification of an Outcome.
type State string

const (
	StateSuccess State = "success"
	StateFailure State = "failure"
	StateSkipped State = "skipped"
)

// FailureKind distinguishes why an operation failed.
type FailureKind string

const (
	KindCommandFailed      FailureKind = "command-failed"
	KindVerificationFailed FailureKind = "verification-failed"
	KindMissingDependency  FailureKind = "missing-dependency"
	KindNotInstalled       FailureKind = "not-installed"
	KindTestsFailed        FailureKind = "tests-failed"
	KindBlocked            FailureKind = "blocked"
	KindPathError          FailureKind = "path-error"
	KindCanceled           FailureKind = "canceled"
	KindUnknownTarget      FailureKind = "unknown-target"
	KindInvalid            FailureKind = "invalid"
)

// Outcome is one of Success, Failure or Skipped.
type Outcome interface {
	State() State
	Detail() string
	outcome()
}

type Success struct {
	Message string
}

func (Success) State() State     { return StateSuccess }
func (s Success) Detail() string { return s.Message }
func (Success) outcome()         {}

type Failure struct {
	Kind   FailureKind
	Reason string
}

func (Failure) State() State     { return StateFailure }
func (f Failure) Detail() string { return f.Reason }
func (Failure) outcome()         {}

func (f Failure) Error() string {
	if f.Reason == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

// Unwrap maps the failure kind onto its sentinel error, if any.
func (f Failure) Unwrap() error {
	switch f.Kind {
	case KindNotInstalled:
		return ErrNotInstalled
	case KindMissingDependency:
		return ErrMissingDependency
	case KindBlocked:
		return ErrBlocked
	case KindVerificationFailed:
		return ErrVerification
	}
	return nil
}

type Skipped struct {
	Reason string
}

func (Skipped) State() State     { return StateSkipped }
func (s Skipped) Detail() string { return s.Reason }
func (Skipped) outcome()         {}

// TestDetail records one functionality check.
type TestDetail struct {
	Name     string `json:"name"`
	Command  string `json:"command"`
	Expect   string `json:"expect,omitempty"`
	Passed   bool   `json:"passed"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output,omitempty"`
}

// Result is the outcome of one operation on one tool.
type Result struct {
	Target      string
	Operation   Operation
	Outcome     Outcome
	TestsPassed int
	TestsTotal  int
	Tests       []TestDetail
	Status      *Status
	Duration    time.Duration
	Notes       []string
}

// Succeeded is true for Success and Skipped outcomes.
func (r Result) Succeeded() bool {
	return r.Outcome != nil && r.Outcome.State() != StateFailure
}

// Kind returns the failure kind, or "" for non-failures.
func (r Result) Kind() FailureKind {
	if f, ok := r.Outcome.(Failure); ok {
		return f.Kind
	}
	return ""
}

// Message returns the outcome detail.
func (r Result) Message() string {
	if r.Outcome == nil {
		return ""
	}
	return r.Outcome.Detail()
}

type resultJSON struct {
	Target      string       `json:"target"`
	Operation   Operation    `json:"operation"`
	State       State        `json:"state"`
	Kind        FailureKind  `json:"kind,omitempty"`
	Message     string       `json:"message,omitempty"`
	TestsPassed int          `json:"tests_passed"`
	TestsTotal  int          `json:"tests_total"`
	Tests       []TestDetail `json:"tests,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	DurationMS  int64        `json:"duration_ms"`
	Notes       []string     `json:"notes,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Target:      r.Target,
		Operation:   r.Operation,
		Kind:        r.Kind(),
		Message:     r.Message(),
		TestsPassed: r.TestsPassed,
		TestsTotal:  r.TestsTotal,
		Tests:       r.Tests,
		Status:      r.Status,
		DurationMS:  r.Duration.Milliseconds(),
		Notes:       r.Notes,
	}
	if r.Outcome != nil {
		out.State = r.Outcome.State()
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{
		Target:      in.Target,
		Operation:   in.Operation,
		TestsPassed: in.TestsPassed,
		TestsTotal:  in.TestsTotal,
		Tests:       in.Tests,
		Status:      in.Status,
		Duration:    time.Duration(in.DurationMS) * time.Millisecond,
		Notes:       in.Notes,
	}
	switch in.State {
	case StateSuccess:
		r.Outcome = Success{Message: in.Message}
	case StateSkipped:
		r.Outcome = Skipped{Reason: in.Message}
	case StateFailure:
		r.Outcome = Failure{Kind: in.Kind, Reason: in.Message}
	default:
		return fmt.Errorf("unknown result state %q", in.State)
	}
	return nil
}

// Options carries the per-invocation flags.
type Options struct {
	Force     bool
	Silent    bool
	Detailed  bool
	AddToPath bool
	Version   string
	Extras    []string
}
