package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"devkit/internal/tools"
)

// Batch collects the results of one invocation.
type Batch struct {
	RunID     string                  `json:"run_id"`
	Operation tools.Operation         `json:"operation"`
	Started   time.Time               `json:"started"`
	Finished  time.Time               `json:"finished"`
	Targets   []string                `json:"targets"`
	Unknown   []string                `json:"unknown,omitempty"`
	Warnings  []string                `json:"warnings,omitempty"`
	Results   map[string]tools.Result `json:"results"`
}

// NewBatch starts an empty batch for the resolved targets.
func NewBatch(op tools.Operation, r Resolution) *Batch {
	return &Batch{
		RunID:     uuid.NewString(),
		Operation: op,
		Started:   time.Now(),
		Targets:   append([]string(nil), r.Targets...),
		Unknown:   append([]string(nil), r.Unknown...),
		Warnings:  append([]string(nil), r.Warnings...),
		Results:   make(map[string]tools.Result, len(r.Targets)+len(r.Unknown)),
	}
}

// Ordered returns results in target order followed by unknown targets.
func (b *Batch) Ordered() []tools.Result {
	out := make([]tools.Result, 0, len(b.Results))
	for _, name := range append(append([]string(nil), b.Targets...), b.Unknown...) {
		if res, ok := b.Results[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded is true when every target succeeded and no target was unknown.
// It only drives the process exit code.
func (b *Batch) Succeeded() bool {
	if len(b.Unknown) > 0 {
		return false
	}
	for _, name := range b.Targets {
		res, ok := b.Results[name]
		if !ok || !res.Succeeded() {
			return false
		}
	}
	return true
}

// Counts tallies results by state.
func (b *Batch) Counts() (succeeded, failed, skipped int) {
	for _, res := range b.Results {
		if res.Outcome == nil {
			failed++
			continue
		}
		switch res.Outcome.State() {
		case tools.StateSuccess:
			succeeded++
		case tools.StateSkipped:
			skipped++
		default:
			failed++
		}
	}
	return succeeded, failed, skipped
}

// WriteFile stores the batch as indented JSON, replacing path atomically.
func (b *Batch) WriteFile(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "results-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp results: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	return nil
}
