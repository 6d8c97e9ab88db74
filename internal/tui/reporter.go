package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"devkit/internal/tools"
)

// BatchReporter turns orchestrator progress callbacks into row updates.
type BatchReporter struct {
	send func(tea.Msg)
}

// NewBatchReporter sends updates through send, typically tea.Program.Send
// or ProgressModel.Apply wrapped for plain output.
func NewBatchReporter(send func(tea.Msg)) *BatchReporter {
	return &BatchReporter{send: send}
}

func (r *BatchReporter) Start(target string, _ tools.Operation) {
	r.send(startedMsg(target))
}

func (r *BatchReporter) Complete(res tools.Result) {
	r.send(completedMsg(res))
}
