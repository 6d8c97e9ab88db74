package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork starts a bubbletea program, launches workFn in a goroutine and
// blocks until both have finished. If the user quits early, cancel is called
// and RunWithWork still waits for workFn to return.
func RunWithWork(out io.Writer, model ProgressModel, cancel context.CancelFunc, workFn func(send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	workDone := make(chan struct{})

	go func() {
		defer close(workDone)
		// Give the program a moment to draw the initial frame.
		time.Sleep(50 * time.Millisecond)
		workFn(p.Send)
		p.Send(BatchDoneMsg{})
	}()

	finalModel, err := p.Run()
	if m, ok := finalModel.(ProgressModel); ok && m.Interrupted() && cancel != nil {
		cancel()
	}
	<-workDone
	return err
}
