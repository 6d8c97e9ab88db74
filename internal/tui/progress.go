package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"devkit/internal/tools"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Column headers of the batch table.
const (
	ColTool    = "TOOL"
	ColStatus  = "STATUS"
	ColTime    = "TIME"
	ColMessage = "MESSAGE"
)

// Row status labels. Anything other than pending or running counts as
// processed.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

type tickMsg time.Time

// Column defines a single column in the progress table.
type Column struct {
	Header string
	Width  int
}

// Row holds the field values for a single table row.
type Row struct {
	Key    string
	Fields []string
}

// ProgressModel is a bubbletea model that renders one row per target while a
// batch runs.
type ProgressModel struct {
	columns  []Column
	rows     []Row
	rowIndex map[string]int
	title    string
	done     bool

	// interrupted is set when the user quits before the work finished.
	interrupted bool

	statusCol int
	tick      int
}

// NewProgressModel creates a progress model with the given title and columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	statusCol := -1
	for i, c := range columns {
		if strings.EqualFold(c.Header, ColStatus) {
			statusCol = i
			break
		}
	}
	return ProgressModel{
		columns:   columns,
		rowIndex:  make(map[string]int),
		title:     title,
		statusCol: statusCol,
	}
}

// BatchColumns is the column layout used for lifecycle batches.
func BatchColumns() []Column {
	return []Column{
		{Header: ColTool, Width: 14},
		{Header: ColStatus, Width: 9},
		{Header: ColTime, Width: 7},
		{Header: ColMessage, Width: 56},
	}
}

// NewBatchModel prepares a table with one pending row per target.
func NewBatchModel(op tools.Operation, targets []string) ProgressModel {
	m := NewProgressModel(string(op), BatchColumns())
	for _, target := range targets {
		m.AddRow(target, []string{target, StatusPending, "", ""})
	}
	return m
}

// AddRow pre-populates a row. Call this before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	if _, exists := m.rowIndex[key]; exists {
		return
	}
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.rowIndex[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: padded})
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case TargetUpdateMsg:
		m.applyRowUpdate(msg)
		return m, nil

	case BatchDoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// Apply folds a row update into the model outside of a running program.
func (m *ProgressModel) Apply(msg TargetUpdateMsg) {
	m.applyRowUpdate(msg)
}

func (m *ProgressModel) applyRowUpdate(msg TargetUpdateMsg) {
	idx, ok := m.rowIndex[msg.Target]
	if !ok {
		return
	}
	row := &m.rows[idx]
	for j, col := range m.columns {
		if val, exists := msg.Fields[col.Header]; exists {
			row.Fields[j] = val
		}
	}
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
	}
	if !m.done {
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

func (m ProgressModel) columnWidth(i int) int {
	return max(len(m.columns[i].Header), m.columns[i].Width)
}

func (m ProgressModel) renderHeader() string {
	cells := make([]string, len(m.columns))
	for i, col := range m.columns {
		cells[i] = HeaderStyle.Render(pad(col.Header, m.columnWidth(i)))
	}
	return strings.Join(cells, "  ") + "\n"
}

// renderRow scrolls overlong cells while the batch runs and truncates them
// once it is done.
func (m ProgressModel) renderRow(row Row) string {
	cells := make([]string, len(m.columns))
	for i := range m.columns {
		width := m.columnWidth(i)
		var val string
		if i < len(row.Fields) {
			val = row.Fields[i]
		}
		if m.done || len(strings.TrimSpace(val)) <= width {
			val = TruncateWithEllipsis(val, width)
		} else {
			val = marqueeText(val, width, m.tick)
		}
		cell := pad(val, width)
		if i == m.statusCol {
			cell = StatusStyle(val).Render(cell)
		}
		cells[i] = cell
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ") + "\n"
}

func (m ProgressModel) renderFooter() string {
	processed, total := m.progressCounts()
	spinner := spinnerFrames[m.tick%len(spinnerFrames)]
	line := fmt.Sprintf("%s %s %d/%d", spinner, m.title, processed, total)
	if failed := m.countStatus(StatusFailed); failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	return "\n" + line + "...\n"
}

// progressCounts returns how many rows have left the pending and running
// states, and the total number of rows.
func (m ProgressModel) progressCounts() (int, int) {
	if m.statusCol < 0 {
		return 0, len(m.rows)
	}
	active := m.countStatus(StatusPending) + m.countStatus(StatusRunning) + m.countStatus("")
	return len(m.rows) - active, len(m.rows)
}

func (m ProgressModel) countStatus(status string) int {
	if m.statusCol < 0 {
		return 0
	}
	n := 0
	for _, row := range m.rows {
		if m.statusCol < len(row.Fields) && strings.TrimSpace(row.Fields[m.statusCol]) == status {
			n++
		}
	}
	return n
}

func (m ProgressModel) Done() bool {
	return m.done
}

// Interrupted reports whether the user quit before the work finished.
func (m ProgressModel) Interrupted() bool {
	return m.interrupted
}

// StatusLabel maps a lifecycle result onto a table status.
func StatusLabel(res tools.Result) string {
	if res.Outcome == nil {
		return StatusFailed
	}
	switch res.Outcome.State() {
	case tools.StateSuccess:
		return StatusSuccess
	case tools.StateSkipped:
		return StatusSkipped
	}
	if res.Kind() == tools.KindCanceled {
		return StatusCanceled
	}
	return StatusFailed
}

// ResultFields renders a completed result as table fields.
func ResultFields(res tools.Result) map[string]string {
	msg := res.Message()
	if kind := res.Kind(); kind != "" && kind != tools.KindCanceled {
		msg = string(kind) + ": " + msg
	}
	return map[string]string{
		ColStatus:  StatusLabel(res),
		ColTime:    formatElapsed(res.Duration),
		ColMessage: NonEmptyOrDash(msg),
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText renders a scrolling window over text that exceeds width.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	cycleLen := len(cycle)
	offset := tick % cycleLen
	var result strings.Builder
	result.Grow(width)
	for i := 0; i < width; i++ {
		result.WriteByte(cycle[(offset+i)%cycleLen])
	}
	return result.String()
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it is longer than limit.
func TruncateWithEllipsis(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
