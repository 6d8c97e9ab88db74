package tui

import "devkit/internal/tools"

// TargetUpdateMsg moves one target's row forward. Fields are keyed by column
// header; columns missing from Fields keep their value.
type TargetUpdateMsg struct {
	Target string
	Fields map[string]string
}

// BatchDoneMsg is sent once the orchestrator has returned.
type BatchDoneMsg struct{}

func startedMsg(target string) TargetUpdateMsg {
	return TargetUpdateMsg{Target: target, Fields: map[string]string{ColStatus: StatusRunning}}
}

func completedMsg(res tools.Result) TargetUpdateMsg {
	return TargetUpdateMsg{Target: res.Target, Fields: ResultFields(res)}
}
