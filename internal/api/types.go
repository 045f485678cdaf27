package api

import (
	"encoding/json"

	"github.com/yanissrairi/kicad-mcp-server/internal/journal"
)

// CommandRequest is the JSON body for POST /v1/commands/{name}
type CommandRequest struct {
	Params json.RawMessage `json:"params,omitempty"`
}

// CommandResponse wraps the child's reply document verbatim.
type CommandResponse struct {
	Command string          `json:"command"`
	Result  json.RawMessage `json:"result"`
}

// StatusResponse is returned by GET /v1/status
type StatusResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ChildRunning  bool   `json:"child_running"`
	ChildPID      int    `json:"child_pid,omitempty"`
}

// JournalResponse is returned by GET /v1/journal
type JournalResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ChildRunning  bool   `json:"child_running"`
}
