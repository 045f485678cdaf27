package protocol

import "encoding/json"

// Request is the envelope written to the scripting process, one JSON
// document per line on stdin.
type Request struct {
	Command string `json:"command"`
	Params  any    `json:"params"`
	Timeout int    `json:"timeout"` // milliseconds, advisory for the child
}

// Response is the envelope the scripting process emits on stdout. Commands
// attach arbitrary extra fields; only the three below are part of the
// contract, so callers that need the rest keep the raw document.
type Response struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`

	// Raw is the complete response document as received.
	Raw json.RawMessage `json:"-"`
}
