// Package tools provides typed wrappers over the broker for the command
// groups the KiCAD child understands. Each wrapper validates required
// parameters, submits the command, and decodes the child's reply.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yanissrairi/kicad-mcp-server/internal/protocol"
)

// Submitter is the slice of the broker the tools need.
type Submitter interface {
	Submit(ctx context.Context, command string, params any) (json.RawMessage, error)
}

// ParamError reports a request rejected before submission because its
// parameters are incomplete or malformed.
type ParamError struct {
	Command string
	Reason  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// CommandError reports a command the child executed but rejected.
type CommandError struct {
	Command string
	Message string
	Details string
}

func (e *CommandError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("command %q failed: %s (%s)", e.Command, e.Message, e.Details)
	}
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Message)
}

// Client groups the command services.
type Client struct {
	s Submitter

	Project *ProjectService
	Board   *BoardService
	DRC     *DRCService
	Export  *ExportService
}

// NewClient wraps a Submitter, usually the broker.
func NewClient(s Submitter) *Client {
	c := &Client{s: s}
	c.Project = &ProjectService{c: c}
	c.Board = &BoardService{c: c}
	c.DRC = &DRCService{c: c}
	c.Export = &ExportService{c: c}
	return c
}

// do submits command, checks the child's success flag, and optionally
// decodes the full reply document into out.
func (c *Client) do(ctx context.Context, command string, params, out any) (*protocol.Response, error) {
	raw, err := c.s.Submit(ctx, command, params)
	if err != nil {
		return nil, err
	}
	resp, err := protocol.ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	if !resp.Success {
		return resp, &CommandError{Command: command, Message: resp.Message, Details: resp.ErrorDetails}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Raw, out); err != nil {
			return resp, fmt.Errorf("%s: decode reply: %w", command, err)
		}
	}
	return resp, nil
}
