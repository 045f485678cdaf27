package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// validator checks the raw parameter map of one command before it is
// handed to the child.
type validator func(command string, params map[string]any) error

// validators maps each command with required parameters to its check.
// Commands outside this table pass through unvalidated.
var validators = map[string]validator{
	"create_project": func(cmd string, params map[string]any) error {
		var p CreateProjectParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"open_project": func(cmd string, params map[string]any) error {
		var p openProjectParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"set_board_size": func(cmd string, params map[string]any) error {
		var p boardSizeParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"export_gerber": func(cmd string, params map[string]any) error {
		var p GerberParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"export_pdf": func(cmd string, params map[string]any) error {
		var p PDFParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"export_svg": func(cmd string, params map[string]any) error {
		var p SVGParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"export_3d": func(cmd string, params map[string]any) error {
		var p ThreeDParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
	"export_bom": func(cmd string, params map[string]any) error {
		var p BOMParams
		if err := decodeParams(cmd, params, &p); err != nil {
			return err
		}
		return p.validate()
	},
}

// decodeParams round-trips a raw parameter map through JSON into the
// command's typed parameter struct.
func decodeParams(command string, params map[string]any, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s: encode params: %w", command, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParamError{Command: command, Reason: err.Error()}
	}
	return nil
}

// Invoke submits a command given by name with a raw parameter map. For
// commands with known required parameters it validates the map first,
// returning a *ParamError without touching the child when the check
// fails. The original map is what gets submitted, so keys beyond the
// typed parameters still reach the child. A rejected command surfaces
// as a *CommandError; a successful one returns the child's full reply
// document.
func (c *Client) Invoke(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	if check, ok := validators[command]; ok {
		if err := check(command, params); err != nil {
			return nil, err
		}
	}
	var p any
	if params != nil {
		p = params
	}
	resp, err := c.do(ctx, command, p, nil)
	if err != nil {
		return nil, err
	}
	return resp.Raw, nil
}
