package tools

import (
	"context"
)

// DRCService runs design rule checks and reads their results.
type DRCService struct {
	c *Client
}

// DRCSummary is the aggregate result of a DRC run. The full violation
// list is written to ViolationsFile next to the board.
type DRCSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByType     map[string]int `json:"by_type"`
}

// DRCResult pairs the summary with the file paths the child produced.
type DRCResult struct {
	Message        string
	Summary        DRCSummary
	ViolationsFile string
	ReportPath     string
}

// Location is a point on the board.
type Location struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Unit string  `json:"unit"`
}

// Violation is one DRC marker on the board.
type Violation struct {
	Type     any      `json:"type"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Run executes a full DRC pass. An empty reportPath skips the text
// report. This is one of the long-running commands.
func (s *DRCService) Run(ctx context.Context, reportPath string) (*DRCResult, error) {
	params := map[string]any{}
	if reportPath != "" {
		params["reportPath"] = reportPath
	}
	var reply struct {
		Summary        DRCSummary `json:"summary"`
		ViolationsFile string     `json:"violationsFile"`
		ReportPath     string     `json:"reportPath"`
	}
	resp, err := s.c.do(ctx, "run_drc", params, &reply)
	if err != nil {
		return nil, err
	}
	return &DRCResult{
		Message:        resp.Message,
		Summary:        reply.Summary,
		ViolationsFile: reply.ViolationsFile,
		ReportPath:     reply.ReportPath,
	}, nil
}

// Violations lists the board's current DRC markers, optionally filtered
// by severity ("all" when empty).
func (s *DRCService) Violations(ctx context.Context, severity string) ([]Violation, error) {
	if severity == "" {
		severity = "all"
	}
	params := map[string]any{"severity": severity}
	var reply struct {
		Violations []Violation `json:"violations"`
	}
	if _, err := s.c.do(ctx, "get_drc_violations", params, &reply); err != nil {
		return nil, err
	}
	return reply.Violations, nil
}
