package broker

import "time"

const (
	// DefaultTimeout applies to every command not in the long-running set.
	DefaultTimeout = 30 * time.Second

	// LongTimeout applies to the export and validation commands, which walk
	// or render the whole board.
	LongTimeout = 10 * time.Minute
)

// longRunning is the fixed set of commands granted the extended deadline.
var longRunning = map[string]struct{}{
	"run_drc":              {},
	"export_gerber":        {},
	"export_pdf":           {},
	"export_svg":           {},
	"export_3d":            {},
	"export_bom":           {},
	"export_schematic_pdf": {},
	"generate_netlist":     {},
}

// Policy maps a command name to its deadline. The zero value uses the
// built-in defaults.
type Policy struct {
	Default time.Duration
	Long    time.Duration
}

// TimeoutFor returns the deadline for a command. It is a pure, total
// function of the command name: unknown commands always get the default.
func (p Policy) TimeoutFor(command string) time.Duration {
	d, l := p.Default, p.Long
	if d <= 0 {
		d = DefaultTimeout
	}
	if l <= 0 {
		l = LongTimeout
	}
	if _, ok := longRunning[command]; ok {
		return l
	}
	return d
}
