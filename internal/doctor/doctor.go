// Package doctor validates kicad-mcp-server configuration and the local
// KiCAD Python environment before the service starts.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yanissrairi/kicad-mcp-server/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against the host environment.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateInterpreter(r)
	d.validateScript(r)
	d.validateJournal(r)
	d.validateAPIConfig(r)
	d.warnTimeouts(r)
	d.warnEnvOverride(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateInterpreter checks that the Python interpreter is resolvable and
// executable.
func (d *Doctor) validateInterpreter(r *Result) {
	interp := d.cfg.KiCAD.Interpreter
	if interp == "" {
		d.addError(r, "kicad", "kicad.interpreter", "kicad.interpreter is required")
		return
	}

	if strings.ContainsRune(interp, os.PathSeparator) {
		info, err := os.Stat(interp)
		if err != nil {
			d.addError(r, "kicad", "kicad.interpreter",
				fmt.Sprintf("interpreter %q not found: %v", interp, err))
			return
		}
		if info.IsDir() {
			d.addError(r, "kicad", "kicad.interpreter",
				fmt.Sprintf("interpreter %q is a directory", interp))
			return
		}
		if info.Mode()&0o111 == 0 {
			d.addError(r, "kicad", "kicad.interpreter",
				fmt.Sprintf("interpreter %q is not executable", interp))
		}
		return
	}

	if _, err := exec.LookPath(interp); err != nil {
		d.addError(r, "kicad", "kicad.interpreter",
			fmt.Sprintf("interpreter %q not found in PATH", interp))
	}
}

// validateScript checks that the KiCAD interface script exists.
func (d *Doctor) validateScript(r *Result) {
	script := d.cfg.KiCAD.Script
	if script == "" {
		d.addError(r, "kicad", "kicad.script", "kicad.script is required")
		return
	}
	info, err := os.Stat(script)
	if err != nil {
		d.addError(r, "kicad", "kicad.script",
			fmt.Sprintf("script %q not found: %v", script, err))
		return
	}
	if info.IsDir() {
		d.addError(r, "kicad", "kicad.script",
			fmt.Sprintf("script %q is a directory", script))
	}
}

// validateJournal checks that the journal's parent directory is usable.
func (d *Doctor) validateJournal(r *Result) {
	if d.cfg.Journal.Path == "" {
		return
	}
	dir := filepath.Dir(d.cfg.Journal.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			d.addWarning(r, "journal", "journal.path",
				fmt.Sprintf("journal directory %q does not exist yet (will be created)", dir))
			return
		}
		d.addError(r, "journal", "journal.path",
			fmt.Sprintf("stat journal directory %q: %v", dir, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "journal", "journal.path",
			fmt.Sprintf("journal parent %q is not a directory", dir))
	}
}

// validateAPIConfig checks API server settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key", "API enabled but no authentication configured")
	}
}

// warnTimeouts flags unusual timeout settings.
func (d *Doctor) warnTimeouts(r *Result) {
	def := d.cfg.Broker.DefaultTimeout
	long := d.cfg.Broker.LongTimeout
	if def > 0 && def < time.Second {
		d.addWarning(r, "broker", "broker.default_timeout",
			fmt.Sprintf("default timeout %s is very short (< 1s)", def))
	}
	if def > 0 && long > 0 && long < def {
		d.addWarning(r, "broker", "broker.long_timeout",
			fmt.Sprintf("long timeout %s is shorter than default timeout %s", long, def))
	}
}

// warnEnvOverride notes when the interpreter comes from the environment
// rather than the config file.
func (d *Doctor) warnEnvOverride(r *Result) {
	if v := os.Getenv(config.InterpreterEnvVar); v != "" {
		d.addWarning(r, "kicad", "kicad.interpreter",
			fmt.Sprintf("%s is set; configured interpreter is overridden by %q", config.InterpreterEnvVar, v))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
