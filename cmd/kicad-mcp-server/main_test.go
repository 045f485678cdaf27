package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	interp := filepath.Join(dir, "python3")
	if err := os.WriteFile(interp, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "kicad_interface.py")
	if err := os.WriteFile(script, []byte("# stub\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	configYAML := `
service:
  name: test
  log_level: DEBUG
kicad:
  interpreter: ` + interp + `
  script: ` + script + `
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestRunCLIUnknownCommand(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"frobnicate"})
	})
	if code != 1 {
		t.Fatalf("runCLI() code = %d", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Fatalf("stderr missing unknown command: %s", stderr)
	}
}

func TestRunCLINoArgs(t *testing.T) {
	code, _, _ := captureOutputWithExitCode(t, func() int {
		return runCLI(nil)
	})
	if code != 1 {
		t.Fatalf("runCLI() code = %d", code)
	}
}

func TestRunDoctorValidConfig(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runDoctor([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runDoctor() code = %d, stderr: %s, stdout: %s", code, stderr, stdout)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("stdout missing validity line: %s", stdout)
	}
}

func TestRunDoctorJSON(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runDoctor([]string{"--config", configPath, "--json"})
	})
	if code != 0 {
		t.Fatalf("runDoctor() code = %d", code)
	}
	if !strings.Contains(stdout, `"valid": true`) {
		t.Fatalf("stdout not JSON report: %s", stdout)
	}
}

func TestRunDoctorMissingScript(t *testing.T) {
	configPath := writeTestConfig(t)
	dir := filepath.Dir(configPath)
	if err := os.Remove(filepath.Join(dir, "kicad_interface.py")); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runDoctor([]string{"--config", configPath})
	})
	if code != 1 {
		t.Fatalf("runDoctor() code = %d, stdout: %s", code, stdout)
	}
	if !strings.Contains(stdout, "kicad.script") {
		t.Fatalf("stdout missing script error: %s", stdout)
	}
}

func TestRunConfigLockWritesChecksums(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigNoun([]string{"lock", "--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "integrity hashes updated") {
		t.Fatalf("stdout missing success line: %s", stdout)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(configPath), ".checksums")); err != nil {
		t.Fatalf("expected .checksums to be written: %v", err)
	}
}

func TestRunConfigNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigNoun([]string{"lock", "--help"})
	})
	if code != 0 {
		t.Fatalf("runConfigNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: kicad-mcp-server config lock") {
		t.Fatalf("stdout missing action help usage: %s", stdout)
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runVersion(nil)
	})
	if code != 0 {
		t.Fatalf("runVersion() code = %d", code)
	}
	if !strings.Contains(stdout, "kicad-mcp-server") {
		t.Fatalf("stdout missing binary name: %s", stdout)
	}
}

func TestRunVersionJSON(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runVersion([]string{"--json"})
	})
	if code != 0 {
		t.Fatalf("runVersion() code = %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("stdout not JSON: %s", stdout)
	}
}

func TestPrintUsageListsCommands(t *testing.T) {
	_, stdout, _ := captureOutputWithExitCode(t, func() int {
		printUsage()
		return 0
	})
	for _, want := range []string{"serve", "doctor", "config lock", "version"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("usage missing %q: %s", want, stdout)
		}
	}
}
