package pyproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/yanissrairi/kicad-mcp-server/internal/log"
)

const (
	// stdoutChunkSize bounds a single read from the child's stdout.
	stdoutChunkSize = 16 * 1024

	// defaultGracePeriod is the time we wait after SIGTERM before sending SIGKILL.
	defaultGracePeriod = 5 * time.Second
)

// ErrProcessNotRunning is returned by WriteLine when no child handle exists,
// either because Start was never called or because the child has exited.
var ErrProcessNotRunning = errors.New("scripting process is not running")

// Config describes how to spawn the scripting process.
type Config struct {
	// Interpreter is the Python executable to run.
	Interpreter string
	// ScriptPath is the interface script passed as the first argument.
	ScriptPath string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// GracePeriod overrides the SIGTERM→SIGKILL wait. Zero means the default.
	GracePeriod time.Duration
}

// ChunkHandler receives raw stdout bytes in arrival order. It is called
// from a single goroutine, never concurrently.
type ChunkHandler func(chunk []byte)

// Process supervises one child scripting process.
type Process struct {
	cfg      Config
	onStdout ChunkHandler
	logger   *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exitCh chan error
	done   chan struct{}
}

// New creates a supervisor. onStdout must be non-nil; it is how protocol
// bytes reach the response assembler.
func New(cfg Config, onStdout ChunkHandler) *Process {
	return &Process{
		cfg:      cfg,
		onStdout: onStdout,
		logger:   log.WithComponent("pyproc"),
	}
}

// Start spawns the child with stdio pipes attached and begins pumping
// stdout and stderr. It fails if the process cannot be started; validating
// the interpreter and script up front is the doctor's job.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("scripting process already started")
	}

	cmd := exec.CommandContext(ctx, p.cfg.Interpreter, p.cfg.ScriptPath)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	// Context cancellation asks politely; Stop owns the SIGKILL escalation.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	p.logger.Info("starting scripting process",
		"interpreter", p.cfg.Interpreter,
		"script", p.cfg.ScriptPath)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.exitCh = make(chan error, 1)
	p.done = make(chan struct{})

	go p.pumpStdout(stdout)
	go p.pumpStderr(stderr)
	go p.waitForExit(cmd)

	return nil
}

// WriteLine appends a line terminator if needed and writes to the child's
// stdin. Returns ErrProcessNotRunning when no child handle exists.
func (p *Process) WriteLine(line []byte) error {
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()

	if stdin == nil {
		return ErrProcessNotRunning
	}

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	if _, err := stdin.Write(line); err != nil {
		return fmt.Errorf("write to scripting process: %w", err)
	}
	return nil
}

// Running reports whether a child handle currently exists.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// PID returns the child's process id, or 0 when nothing is running.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited returns a channel that delivers the child's exit error exactly
// once. A clean exit delivers nil. The channel is nil before Start.
func (p *Process) Exited() <-chan error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCh
}

// Stop terminates the child and clears the handle: SIGTERM first, SIGKILL
// after the grace period. Safe to call when nothing is running.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	cmd := p.cmd
	done := p.done
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}

	p.logger.Info("stopping scripting process")
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		p.logger.Warn("failed to send SIGTERM", "error", err)
	}

	grace := p.cfg.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case <-graceTimer.C:
		p.logger.Warn("scripting process did not exit after SIGTERM, sending SIGKILL")
		if err := cmd.Process.Kill(); err != nil {
			p.logger.Error("failed to send SIGKILL", "error", err)
		}
		<-done
		return nil
	}
}

// pumpStdout delivers protocol bytes to the chunk handler in arrival order.
func (p *Process) pumpStdout(r io.Reader) {
	buf := make([]byte, stdoutChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.onStdout(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Debug("stdout read ended", "error", err)
			}
			return
		}
	}
}

// pumpStderr logs the child's diagnostics. Stderr is never protocol-bearing.
func (p *Process) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		p.logger.Debug("child stderr", "line", scanner.Text())
	}
}

// waitForExit reaps the child, delivers the exit error, and clears the handle.
func (p *Process) waitForExit(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	exitCh := p.exitCh
	done := p.done
	p.cmd = nil
	p.stdin = nil
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("scripting process exited", "error", err)
	} else {
		p.logger.Info("scripting process exited cleanly")
	}

	exitCh <- err
	close(done)
}
