package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/yanissrairi/kicad-mcp-server/internal/log"
	"github.com/yanissrairi/kicad-mcp-server/internal/protocol"
	"github.com/yanissrairi/kicad-mcp-server/internal/pyproc"
)

// Child is the narrow view of the process supervisor the broker drives.
// No other component may write to the child.
type Child interface {
	Running() bool
	WriteLine(line []byte) error
	Exited() <-chan error
}

// Completion statuses reported to the completion hook.
const (
	StatusResolved   = "resolved"
	StatusTimeout    = "timeout"
	StatusCrash      = "crash"
	StatusWriteError = "write_error"
	StatusRejected   = "rejected"
)

// Completion describes how one submitted command ended.
type Completion struct {
	Command  string
	Status   string
	Duration time.Duration
	Err      error
}

// CompletionHook observes every settled call. It runs on the broker's
// worker goroutine, so it must not submit commands.
type CompletionHook func(Completion)

type result struct {
	doc json.RawMessage
	err error
}

// call pairs a request with the channel its caller is waiting on.
type call struct {
	req        *protocol.Request
	enqueuedAt time.Time
	resultCh   chan result // buffered, worker never blocks on it
}

// Broker is the public entry point for driving the scripting process.
type Broker struct {
	policy Policy
	hook   CompletionHook
	logger *slog.Logger

	submitCh chan *call
	chunkCh  chan []byte
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	child   Child
	started bool
}

// Option configures the broker.
type Option func(*Broker)

// WithPolicy overrides the timeout policy.
func WithPolicy(p Policy) Option {
	return func(b *Broker) {
		b.policy = p
	}
}

// WithCompletionHook registers an observer for settled calls.
func WithCompletionHook(hook CompletionHook) Option {
	return func(b *Broker) {
		b.hook = hook
	}
}

// New creates a broker. Wire HandleChunk into the supervisor's stdout
// before starting the child, then call Start.
func New(opts ...Option) *Broker {
	b := &Broker{
		logger:   log.WithComponent("broker"),
		submitCh: make(chan *call),
		chunkCh:  make(chan []byte, 64),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleChunk feeds raw stdout bytes from the supervisor into the broker.
// It matches pyproc.ChunkHandler.
func (b *Broker) HandleChunk(chunk []byte) {
	select {
	case b.chunkCh <- chunk:
	case <-b.stopCh:
	}
}

// Start binds the broker to a running child and launches the worker that
// owns all queue and pending-call state.
func (b *Broker) Start(child Child) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.child = child
	b.started = true
	go b.run(child)
}

// Stop rejects the pending call and everything queued with ErrClosed, then
// shuts the worker down. It does not touch the child process itself.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if started {
		<-b.doneCh
	}
}

// Submit queues one command and blocks until it settles. Results come back
// in exactly submission order because at most one request is ever in
// flight. A done ctx abandons the wait only; the call itself still runs to
// completion inside the broker.
func (b *Broker) Submit(ctx context.Context, command string, params any) (json.RawMessage, error) {
	select {
	case <-b.stopCh:
		return nil, ErrClosed
	default:
	}

	b.mu.Lock()
	child := b.child
	b.mu.Unlock()
	if child == nil || !child.Running() {
		return nil, pyproc.ErrProcessNotRunning
	}

	if params == nil {
		params = map[string]any{}
	}
	timeout := b.policy.TimeoutFor(command)
	c := &call{
		req: &protocol.Request{
			Command: command,
			Params:  params,
			Timeout: int(timeout / time.Millisecond),
		},
		enqueuedAt: time.Now(),
		resultCh:   make(chan result, 1),
	}

	select {
	case b.submitCh <- c:
	case <-b.stopCh:
		return nil, ErrClosed
	}

	select {
	case r := <-c.resultCh:
		return r.doc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the single logical thread of control: it alone mutates the queue,
// the pending call, the response buffer, and the deadline timer. Completion
// never dispatches recursively — the next drain happens on the next loop
// turn, which also gives racing submissions a chance to enqueue.
func (b *Broker) run(child Child) {
	defer close(b.doneCh)

	var (
		queue   []*call
		pending *call
		asm     protocol.Assembler
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	exitCh := child.Exited()

	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerCh = nil
		}
	}

	// settle is the only completion path: disarm, clear buffer, deliver,
	// notify. Exactly once per call.
	settle := func(c *call, status string, doc json.RawMessage, err error) {
		disarm()
		asm.Reset()
		c.resultCh <- result{doc: doc, err: err}
		if b.hook != nil {
			b.hook(Completion{
				Command:  c.req.Command,
				Status:   status,
				Duration: time.Since(c.enqueuedAt),
				Err:      err,
			})
		}
	}

	// dispatch is the only place that writes to the child.
	dispatch := func(c *call) {
		asm.Reset()
		var buf bytes.Buffer
		if err := protocol.EncodeRequest(&buf, c.req); err != nil {
			settle(c, StatusWriteError, nil, err)
			return
		}
		if err := child.WriteLine(buf.Bytes()); err != nil {
			b.logger.Error("write to child failed", "command", c.req.Command, "error", err)
			settle(c, StatusWriteError, nil, err)
			return
		}
		timeout := time.Duration(c.req.Timeout) * time.Millisecond
		timer = time.NewTimer(timeout)
		timerCh = timer.C
		pending = c
		b.logger.Debug("dispatched command", "command", c.req.Command, "timeout", timeout)
	}

	for {
		// Drain step: idle with work queued.
		if pending == nil && len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			dispatch(next)
			continue
		}

		select {
		case c := <-b.submitCh:
			queue = append(queue, c)

		case chunk := <-b.chunkCh:
			if pending == nil {
				// Startup banners and the like; nothing is waiting.
				b.logger.Debug("discarding stdout bytes with no call pending", "bytes", len(chunk))
				continue
			}
			doc, ok := asm.Append(chunk)
			if !ok {
				continue
			}
			c := pending
			pending = nil
			settle(c, StatusResolved, doc, nil)

		case <-timerCh:
			c := pending
			pending = nil
			timer = nil
			timerCh = nil
			timeout := time.Duration(c.req.Timeout) * time.Millisecond
			b.logger.Warn("command timed out", "command", c.req.Command, "timeout", timeout)
			settle(c, StatusTimeout, nil, &TimeoutError{Command: c.req.Command, Timeout: timeout})

		case err := <-exitCh:
			exitCh = nil
			if pending != nil {
				c := pending
				pending = nil
				settle(c, StatusCrash, nil, &CrashError{Command: c.req.Command, Err: err})
			}
			for _, c := range queue {
				settle(c, StatusCrash, nil, &CrashError{Command: c.req.Command, Err: err})
			}
			queue = nil

		case <-b.stopCh:
			if pending != nil {
				c := pending
				pending = nil
				settle(c, StatusRejected, nil, ErrClosed)
			}
			for _, c := range queue {
				settle(c, StatusRejected, nil, ErrClosed)
			}
			return
		}
	}
}
