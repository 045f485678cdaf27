package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yanissrairi/kicad-mcp-server/internal/log"
	"github.com/yanissrairi/kicad-mcp-server/internal/pyproc"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR") // Suppress logs in tests
	os.Exit(m.Run())
}

// fakeChild implements Child and records every line the broker writes.
type fakeChild struct {
	mu      sync.Mutex
	running bool
	writes  [][]byte
	exitCh  chan error
	onWrite func(line []byte)
}

func newFakeChild() *fakeChild {
	return &fakeChild{running: true, exitCh: make(chan error, 1)}
}

func (f *fakeChild) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeChild) WriteLine(line []byte) error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return pyproc.ErrProcessNotRunning
	}
	cp := make([]byte, len(line))
	copy(cp, line)
	f.writes = append(f.writes, cp)
	onWrite := f.onWrite
	f.mu.Unlock()

	if onWrite != nil {
		go onWrite(cp)
	}
	return nil
}

func (f *fakeChild) Exited() <-chan error {
	return f.exitCh
}

func (f *fakeChild) crash(err error) {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	f.exitCh <- err
}

func (f *fakeChild) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeChild) lastWrite() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return ""
	}
	return string(f.writes[len(f.writes)-1])
}

func startBroker(t *testing.T, child *fakeChild, opts ...Option) *Broker {
	t.Helper()
	b := New(opts...)
	b.Start(child)
	t.Cleanup(b.Stop)
	return b
}

func TestSubmit_ResolutionsInSubmissionOrder(t *testing.T) {
	child := newFakeChild()

	var completed []string
	var completedMu sync.Mutex
	b := startBroker(t, child, WithCompletionHook(func(c Completion) {
		completedMu.Lock()
		completed = append(completed, c.Command)
		completedMu.Unlock()
	}))

	// Echo child: answer each request with its own index, after a little
	// scheduling jitter.
	child.mu.Lock()
	child.onWrite = func(line []byte) {
		var req struct {
			Params struct {
				Index int `json:"index"`
			} `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			t.Errorf("child received bad request line: %v", err)
			return
		}
		time.Sleep(time.Duration(req.Params.Index%3) * time.Millisecond)
		b.HandleChunk(fmt.Appendf(nil, `{"success":true,"index":%d}`, req.Params.Index))
	}
	child.mu.Unlock()

	const n = 8
	results := make([]json.RawMessage, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.Submit(context.Background(), fmt.Sprintf("echo_%d", i), map[string]any{"index": i})
		}(i)
		// Space the launches so the submission order is well-defined; the
		// broker must then preserve it regardless of response jitter.
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("submit %d failed: %v", i, errs[i])
		}
		var decoded struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(results[i], &decoded); err != nil {
			t.Fatalf("submit %d bad result: %v", i, err)
		}
		if decoded.Index != i {
			t.Errorf("submit %d received response for %d", i, decoded.Index)
		}
	}

	completedMu.Lock()
	defer completedMu.Unlock()
	for i, cmd := range completed {
		if want := fmt.Sprintf("echo_%d", i); cmd != want {
			t.Errorf("completion %d was %s, want %s", i, cmd, want)
		}
	}
}

func TestSubmit_NoChildRejectsWithoutWriting(t *testing.T) {
	child := newFakeChild()
	child.running = false
	b := startBroker(t, child)

	_, err := b.Submit(context.Background(), "get_board_info", nil)
	if !errors.Is(err, pyproc.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning, got %v", err)
	}
	if child.writeCount() != 0 {
		t.Errorf("no bytes may be written, got %d writes", child.writeCount())
	}
}

func TestSubmit_BeforeStartRejects(t *testing.T) {
	b := New()
	_, err := b.Submit(context.Background(), "get_board_info", nil)
	if !errors.Is(err, pyproc.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning, got %v", err)
	}
}

func TestTimeoutPolicy_ArmedValues(t *testing.T) {
	var p Policy
	if got := p.TimeoutFor("run_drc"); got != 600000*time.Millisecond {
		t.Errorf("run_drc armed with %s, want 600000ms", got)
	}
	if got := p.TimeoutFor("get_board_info"); got != 30000*time.Millisecond {
		t.Errorf("get_board_info armed with %s, want 30000ms", got)
	}
	// Total: unknown commands always resolve to the default.
	if got := p.TimeoutFor("no_such_command"); got != DefaultTimeout {
		t.Errorf("unknown command armed with %s, want default", got)
	}
}

func TestDispatch_CarriesArmedTimeoutOnWire(t *testing.T) {
	child := newFakeChild()
	b := startBroker(t, child)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Abandon the wait; the armed value is inspected, not waited out.
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, _ = b.Submit(ctx, "run_drc", nil)

	if !strings.Contains(child.lastWrite(), `"timeout":600000`) {
		t.Errorf("run_drc wire request missing extended timeout: %s", child.lastWrite())
	}
}

func TestSubmit_ChunkedResponseResolvesOnlyWhenComplete(t *testing.T) {
	child := newFakeChild()
	b := startBroker(t, child)

	done := make(chan struct{})
	var doc json.RawMessage
	var submitErr error
	go func() {
		doc, submitErr = b.Submit(context.Background(), "get_board_info", nil)
		close(done)
	}()

	// Wait for the dispatch to reach the child.
	waitFor(t, func() bool { return child.writeCount() == 1 })

	b.HandleChunk([]byte(`{"success":true,"boa`))
	assertStillPending(t, done, "after chunk 1")
	b.HandleChunk([]byte(`rd":{"name":"a`))
	assertStillPending(t, done, "after chunk 2")
	b.HandleChunk([]byte(`mp"}}`))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("call did not resolve after final chunk")
	}
	if submitErr != nil {
		t.Fatalf("submit failed: %v", submitErr)
	}
	var decoded struct {
		Board struct {
			Name string `json:"name"`
		} `json:"board"`
	}
	if err := json.Unmarshal(doc, &decoded); err != nil || decoded.Board.Name != "amp" {
		t.Errorf("wrong decoded value: %s (err %v)", doc, err)
	}
}

func TestTimeout_RejectsAndResumesDraining(t *testing.T) {
	child := newFakeChild()
	b := startBroker(t, child, WithPolicy(Policy{Default: 50 * time.Millisecond}))

	firstDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "get_board_info", nil)
		firstDone <- err
	}()
	waitFor(t, func() bool { return child.writeCount() == 1 })

	secondDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "get_layer_list", nil)
		secondDone <- err
	}()

	// First call times out; nothing ever answered it.
	var terr *TimeoutError
	select {
	case err := <-firstDone:
		if !errors.As(err, &terr) {
			t.Fatalf("expected TimeoutError, got %v", err)
		}
		if terr.Command != "get_board_info" || terr.Timeout != 50*time.Millisecond {
			t.Errorf("wrong timeout error: %+v", terr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first call never timed out")
	}

	// The queued call must be written promptly after the timeout fired.
	waitFor(t, func() bool { return child.writeCount() == 2 })
	if !strings.Contains(child.lastWrite(), `"command":"get_layer_list"`) {
		t.Errorf("second dispatch has wrong command: %s", child.lastWrite())
	}

	// And the broker still works: answer it.
	b.HandleChunk([]byte(`{"success":true,"layers":[]}`))
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second call failed after timeout recovery: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second call never resolved")
	}
}

func TestCrash_RejectsPendingAndQueued(t *testing.T) {
	child := newFakeChild()
	b := startBroker(t, child)

	pendingDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "export_gerber", nil)
		pendingDone <- err
	}()
	waitFor(t, func() bool { return child.writeCount() == 1 })

	queuedDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "get_board_info", nil)
		queuedDone <- err
	}()
	// Let the second submission reach the queue before the crash.
	time.Sleep(20 * time.Millisecond)

	child.crash(errors.New("exit status 2"))

	for name, ch := range map[string]chan error{"pending": pendingDone, "queued": queuedDone} {
		select {
		case err := <-ch:
			var cerr *CrashError
			if !errors.As(err, &cerr) {
				t.Errorf("%s call: expected CrashError, got %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s call was never rejected after crash", name)
		}
	}

	// The broker itself survives; submissions are refused at the gate.
	_, err := b.Submit(context.Background(), "get_board_info", nil)
	if !errors.Is(err, pyproc.ErrProcessNotRunning) {
		t.Errorf("post-crash submit: expected ErrProcessNotRunning, got %v", err)
	}
}

func TestStop_RejectsPendingAndQueued(t *testing.T) {
	child := newFakeChild()
	b := New()
	b.Start(child)

	pendingDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "export_pdf", nil)
		pendingDone <- err
	}()
	waitFor(t, func() bool { return child.writeCount() == 1 })

	queuedDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "save_project", nil)
		queuedDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	b.Stop()

	for name, ch := range map[string]chan error{"pending": pendingDone, "queued": queuedDone} {
		select {
		case err := <-ch:
			if !errors.Is(err, ErrClosed) {
				t.Errorf("%s call: expected ErrClosed, got %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s call left waiting after Stop", name)
		}
	}

	if _, err := b.Submit(context.Background(), "get_board_info", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("submit after Stop: expected ErrClosed, got %v", err)
	}
}

func TestSubmit_SecondCallWaitsForFirst(t *testing.T) {
	child := newFakeChild()
	b := startBroker(t, child)

	firstDone := make(chan json.RawMessage, 1)
	go func() {
		doc, err := b.Submit(context.Background(), "create_project", map[string]any{"projectName": "x"})
		if err != nil {
			t.Errorf("create_project failed: %v", err)
		}
		firstDone <- doc
	}()
	waitFor(t, func() bool { return child.writeCount() == 1 })

	secondDone := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "get_project_info", nil)
		secondDone <- err
	}()
	time.Sleep(10 * time.Millisecond)

	if child.writeCount() != 1 {
		t.Fatalf("second request written while first still pending: %d writes", child.writeCount())
	}

	// Child answers the first after a short delay.
	time.Sleep(10 * time.Millisecond)
	b.HandleChunk([]byte(`{"success":true}`))

	select {
	case doc := <-firstDone:
		if string(doc) != `{"success":true}` {
			t.Errorf("first call resolved to %s", doc)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first call never resolved")
	}

	waitFor(t, func() bool { return child.writeCount() == 2 })
	b.HandleChunk([]byte(`{"success":true,"project":null}`))
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second call never resolved")
	}
}

func TestHook_ReportsStatuses(t *testing.T) {
	child := newFakeChild()

	var completions []Completion
	var mu sync.Mutex
	b := startBroker(t, child,
		WithPolicy(Policy{Default: 30 * time.Millisecond}),
		WithCompletionHook(func(c Completion) {
			mu.Lock()
			completions = append(completions, c)
			mu.Unlock()
		}))

	// One resolved, one timed out.
	done := make(chan struct{})
	go func() {
		_, _ = b.Submit(context.Background(), "get_board_info", nil)
		close(done)
	}()
	waitFor(t, func() bool { return child.writeCount() == 1 })
	b.HandleChunk([]byte(`{"success":true}`))
	<-done

	timedOut := make(chan struct{})
	go func() {
		_, _ = b.Submit(context.Background(), "get_layer_list", nil)
		close(timedOut)
	}()
	<-timedOut

	mu.Lock()
	defer mu.Unlock()
	if len(completions) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(completions))
	}
	if completions[0].Status != StatusResolved {
		t.Errorf("first completion status = %s", completions[0].Status)
	}
	if completions[1].Status != StatusTimeout {
		t.Errorf("second completion status = %s", completions[1].Status)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never held")
}

func assertStillPending(t *testing.T, done chan struct{}, when string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("call resolved early %s", when)
	case <-time.After(30 * time.Millisecond):
	}
}
