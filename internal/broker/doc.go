// Package broker serializes concurrent command submissions into a single
// in-flight request against the scripting process.
//
// Callers hand Submit a command name and params and block until the child
// answers, the per-command deadline fires, or the process dies. The broker
// owns the FIFO queue, the one pending call, and the response buffer; all
// three are mutated only by the worker goroutine, so ordering falls out of
// the structure rather than of locks:
//
//   - at most one request is ever in flight
//   - results are delivered in exactly submission order
//   - completion re-drains the queue on the next loop turn, never recursively
//
// Error policy:
//   - no live child at submit time → pyproc.ErrProcessNotRunning, nothing
//     is enqueued or written
//   - deadline elapsed → *TimeoutError; the child-side operation keeps
//     running unobserved
//   - child exit → *CrashError for the pending call and every queued call
//   - Stop → ErrClosed for the pending call and every queued call
//
// No error is fatal to the broker itself: it keeps accepting submits after
// every error path (they are rejected at the gate while no child runs).
// Business-level retries and process restart are the caller's concern.
package broker
