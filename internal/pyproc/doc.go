// Package pyproc owns the long-lived KiCAD Python scripting process.
//
// The supervisor spawns the child with stdio pipes attached and keeps the
// only handle to it. Requests go in as newline-terminated lines on stdin;
// stdout bytes are delivered to a chunk callback in arrival order and carry
// the protocol; stderr is diagnostics only and is logged line by line.
//
// Lifecycle:
//   - Start spawns the child and begins pumping stdout/stderr
//   - WriteLine appends a line terminator and writes to stdin
//   - Exited delivers the exit error exactly once when the child dies
//   - Stop sends SIGTERM, waits a grace period, then SIGKILLs
//
// The supervisor does not restart a crashed child and does not resolve or
// reject any in-flight call itself; the broker listens on Exited and owns
// that policy.
package pyproc
