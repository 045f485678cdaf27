package protocol

import (
	"bytes"
	"encoding/json"
)

// Assembler reassembles response documents from an unframed byte stream.
//
// The child writes no length prefix and no terminator: the only framing
// signal is that the accumulated buffer parses as one complete JSON value.
// A chunk that does not yet parse is treated as incomplete, never as
// malformed, and is retained for the next chunk. This relies on the child
// emitting at most one document per request cycle; a document whose proper
// prefix is itself valid JSON would be misframed, which is a known limit
// of the wire protocol, not of this implementation.
//
// Assembler is not safe for concurrent use. The broker owns exactly one
// instance, scoped to the in-flight request, and resets it on every
// completion path.
type Assembler struct {
	buf bytes.Buffer
}

// Append adds a chunk to the buffer and attempts to recognize one complete
// document. On success it returns the document and resets the buffer.
func (a *Assembler) Append(chunk []byte) (json.RawMessage, bool) {
	a.buf.Write(chunk)

	data := a.buf.Bytes()
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	if !json.Valid(data) {
		return nil, false
	}

	doc := make(json.RawMessage, len(data))
	copy(doc, data)
	a.buf.Reset()
	return bytes.TrimSpace(doc), true
}

// Reset discards any partially accumulated bytes.
func (a *Assembler) Reset() {
	a.buf.Reset()
}

// Len reports the number of buffered bytes awaiting completion.
func (a *Assembler) Len() int {
	return a.buf.Len()
}
