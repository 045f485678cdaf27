package protocol

import (
	"encoding/json"
	"testing"
)

func TestAssembler_SplitDocument(t *testing.T) {
	// A response split into three chunks where only the concatenation of
	// all three is valid JSON must not complete early.
	var a Assembler

	chunks := [][]byte{
		[]byte(`{"success":true,"vio`),
		[]byte(`lations":[],"dur`),
		[]byte(`ationMs":412}`),
	}

	for i, chunk := range chunks[:2] {
		if doc, ok := a.Append(chunk); ok {
			t.Fatalf("chunk %d completed early with %s", i+1, doc)
		}
	}

	doc, ok := a.Append(chunks[2])
	if !ok {
		t.Fatal("document did not complete after final chunk")
	}

	var decoded struct {
		Success    bool `json:"success"`
		DurationMs int  `json:"durationMs"`
	}
	if err := json.Unmarshal(doc, &decoded); err != nil {
		t.Fatalf("completed document does not decode: %v", err)
	}
	if !decoded.Success || decoded.DurationMs != 412 {
		t.Errorf("decoded wrong value: %+v", decoded)
	}

	if a.Len() != 0 {
		t.Errorf("buffer not cleared after completion, %d bytes left", a.Len())
	}
}

func TestAssembler_SingleChunk(t *testing.T) {
	var a Assembler

	doc, ok := a.Append([]byte(`{"success":true}`))
	if !ok {
		t.Fatal("complete chunk should assemble immediately")
	}
	if string(doc) != `{"success":true}` {
		t.Errorf("unexpected document: %s", doc)
	}
}

func TestAssembler_WhitespaceOnly(t *testing.T) {
	var a Assembler

	if _, ok := a.Append([]byte("  \n\t")); ok {
		t.Fatal("whitespace must not complete a document")
	}
}

func TestAssembler_TrailingNewline(t *testing.T) {
	var a Assembler

	doc, ok := a.Append([]byte("{\"success\":true}\n"))
	if !ok {
		t.Fatal("document with trailing newline should assemble")
	}
	if string(doc) != `{"success":true}` {
		t.Errorf("surrounding whitespace should be trimmed, got %q", doc)
	}
}

func TestAssembler_ConcatenatedDocumentsStayIncomplete(t *testing.T) {
	// Two concatenated values are not one valid JSON document; the
	// assembler keeps buffering rather than guessing a boundary.
	var a Assembler

	if _, ok := a.Append([]byte(`{"success":true}{"success":false`)); ok {
		t.Fatal("concatenated documents must not be framed")
	}
}

func TestAssembler_Reset(t *testing.T) {
	var a Assembler

	a.Append([]byte(`{"partial`))
	a.Reset()
	if a.Len() != 0 {
		t.Fatal("Reset must clear the buffer")
	}

	// A fresh document after Reset assembles cleanly, unpolluted by the
	// discarded prefix.
	doc, ok := a.Append([]byte(`{"success":true}`))
	if !ok || string(doc) != `{"success":true}` {
		t.Fatalf("assembly after Reset failed: ok=%v doc=%s", ok, doc)
	}
}
