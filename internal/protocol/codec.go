package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeRequest serializes a Request as a single newline-terminated JSON
// line and writes it to w. Returns an error if marshaling or writing fails.
func EncodeRequest(w io.Writer, req *Request) error {
	if req.Command == "" {
		return fmt.Errorf("request has no command")
	}
	if req.Timeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %d", req.Timeout)
	}

	// json.Encoder terminates each value with '\n', which is exactly the
	// wire format the child reads.
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(req); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return nil
}

// ParseResponse validates a complete response document.
// Returns an error if the document is not a JSON object or lacks the
// required success field.
func ParseResponse(raw json.RawMessage) (*Response, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	if _, ok := probe["success"]; !ok {
		return nil, fmt.Errorf("response missing required field: success")
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// If the command failed, the child is expected to say why.
	if !resp.Success && resp.Message == "" {
		return nil, fmt.Errorf("response has success=false but no message")
	}

	resp.Raw = raw
	return &resp, nil
}
