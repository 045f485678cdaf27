package tools

import "context"

// BoardService inspects and edits the loaded board.
type BoardService struct {
	c *Client
}

// Layer is one enabled board layer.
type Layer struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   int    `json:"id"`
}

// BoardSize is the board outline's bounding box.
type BoardSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// BoardInfo summarizes the loaded board.
type BoardInfo struct {
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Size     BoardSize `json:"size"`
	Layers   []Layer   `json:"layers"`
}

// Info returns the loaded board's filename, title, size, and layers.
func (s *BoardService) Info(ctx context.Context) (*BoardInfo, error) {
	var reply struct {
		Board BoardInfo `json:"board"`
	}
	if _, err := s.c.do(ctx, "get_board_info", nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Board, nil
}

// boardSizeParams are the wire parameters of set_board_size.
type boardSizeParams struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
}

func (p boardSizeParams) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return &ParamError{Command: "set_board_size", Reason: "width and height must be positive"}
	}
	return nil
}

// SetSize creates a rectangular board outline. Unit defaults to mm.
func (s *BoardService) SetSize(ctx context.Context, width, height float64, unit string) (*BoardSize, error) {
	if err := (boardSizeParams{Width: width, Height: height}).validate(); err != nil {
		return nil, err
	}
	if unit == "" {
		unit = "mm"
	}
	params := map[string]any{
		"width":  width,
		"height": height,
		"unit":   unit,
	}
	var reply struct {
		Size BoardSize `json:"size"`
	}
	if _, err := s.c.do(ctx, "set_board_size", params, &reply); err != nil {
		return nil, err
	}
	return &reply.Size, nil
}

// Layers lists the enabled layers of the loaded board.
func (s *BoardService) Layers(ctx context.Context) ([]Layer, error) {
	var reply struct {
		Layers []Layer `json:"layers"`
	}
	if _, err := s.c.do(ctx, "get_layer_list", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Layers, nil
}
