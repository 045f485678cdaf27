package tools

import "context"

// ExportService produces fabrication outputs. All exports are
// long-running commands.
type ExportService struct {
	c *Client
}

// GerberParams configure a gerber export.
type GerberParams struct {
	OutputDir           string   `json:"outputDir"`
	Layers              []string `json:"layers,omitempty"`
	UseProtelExtensions bool     `json:"useProtelExtensions,omitempty"`
	GenerateDrillFiles  bool     `json:"generateDrillFiles"`
	GenerateMapFile     bool     `json:"generateMapFile,omitempty"`
	UseAuxOrigin        bool     `json:"useAuxOrigin,omitempty"`
}

// GerberResult lists the files the export produced, grouped by kind.
type GerberResult struct {
	Gerbers []string `json:"gerbers"`
	Drill   []string `json:"drill"`
	Map     []string `json:"map"`
}

func (p GerberParams) validate() error {
	if p.OutputDir == "" {
		return &ParamError{Command: "export_gerber", Reason: "outputDir is required"}
	}
	return nil
}

// Gerber plots the board's layers as gerber files into OutputDir.
func (s *ExportService) Gerber(ctx context.Context, p GerberParams) (*GerberResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var reply struct {
		Files GerberResult `json:"files"`
	}
	if _, err := s.c.do(ctx, "export_gerber", p, &reply); err != nil {
		return nil, err
	}
	return &reply.Files, nil
}

// PDFParams configure a PDF export.
type PDFParams struct {
	OutputPath     string   `json:"outputPath"`
	Layers         []string `json:"layers,omitempty"`
	BlackAndWhite  bool     `json:"blackAndWhite,omitempty"`
	FrameReference bool     `json:"frameReference"`
	PageSize       string   `json:"pageSize,omitempty"`
}

func (p PDFParams) validate() error {
	if p.OutputPath == "" {
		return &ParamError{Command: "export_pdf", Reason: "outputPath is required"}
	}
	return nil
}

// PDF plots the selected layers into a single PDF document.
func (s *ExportService) PDF(ctx context.Context, p PDFParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, err := s.c.do(ctx, "export_pdf", p, nil)
	return err
}

// SVGParams configure an SVG export.
type SVGParams struct {
	OutputPath        string   `json:"outputPath"`
	Layers            []string `json:"layers,omitempty"`
	BlackAndWhite     bool     `json:"blackAndWhite,omitempty"`
	IncludeComponents bool     `json:"includeComponents"`
}

func (p SVGParams) validate() error {
	if p.OutputPath == "" {
		return &ParamError{Command: "export_svg", Reason: "outputPath is required"}
	}
	return nil
}

// SVG plots the selected layers as an SVG image.
func (s *ExportService) SVG(ctx context.Context, p SVGParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, err := s.c.do(ctx, "export_svg", p, nil)
	return err
}

// ThreeDParams configure a 3D model export. Format is STEP or VRML.
type ThreeDParams struct {
	OutputPath        string `json:"outputPath"`
	Format            string `json:"format,omitempty"`
	IncludeComponents bool   `json:"includeComponents"`
	IncludeCopper     bool   `json:"includeCopper"`
	IncludeSolderMask bool   `json:"includeSolderMask"`
	IncludeSilkscreen bool   `json:"includeSilkscreen"`
}

func (p ThreeDParams) validate() error {
	if p.OutputPath == "" {
		return &ParamError{Command: "export_3d", Reason: "outputPath is required"}
	}
	return nil
}

// ThreeD exports the board as a 3D model.
func (s *ExportService) ThreeD(ctx context.Context, p ThreeDParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, err := s.c.do(ctx, "export_3d", p, nil)
	return err
}

// BOMParams configure a bill-of-materials export. Format is CSV, XML,
// HTML, or JSON.
type BOMParams struct {
	OutputPath        string   `json:"outputPath"`
	Format            string   `json:"format,omitempty"`
	GroupByValue      bool     `json:"groupByValue"`
	IncludeAttributes []string `json:"includeAttributes,omitempty"`
}

func (p BOMParams) validate() error {
	if p.OutputPath == "" {
		return &ParamError{Command: "export_bom", Reason: "outputPath is required"}
	}
	return nil
}

// BOM exports the board's bill of materials.
func (s *ExportService) BOM(ctx context.Context, p BOMParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, err := s.c.do(ctx, "export_bom", p, nil)
	return err
}
