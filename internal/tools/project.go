package tools

import "context"

// ProjectService manages KiCAD project files.
type ProjectService struct {
	c *Client
}

// ProjectInfo describes a project as the child reports it.
type ProjectInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	BoardPath     string `json:"boardPath,omitempty"`
	SchematicPath string `json:"schematicPath,omitempty"`
}

// CreateProjectParams name a new project. Name is required; Path defaults
// to the child's working directory and Template is optional.
type CreateProjectParams struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	Template string `json:"template,omitempty"`
}

func (p CreateProjectParams) validate() error {
	if p.Name == "" {
		return &ParamError{Command: "create_project", Reason: "name is required"}
	}
	return nil
}

// openProjectParams carry the filename for open_project. They exist so
// Invoke can validate the command the same way Open does.
type openProjectParams struct {
	Filename string `json:"filename"`
}

func (p openProjectParams) validate() error {
	if p.Filename == "" {
		return &ParamError{Command: "open_project", Reason: "filename is required"}
	}
	return nil
}

// Create creates a new project with a fresh board and schematic.
func (s *ProjectService) Create(ctx context.Context, p CreateProjectParams) (*ProjectInfo, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var reply struct {
		Project ProjectInfo `json:"project"`
	}
	if _, err := s.c.do(ctx, "create_project", p, &reply); err != nil {
		return nil, err
	}
	return &reply.Project, nil
}

// Open loads an existing project file.
func (s *ProjectService) Open(ctx context.Context, filename string) (*ProjectInfo, error) {
	p := openProjectParams{Filename: filename}
	if err := p.validate(); err != nil {
		return nil, err
	}
	var reply struct {
		Project ProjectInfo `json:"project"`
	}
	params := map[string]any{"filename": filename}
	if _, err := s.c.do(ctx, "open_project", params, &reply); err != nil {
		return nil, err
	}
	return &reply.Project, nil
}

// Save writes the current project to disk. An empty filename saves in
// place.
func (s *ProjectService) Save(ctx context.Context, filename string) error {
	params := map[string]any{}
	if filename != "" {
		params["filename"] = filename
	}
	_, err := s.c.do(ctx, "save_project", params, nil)
	return err
}

// Info returns metadata about the currently loaded project.
func (s *ProjectService) Info(ctx context.Context) (*ProjectInfo, error) {
	var reply struct {
		Project ProjectInfo `json:"project"`
	}
	if _, err := s.c.do(ctx, "get_project_info", nil, &reply); err != nil {
		return nil, err
	}
	return &reply.Project, nil
}
