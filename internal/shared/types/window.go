package types

import "time"

// WindowType identifies the kind of content a window renders.
type WindowType string

const (
	WindowChart      WindowType = "chart"
	WindowSpatial    WindowType = "spatial_editor"
	WindowTabular    WindowType = "tabular"
	WindowVolumetric WindowType = "volumetric"
	WindowPointCloud WindowType = "pointcloud"
	WindowModel3D    WindowType = "model3d"
)

// AllWindowTypes lists every valid window type.
var AllWindowTypes = []WindowType{
	WindowChart,
	WindowSpatial,
	WindowTabular,
	WindowVolumetric,
	WindowPointCloud,
	WindowModel3D,
}

// ParseWindowType maps a string to a known window type.
// Unknown strings return false; callers treat those cells/requests as
// having no window affinity.
func ParseWindowType(s string) (WindowType, bool) {
	t := WindowType(s)
	for _, known := range AllWindowTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// ExportTemplate selects the flavor of code generated into a notebook cell.
type ExportTemplate string

const (
	TemplatePlain      ExportTemplate = "plain"
	TemplatePandas     ExportTemplate = "pandas"
	TemplatePlotly     ExportTemplate = "plotly"
	TemplateNumPy      ExportTemplate = "numpy"
	TemplateVolumetric ExportTemplate = "volumetric"
	TemplateModel      ExportTemplate = "model3d"
)

// Position places a window in the scene. Depth is optional for flat panes.
type Position struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Z      float64  `json:"z"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Depth  *float64 `json:"depth,omitempty"`
}

// WindowState is the mutable bag of per-window settings and at most one
// typed payload matching the window's type. An inapplicable payload is
// ignored by content generation rather than rejected.
type WindowState struct {
	Minimized    bool           `json:"minimized"`
	Maximized    bool           `json:"maximized"`
	Opacity      float64        `json:"opacity"`
	Content      string         `json:"content"`
	Template     ExportTemplate `json:"export_template"`
	Tags         []string       `json:"tags"`
	LastModified time.Time      `json:"last_modified"`

	Tabular    *TabularData       `json:"tabular,omitempty"`
	Chart      *ChartData         `json:"chart,omitempty"`
	PointCloud *PointCloud        `json:"pointcloud,omitempty"`
	Volumetric *VolumetricMetrics `json:"volumetric,omitempty"`
	Model      *Model3D           `json:"model,omitempty"`
}

// WindowRecord is the unit of persisted state for one visual pane.
type WindowRecord struct {
	ID        int         `json:"id"`
	Type      WindowType  `json:"window_type"`
	Position  Position    `json:"position"`
	State     WindowState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
}

// RegistryStats summarizes the registry for health and metrics endpoints.
type RegistryStats struct {
	TotalWindows int            `json:"total_windows"`
	OpenWindows  int            `json:"open_windows"`
	NextID       int            `json:"next_id"`
	ByType       map[string]int `json:"by_type"`
}
