package types

// TabularData holds a small column-oriented table attached to a tabular
// window. Rows are row-major; ragged rows are padded by the generator.
type TabularData struct {
	Title   string      `json:"title"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// ChartPoint is one sample of a 2-D series.
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChartData holds a single-series chart payload.
type ChartData struct {
	Title     string       `json:"title"`
	ChartType string       `json:"chart_type"` // "line", "scatter", "bar"
	XLabel    string       `json:"x_label"`
	YLabel    string       `json:"y_label"`
	Points    []ChartPoint `json:"points"`
}

// Point3D is one point of a cloud.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PointCloud holds a point-cloud payload.
type PointCloud struct {
	Title  string    `json:"title"`
	Points []Point3D `json:"points"`
}

// VolumetricMetrics holds a voxel grid's dimensions plus the raw sample
// values its summary statistics are derived from.
type VolumetricMetrics struct {
	Title   string    `json:"title"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Depth   int       `json:"depth"`
	Samples []float64 `json:"samples"`
}

// Model3D references an external 3-D asset by path plus its mesh summary.
type Model3D struct {
	Name        string `json:"name"`
	Format      string `json:"format"` // "obj", "usdz", "stl"
	SourcePath  string `json:"source_path"`
	VertexCount int    `json:"vertex_count"`
	FaceCount   int    `json:"face_count"`
}
