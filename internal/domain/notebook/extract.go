package notebook

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// Payload recovery is heuristic by design: the source text is generated
// code, not a schema. Each window type owns an ordered matcher list; the
// first matcher whose trigger pattern hits runs its reconstruction, and
// a miss on every matcher simply leaves the record payload-free. New
// heuristics are added by appending matchers, never by touching the
// existing ones.

type matcher struct {
	trigger *regexp.Regexp
	rebuild func(source string, st *types.WindowState)
}

var (
	titleRe     = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	columnRe    = regexp.MustCompile(`"([^"]+)":\s*\[([^\]]*)\]`)
	scatterRe   = regexp.MustCompile(`go\.Scatter\(x=\[([^\]]*)\], y=\[([^\]]*)\], mode="([^"]*)"`)
	layoutRe    = regexp.MustCompile(`fig\.update_layout\(title="([^"]*)", xaxis_title="([^"]*)", yaxis_title="([^"]*)"\)`)
	point3Re    = regexp.MustCompile(`\[\s*([0-9.eE+-]+),\s*([0-9.eE+-]+),\s*([0-9.eE+-]+)\s*\]`)
	volumeRe    = regexp.MustCompile(`(?m)^#\s*volume:\s*(\d+)x(\d+)x(\d+)$`)
	samplesRe   = regexp.MustCompile(`samples = np\.array\(\[([^\]]*)\]\)`)
	meshRe      = regexp.MustCompile(`(?m)^#\s*format:\s*(\w+)\s+vertices:\s*(\d+)\s+faces:\s*(\d+)$`)
	modelPathRe = regexp.MustCompile(`Path\("([^"]+)"\)`)
)

var extractors = map[types.WindowType][]matcher{
	types.WindowTabular: {
		{
			trigger: regexp.MustCompile(`pd\.DataFrame\(`),
			rebuild: rebuildTabular,
		},
	},
	types.WindowChart: {
		{
			trigger: regexp.MustCompile(`go\.Scatter\(`),
			rebuild: rebuildChart,
		},
		{
			// Matplotlib notebooks from outside: title only.
			trigger: regexp.MustCompile(`plt\.plot\(`),
			rebuild: func(source string, st *types.WindowState) {
				st.Chart = &types.ChartData{Title: recoverTitle(source), ChartType: "line"}
			},
		},
	},
	types.WindowPointCloud: {
		{
			trigger: regexp.MustCompile(`np\.array\(\[`),
			rebuild: rebuildPointCloud,
		},
	},
	types.WindowVolumetric: {
		{
			trigger: volumeRe,
			rebuild: rebuildVolumetric,
		},
	},
	types.WindowModel3D: {
		{
			trigger: meshRe,
			rebuild: rebuildModel,
		},
		{
			// Degraded cell that kept only the path line.
			trigger: modelPathRe,
			rebuild: func(source string, st *types.WindowState) {
				m := modelPathRe.FindStringSubmatch(source)
				st.Model = &types.Model3D{Name: recoverTitle(source), SourcePath: m[1]}
			},
		},
	},
	// Spatial editor windows carry free-form content, never a payload.
	types.WindowSpatial: nil,
}

// extractPayload runs the window type's matchers over the joined source.
// A failed extraction is not an error; the record keeps its raw content.
func extractPayload(t types.WindowType, source string, st *types.WindowState) {
	for _, m := range extractors[t] {
		if m.trigger.MatchString(source) {
			m.rebuild(source, st)
			return
		}
	}
}

// recoverTitle takes the first comment line as the window title.
func recoverTitle(source string) string {
	if m := titleRe.FindStringSubmatch(source); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func rebuildTabular(source string, st *types.WindowState) {
	data := &types.TabularData{Title: recoverTitle(source)}

	columns := make([][]float64, 0, 4)
	maxRows := 0
	for _, m := range columnRe.FindAllStringSubmatch(source, -1) {
		data.Columns = append(data.Columns, m[1])
		values := parseFloatList(m[2])
		columns = append(columns, values)
		if len(values) > maxRows {
			maxRows = len(values)
		}
	}
	if len(data.Columns) == 0 {
		return
	}

	// Transpose column-major generated lists back to rows.
	data.Rows = make([][]float64, maxRows)
	for i := range data.Rows {
		row := make([]float64, len(columns))
		for j, col := range columns {
			if i < len(col) {
				row[j] = col[i]
			}
		}
		data.Rows[i] = row
	}
	st.Tabular = data
}

func rebuildChart(source string, st *types.WindowState) {
	m := scatterRe.FindStringSubmatch(source)
	if m == nil {
		return
	}
	xs := parseFloatList(m[1])
	ys := parseFloatList(m[2])

	chartType := "scatter"
	if m[3] == "lines" {
		chartType = "line"
	}
	data := &types.ChartData{Title: recoverTitle(source), ChartType: chartType}
	if layout := layoutRe.FindStringSubmatch(source); layout != nil {
		data.Title = layout[1]
		data.XLabel = layout[2]
		data.YLabel = layout[3]
	}
	for i := 0; i < len(xs) && i < len(ys); i++ {
		data.Points = append(data.Points, types.ChartPoint{X: xs[i], Y: ys[i]})
	}
	st.Chart = data
}

func rebuildPointCloud(source string, st *types.WindowState) {
	data := &types.PointCloud{Title: recoverTitle(source)}
	for _, m := range point3Re.FindAllStringSubmatch(source, -1) {
		x, errX := strconv.ParseFloat(m[1], 64)
		y, errY := strconv.ParseFloat(m[2], 64)
		z, errZ := strconv.ParseFloat(m[3], 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		data.Points = append(data.Points, types.Point3D{X: x, Y: y, Z: z})
	}
	st.PointCloud = data
}

func rebuildVolumetric(source string, st *types.WindowState) {
	m := volumeRe.FindStringSubmatch(source)
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	data := &types.VolumetricMetrics{
		Title:  recoverTitle(source),
		Width:  w,
		Height: h,
		Depth:  d,
	}
	if samples := samplesRe.FindStringSubmatch(source); samples != nil {
		data.Samples = parseFloatList(samples[1])
	}
	st.Volumetric = data
}

func rebuildModel(source string, st *types.WindowState) {
	m := meshRe.FindStringSubmatch(source)
	vertices, _ := strconv.Atoi(m[2])
	faces, _ := strconv.Atoi(m[3])
	data := &types.Model3D{
		Name:        recoverTitle(source),
		Format:      m[1],
		VertexCount: vertices,
		FaceCount:   faces,
	}
	if path := modelPathRe.FindStringSubmatch(source); path != nil {
		data.SourcePath = path[1]
	}
	st.Model = data
}

func parseFloatList(s string) []float64 {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "None" {
			continue
		}
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}
