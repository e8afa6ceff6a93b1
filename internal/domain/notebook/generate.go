package notebook

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// GenerateContent produces the cell source text for a window record.
// Deterministic: the same record always yields byte-identical text. If a
// typed payload is present the output is runnable code reproducing it;
// otherwise a generic header plus the window's free-text content.
func GenerateContent(rec *types.WindowRecord) string {
	switch rec.Type {
	case types.WindowTabular:
		if rec.State.Tabular != nil {
			return generateTabular(rec.State.Tabular)
		}
	case types.WindowChart:
		if rec.State.Chart != nil {
			return generateChart(rec.State.Chart)
		}
	case types.WindowPointCloud:
		if rec.State.PointCloud != nil {
			return generatePointCloud(rec.State.PointCloud)
		}
	case types.WindowVolumetric:
		if rec.State.Volumetric != nil {
			return generateVolumetric(rec.State.Volumetric)
		}
	case types.WindowModel3D:
		if rec.State.Model != nil {
			return generateModel(rec.State.Model)
		}
	}
	return generateGeneric(rec)
}

// typeLabels are the human headers used when no payload title exists.
var typeLabels = map[types.WindowType]string{
	types.WindowChart:      "Chart Window",
	types.WindowSpatial:    "Spatial Editor Window",
	types.WindowTabular:    "Tabular Window",
	types.WindowVolumetric: "Volumetric Window",
	types.WindowPointCloud: "Point Cloud Window",
	types.WindowModel3D:    "3D Model Window",
}

func titleOrLabel(title string, t types.WindowType) string {
	if title != "" {
		return title
	}
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return "Window"
}

func generateGeneric(rec *types.WindowRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %d\n", titleOrLabel("", rec.Type), rec.ID)
	b.WriteString("\n")
	if rec.State.Content != "" {
		b.WriteString(rec.State.Content)
		if !strings.HasSuffix(rec.State.Content, "\n") {
			b.WriteString("\n")
		}
	} else {
		b.WriteString("# (no content)\n")
	}
	return b.String()
}

func generateTabular(data *types.TabularData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleOrLabel(data.Title, types.WindowTabular))
	b.WriteString("import pandas as pd\n")
	b.WriteString("\n")
	b.WriteString("df = pd.DataFrame({\n")
	for col, name := range data.Columns {
		values := make([]string, 0, len(data.Rows))
		for _, row := range data.Rows {
			if col < len(row) {
				values = append(values, formatFloat(row[col]))
			} else {
				values = append(values, "None")
			}
		}
		fmt.Fprintf(&b, "    %q: [%s],\n", name, strings.Join(values, ", "))
	}
	b.WriteString("})\n")
	b.WriteString("df\n")
	return b.String()
}

func generateChart(data *types.ChartData) string {
	mode := "markers"
	if data.ChartType == "line" || data.ChartType == "" {
		mode = "lines"
	}

	xs := make([]string, 0, len(data.Points))
	ys := make([]string, 0, len(data.Points))
	for _, p := range data.Points {
		xs = append(xs, formatFloat(p.X))
		ys = append(ys, formatFloat(p.Y))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleOrLabel(data.Title, types.WindowChart))
	b.WriteString("import plotly.graph_objects as go\n")
	b.WriteString("\n")
	b.WriteString("fig = go.Figure()\n")
	fmt.Fprintf(&b, "fig.add_trace(go.Scatter(x=[%s], y=[%s], mode=%q))\n",
		strings.Join(xs, ", "), strings.Join(ys, ", "), mode)
	fmt.Fprintf(&b, "fig.update_layout(title=%q, xaxis_title=%q, yaxis_title=%q)\n",
		data.Title, data.XLabel, data.YLabel)
	b.WriteString("fig.show()\n")
	return b.String()
}

func generatePointCloud(data *types.PointCloud) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleOrLabel(data.Title, types.WindowPointCloud))
	fmt.Fprintf(&b, "# points: %d\n", len(data.Points))
	b.WriteString("import numpy as np\n")
	b.WriteString("\n")
	b.WriteString("points = np.array([\n")
	for _, p := range data.Points {
		fmt.Fprintf(&b, "    [%s, %s, %s],\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	b.WriteString("])\n")
	b.WriteString("print(f\"Loaded {points.shape[0]} points\")\n")
	return b.String()
}

func generateVolumetric(data *types.VolumetricMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleOrLabel(data.Title, types.WindowVolumetric))
	fmt.Fprintf(&b, "# volume: %dx%dx%d\n", data.Width, data.Height, data.Depth)
	b.WriteString("import numpy as np\n")
	b.WriteString("\n")
	if len(data.Samples) == 0 {
		b.WriteString("samples = np.array([])\n")
		b.WriteString("# (no samples captured)\n")
		return b.String()
	}

	values := make([]string, 0, len(data.Samples))
	for _, v := range data.Samples {
		values = append(values, formatFloat(v))
	}
	mean := stat.Mean(data.Samples, nil)
	std := stat.StdDev(data.Samples, nil)

	fmt.Fprintf(&b, "samples = np.array([%s])\n", strings.Join(values, ", "))
	fmt.Fprintf(&b, "# mean=%s std=%s\n", formatFloat(mean), formatFloat(std))
	b.WriteString("print(\"mean\", samples.mean(), \"std\", samples.std(ddof=1))\n")
	return b.String()
}

func generateModel(data *types.Model3D) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleOrLabel(data.Name, types.WindowModel3D))
	fmt.Fprintf(&b, "# format: %s vertices: %d faces: %d\n", data.Format, data.VertexCount, data.FaceCount)
	b.WriteString("from pathlib import Path\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "model_path = Path(%q)\n", data.SourcePath)
	b.WriteString("print(f\"Model {model_path.name}: {model_path.stat().st_size} bytes\")\n")
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
