package notebook

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

const (
	nbFormat      = 4
	nbFormatMinor = 5
)

// Export builds a notebook document from window records. Records must be
// in ascending id order (the registry's ListAll guarantees this). A nil
// stamp omits the workspace_metadata block. The document is valid even
// for zero records: the cells array is empty but present.
func (c *Codec) Export(records []*types.WindowRecord, stamp *types.WorkspaceStamp) *types.Notebook {
	cells := make([]types.Cell, 0, len(records))
	for _, rec := range records {
		cells = append(cells, c.exportCell(rec))
	}

	return &types.Notebook{
		Cells: cells,
		Metadata: types.NotebookMetadata{
			Kernelspec: types.Kernelspec{
				DisplayName: "Python 3",
				Language:    "python",
				Name:        "python3",
			},
			LanguageInfo: types.LanguageInfo{
				Name:    "python",
				Version: "3.11",
			},
			Export:    summarize(records),
			Workspace: stamp,
		},
		NBFormat:      nbFormat,
		NBFormatMinor: nbFormatMinor,
	}
}

// ExportBytes serializes the document for writing to a destination.
func (c *Codec) ExportBytes(records []*types.WindowRecord, stamp *types.WorkspaceStamp) ([]byte, error) {
	doc := c.Export(records, stamp)
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notebook: %w", err)
	}
	return data, nil
}

func (c *Codec) exportCell(rec *types.WindowRecord) types.Cell {
	id := rec.ID
	pos := rec.Position
	return types.Cell{
		CellType: "code",
		Metadata: types.CellMetadata{
			WindowID:       &id,
			WindowType:     string(rec.Type),
			ExportTemplate: string(rec.State.Template),
			Tags:           rec.State.Tags,
			Position:       &pos,
			State: &types.CellState{
				Minimized: rec.State.Minimized,
				Maximized: rec.State.Maximized,
				Opacity:   rec.State.Opacity,
			},
			Timestamps: &types.CellTimestamps{
				Created:  rec.CreatedAt.UTC().Format(time.RFC3339),
				Modified: rec.State.LastModified.UTC().Format(time.RFC3339),
			},
		},
		Source:  splitLines(GenerateContent(rec)),
		Outputs: []interface{}{},
	}
}

// summarize builds the aggregate export block. The list fields are
// set-derived; their order is unspecified.
func summarize(records []*types.WindowRecord) *types.ExportSummary {
	typeSet := make(map[string]struct{})
	templateSet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for _, rec := range records {
		typeSet[string(rec.Type)] = struct{}{}
		templateSet[string(rec.State.Template)] = struct{}{}
		for _, tag := range rec.State.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	return &types.ExportSummary{
		ExportDate:      time.Now().UTC().Format(time.RFC3339),
		TotalWindows:    len(records),
		WindowTypes:     setToSlice(typeSet),
		ExportTemplates: setToSlice(templateSet),
		AllTags:         setToSlice(tagSet),
	}
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// splitLines breaks generated text into nbformat source lines, keeping
// the trailing newline on every line but the last.
func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
