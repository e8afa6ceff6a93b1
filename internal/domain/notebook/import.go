package notebook

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// Target is the registry surface import needs: where ids start and where
// restored records go. Callers open windows visually themselves.
type Target interface {
	NextID() int
	Insert(rec *types.WindowRecord)
}

// Import reconstructs window records from document bytes and inserts
// them into the target. New ids start at the target's next free id and
// advance only for successfully parsed cells. Cell failures land in the
// result's error list; only an unparseable document or a missing cells
// array fail the import as a whole.
func (c *Codec) Import(data []byte, target Target) (*types.ImportResult, error) {
	doc, err := c.decode(data)
	if err != nil {
		return nil, err
	}

	result := &types.ImportResult{
		Records:   []*types.WindowRecord{},
		Errors:    []types.CellError{},
		IDMapping: make(map[int]int),
		Original:  doc.Metadata.Export,
	}

	nextID := target.NextID()
	for i, cell := range *doc.Cells {
		rec, oldID, err := c.importCell(cell, nextID)
		if err != nil {
			result.Errors = append(result.Errors, types.CellError{Cell: i, Message: err.Error()})
			c.logger.Warn("skipping malformed notebook cell",
				zap.Int("cell", i),
				zap.Error(err),
			)
			continue
		}
		if rec == nil {
			// Plain notebook cell with no window affinity.
			continue
		}
		if oldID != nil {
			result.IDMapping[*oldID] = rec.ID
		}
		result.Records = append(result.Records, rec)
		target.Insert(rec)
		nextID++
	}

	c.logger.Info("notebook imported",
		zap.Int("restored", len(result.Records)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// importCell reconstructs one cell. Returns (nil, nil, nil) for cells
// without window affinity. Every metadata field is defaulted
// independently when absent or malformed; only a window_type of the
// wrong JSON kind is a cell error.
func (c *Codec) importCell(cell rawCell, newID int) (rec *types.WindowRecord, oldID *int, err error) {
	// Payload extraction runs regexes over arbitrary text; a panic there
	// must abort only this cell.
	defer func() {
		if r := recover(); r != nil {
			rec, oldID = nil, nil
			err = fmt.Errorf("cell extraction panicked: %v", r)
		}
	}()

	meta := make(map[string]interface{})
	if len(cell.Metadata) > 0 {
		// Malformed metadata objects are tolerated; the cell is then
		// indistinguishable from a plain notebook cell.
		_ = sonic.Unmarshal(cell.Metadata, &meta)
	}

	rawType, present := meta["window_type"]
	if !present {
		return nil, nil, nil
	}
	typeStr, ok := rawType.(string)
	if !ok {
		return nil, nil, fmt.Errorf("window_type has wrong type %T", rawType)
	}
	windowType, known := types.ParseWindowType(typeStr)
	if !known {
		// Unknown type strings mean "not ours": skip, don't error.
		return nil, nil, nil
	}

	source := strings.Join(cell.Source, "")
	now := time.Now()

	record := &types.WindowRecord{
		ID:       newID,
		Type:     windowType,
		Position: parsePosition(meta["position"]),
		State: types.WindowState{
			Opacity:      1.0,
			Content:      source,
			Template:     parseTemplate(meta["export_template"]),
			Tags:         parseTags(meta["tags"]),
			LastModified: now,
		},
		CreatedAt: now,
	}

	if state, ok := meta["state"].(map[string]interface{}); ok {
		record.State.Minimized, _ = state["minimized"].(bool)
		record.State.Maximized, _ = state["maximized"].(bool)
		if opacity, ok := asFloat(state["opacity"]); ok {
			record.State.Opacity = opacity
		}
	}
	if stamps, ok := meta["timestamps"].(map[string]interface{}); ok {
		if created, ok := parseTimestamp(stamps["created"]); ok {
			record.CreatedAt = created
		}
		if modified, ok := parseTimestamp(stamps["modified"]); ok {
			record.State.LastModified = modified
		}
	}
	if id, ok := asInt(meta["window_id"]); ok {
		oldID = &id
	}

	extractPayload(windowType, source, &record.State)
	return record, oldID, nil
}

func parsePosition(v interface{}) types.Position {
	m, ok := v.(map[string]interface{})
	if !ok {
		return types.Position{}
	}
	var pos types.Position
	pos.X, _ = asFloat(m["x"])
	pos.Y, _ = asFloat(m["y"])
	pos.Z, _ = asFloat(m["z"])
	pos.Width, _ = asFloat(m["width"])
	pos.Height, _ = asFloat(m["height"])
	if depth, ok := asFloat(m["depth"]); ok {
		pos.Depth = &depth
	}
	return pos
}

func parseTemplate(v interface{}) types.ExportTemplate {
	s, ok := v.(string)
	if !ok || s == "" {
		return types.TemplatePlain
	}
	return types.ExportTemplate(s)
}

func parseTags(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func parseTimestamp(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
