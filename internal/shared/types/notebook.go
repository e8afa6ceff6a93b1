package types

// Notebook is the on-disk document: an nbformat-4 file whose cells carry
// window metadata. Files without that metadata are still valid notebooks
// and import as zero windows.
type Notebook struct {
	Cells         []Cell           `json:"cells"`
	Metadata      NotebookMetadata `json:"metadata"`
	NBFormat      int              `json:"nbformat"`
	NBFormatMinor int              `json:"nbformat_minor"`
}

// Cell is one notebook cell. Source is newline-split generated code.
type Cell struct {
	CellType       string        `json:"cell_type"`
	Metadata       CellMetadata  `json:"metadata"`
	Source         []string      `json:"source"`
	ExecutionCount *int          `json:"execution_count"`
	Outputs        []interface{} `json:"outputs"`
}

// CellMetadata carries the structural window fields that survive a
// round-trip losslessly (the payload itself travels as generated code).
type CellMetadata struct {
	WindowID       *int            `json:"window_id,omitempty"`
	WindowType     string          `json:"window_type,omitempty"`
	ExportTemplate string          `json:"export_template,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Position       *Position       `json:"position,omitempty"`
	State          *CellState      `json:"state,omitempty"`
	Timestamps     *CellTimestamps `json:"timestamps,omitempty"`
}

// CellState mirrors the window flags stored per cell.
type CellState struct {
	Minimized bool    `json:"minimized"`
	Maximized bool    `json:"maximized"`
	Opacity   float64 `json:"opacity"`
}

// CellTimestamps carries ISO-8601 created/modified times.
type CellTimestamps struct {
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// NotebookMetadata is the document-level metadata block.
type NotebookMetadata struct {
	Kernelspec   Kernelspec      `json:"kernelspec"`
	LanguageInfo LanguageInfo    `json:"language_info"`
	Export       *ExportSummary  `json:"holodesk_export,omitempty"`
	Workspace    *WorkspaceStamp `json:"workspace_metadata,omitempty"`
}

// Kernelspec identifies the notebook kernel for ordinary notebook tooling.
type Kernelspec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

// LanguageInfo identifies the source language of code cells.
type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ExportSummary is the aggregate block written at export time. The list
// fields are set-derived; their order is not guaranteed and importers
// must not rely on it. It is informational only on import.
type ExportSummary struct {
	ExportDate      string   `json:"export_date"`
	TotalWindows    int      `json:"total_windows"`
	WindowTypes     []string `json:"window_types"`
	ExportTemplates []string `json:"export_templates"`
	AllTags         []string `json:"all_tags"`
}

// WorkspaceStamp embeds the owning workspace's identity in the document
// so a directory scan can rebuild the metadata index.
type WorkspaceStamp struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	IsTemplate   bool     `json:"is_template"`
	CreatedDate  string   `json:"created_date"`
	ModifiedDate string   `json:"modified_date"`
	Tags         []string `json:"tags"`
	Version      int      `json:"version"`
}

// CellError records a per-cell import failure. Cell is the zero-based
// index in the source document.
type CellError struct {
	Cell    int    `json:"cell"`
	Message string `json:"message"`
}

// ImportResult is what a document import produces. Errors are non-fatal;
// a document-level failure returns a Go error instead and no result.
type ImportResult struct {
	Records   []*WindowRecord `json:"records"`
	Errors    []CellError     `json:"errors"`
	IDMapping map[int]int     `json:"id_mapping"` // old id -> new id
	Original  *ExportSummary  `json:"original_metadata,omitempty"`
}
