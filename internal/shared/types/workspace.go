package types

import "time"

// WorkspaceCategory is the closed set of workspace classifications.
type WorkspaceCategory string

const (
	CategoryGeneral       WorkspaceCategory = "general"
	CategoryDataScience   WorkspaceCategory = "data_science"
	CategoryVisualization WorkspaceCategory = "visualization"
	CategoryEngineering   WorkspaceCategory = "engineering"
	CategoryResearch      WorkspaceCategory = "research"
)

// ParseWorkspaceCategory maps a string to a known category, defaulting to
// general for unknown values (scanned foreign documents have none).
func ParseWorkspaceCategory(s string) WorkspaceCategory {
	switch c := WorkspaceCategory(s); c {
	case CategoryDataScience, CategoryVisualization, CategoryEngineering, CategoryResearch:
		return c
	default:
		return CategoryGeneral
	}
}

// WorkspaceRecord indexes one document file. TotalWindows and WindowTypes
// are denormalized from the document and re-derivable at any time; the
// remaining fields are user-owned and survive a refresh.
type WorkspaceRecord struct {
	ID           string            `json:"id"` // UUID
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     WorkspaceCategory `json:"category"`
	IsTemplate   bool              `json:"is_template"`
	CreatedDate  time.Time         `json:"created_date"`
	ModifiedDate time.Time         `json:"modified_date"`
	TotalWindows int               `json:"total_windows"`
	WindowTypes  []string          `json:"window_types"`
	Tags         []string          `json:"tags"`
	DocumentPath string            `json:"document_path"`

	// Native documents carry the holodesk_export block; foreign notebooks
	// found by a directory scan do not.
	Native bool `json:"native"`
}

// StoreStats summarizes the metadata store.
type StoreStats struct {
	TotalWorkspaces int        `json:"total_workspaces"`
	Templates       int        `json:"templates"`
	LastSaved       *time.Time `json:"last_saved,omitempty"`
}
