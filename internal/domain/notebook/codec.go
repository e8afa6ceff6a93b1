package notebook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

var (
	// ErrInvalidNotebook marks bytes that are not parseable JSON.
	ErrInvalidNotebook = errors.New("document is not valid notebook JSON")
	// ErrMissingCells marks JSON lacking the required cells array.
	ErrMissingCells = errors.New("document is missing the cells array")
)

// Codec converts between the window registry's data model and notebook
// documents.
type Codec struct {
	logger *logging.Logger
}

// NewCodec creates a codec.
func NewCodec(logger *logging.Logger) *Codec {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Codec{logger: logger}
}

// rawDocument distinguishes a missing cells array from an empty one, and
// keeps per-cell metadata raw so one malformed cell cannot fail the
// whole document.
type rawDocument struct {
	Cells    *[]rawCell `json:"cells"`
	Metadata struct {
		Export    *types.ExportSummary  `json:"holodesk_export"`
		Workspace *types.WorkspaceStamp `json:"workspace_metadata"`
	} `json:"metadata"`
	NBFormat int `json:"nbformat"`
}

type rawCell struct {
	CellType string          `json:"cell_type"`
	Metadata json.RawMessage `json:"metadata"`
	Source   sourceLines     `json:"source"`
}

// sourceLines accepts both nbformat source encodings: a list of lines or
// a single string. Foreign notebooks use either.
type sourceLines []string

func (s *sourceLines) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := sonic.Unmarshal(data, &lines); err == nil {
		*s = lines
		return nil
	}
	var joined string
	if err := sonic.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("source is neither string nor string list")
	}
	*s = splitLines(joined)
	return nil
}

// decode parses document bytes, surfacing only the fatal error taxonomy.
func (c *Codec) decode(data []byte) (*rawDocument, error) {
	var doc rawDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if doc.Cells == nil {
		return nil, ErrMissingCells
	}
	return &doc, nil
}

// DecodeSummary extracts the document-level metadata blocks and cell
// count without reconstructing records. Used by the workspace store to
// derive index fields cheaply.
func (c *Codec) DecodeSummary(data []byte) (*types.ExportSummary, *types.WorkspaceStamp, int, error) {
	doc, err := c.decode(data)
	if err != nil {
		return nil, nil, 0, err
	}
	return doc.Metadata.Export, doc.Metadata.Workspace, len(*doc.Cells), nil
}
