package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/domain/autosave"
	"github.com/spatialforge/holodesk/backend/internal/domain/notebook"
	"github.com/spatialforge/holodesk/backend/internal/domain/window"
	"github.com/spatialforge/holodesk/backend/internal/domain/workspace"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/monitoring"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// maxImportBytes bounds uploaded documents.
const maxImportBytes = 32 << 20

// Handlers exposes the registry, codec, pipeline, and workspace store
// over HTTP.
type Handlers struct {
	registry *window.Registry
	codec    *notebook.Codec
	pipeline *autosave.Pipeline
	store    *workspace.Store
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	opener   func(windowID int)
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(
	registry *window.Registry,
	codec *notebook.Codec,
	pipeline *autosave.Pipeline,
	store *workspace.Store,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		registry: registry,
		codec:    codec,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// WithOpener sets the callback invoked for each window opened while
// loading a workspace.
func (h *Handlers) WithOpener(fn func(windowID int)) *Handlers {
	h.opener = fn
	return h
}

// Root returns service identification.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "holodesk-backend",
		"status":  "running",
	})
}

// Health reports component statistics.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":     "healthy",
		"registry":   h.registry.Stats(),
		"pipeline":   h.pipeline.Stats(),
		"workspaces": h.store.Stats(),
	}
	if h.metrics != nil {
		resp["uptime"] = h.metrics.Uptime().String()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) windowID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window id must be an integer"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) syncWindowGauges() {
	if h.metrics == nil {
		return
	}
	stats := h.registry.Stats()
	h.metrics.SetWindowCounts(stats.TotalWindows, stats.OpenWindows)
}

// CreateWindow registers a new window record.
func (h *Handlers) CreateWindow(c *gin.Context) {
	var req struct {
		WindowType string          `json:"window_type" binding:"required"`
		Position   *types.Position `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wt, ok := types.ParseWindowType(req.WindowType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown window_type: " + req.WindowType})
		return
	}

	rec := h.registry.Create(wt, req.Position)
	if h.metrics != nil {
		h.metrics.WindowsCreated.Inc()
	}
	h.syncWindowGauges()
	c.JSON(http.StatusCreated, rec)
}

// ListWindows lists window records, optionally only open ones.
func (h *Handlers) ListWindows(c *gin.Context) {
	onlyOpen := c.Query("open") == "true"
	records := h.registry.ListAll(onlyOpen)
	c.JSON(http.StatusOK, gin.H{"windows": records, "count": len(records)})
}

// GetWindow returns one window record.
func (h *Handlers) GetWindow(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	rec, found := h.registry.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdatePosition moves a window and reports the movement to the
// autosave pipeline for debouncing.
func (h *Handlers) UpdatePosition(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var pos types.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.UpdatePosition(id, pos)
	if applied {
		h.pipeline.ReportMovement(id, pos)
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// UpdateContent replaces a window's content and schedules a debounced
// autosave.
func (h *Handlers) UpdateContent(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.UpdateContent(id, req.Content)
	if applied {
		h.pipeline.NotifyContentChanged()
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// UpdateTemplate sets a window's export template.
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Template string `json:"export_template" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.UpdateTemplate(id, types.ExportTemplate(req.Template))
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// UpdateFlags sets minimized/maximized/opacity.
func (h *Handlers) UpdateFlags(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Minimized bool    `json:"minimized"`
		Maximized bool    `json:"maximized"`
		Opacity   float64 `json:"opacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.UpdateFlags(id, req.Minimized, req.Maximized, req.Opacity)
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// SetTags replaces a window's tag list.
func (h *Handlers) SetTags(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.SetTags(id, req.Tags)
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// AddTags appends tags to a window.
func (h *Handlers) AddTags(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Tags []string `json:"tags" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied := h.registry.AddTags(id, req.Tags...)
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// SetPayload attaches a typed data payload. Exactly one payload field
// must be present in the body.
func (h *Handlers) SetPayload(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Tabular    *types.TabularData       `json:"tabular"`
		Chart      *types.ChartData         `json:"chart"`
		PointCloud *types.PointCloud        `json:"pointcloud"`
		Volumetric *types.VolumetricMetrics `json:"volumetric"`
		Model      *types.Model3D           `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var applied bool
	switch {
	case req.Tabular != nil:
		applied = h.registry.SetTabularData(id, req.Tabular)
	case req.Chart != nil:
		applied = h.registry.SetChartData(id, req.Chart)
	case req.PointCloud != nil:
		applied = h.registry.SetPointCloud(id, req.PointCloud)
	case req.Volumetric != nil:
		applied = h.registry.SetVolumetricMetrics(id, req.Volumetric)
	case req.Model != nil:
		applied = h.registry.SetModel3D(id, req.Model)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "no payload provided"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// OpenWindow marks a window visually open.
func (h *Handlers) OpenWindow(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	h.registry.MarkOpened(id)
	h.syncWindowGauges()
	c.JSON(http.StatusOK, gin.H{"open": h.registry.IsOpen(id)})
}

// CloseWindow marks a window closed and triggers a window-closed save.
func (h *Handlers) CloseWindow(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	h.registry.MarkClosed(id)
	h.pipeline.WindowClosed(id)
	h.syncWindowGauges()
	c.JSON(http.StatusOK, gin.H{"open": false})
}

// FocusWindow reports a focus transition to the pipeline.
func (h *Handlers) FocusWindow(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	var req struct {
		Gained bool `json:"gained"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.pipeline.ReportFocus(id, req.Gained)
	c.JSON(http.StatusOK, gin.H{"reported": true})
}

// DeleteWindow removes a window record entirely.
func (h *Handlers) DeleteWindow(c *gin.Context) {
	id, ok := h.windowID(c)
	if !ok {
		return
	}
	h.registry.RemoveWindow(id)
	h.syncWindowGauges()
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// CleanupWindows drops every closed window record.
func (h *Handlers) CleanupWindows(c *gin.Context) {
	removed := h.registry.Cleanup()
	h.syncWindowGauges()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// RegistryStats returns registry counters.
func (h *Handlers) RegistryStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Stats())
}

// Export serializes the current registry as a notebook document.
func (h *Handlers) Export(c *gin.Context) {
	data, err := h.codec.ExportBytes(h.registry.ListAll(false), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.ExportsTotal.Inc()
	}
	c.Header("Content-Disposition", `attachment; filename="workspace.ipynb"`)
	c.Data(http.StatusOK, "application/x-ipynb+json", data)
}

// Import restores window records from an uploaded notebook document.
// Per-cell failures are reported in the response; only unparseable
// documents fail the request.
func (h *Handlers) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := h.codec.Import(data, h.registry)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.RecordImport(len(result.Errors))
	}
	h.syncWindowGauges()

	h.logger.Info("notebook imported",
		zap.Int("records", len(result.Records)),
		zap.Int("cell_errors", len(result.Errors)))
	c.JSON(http.StatusOK, result)
}

// SaveNow triggers a manual autosave.
func (h *Handlers) SaveNow(c *gin.Context) {
	h.pipeline.SaveNow()
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// SaveResults returns the retained save history.
func (h *Handlers) SaveResults(c *gin.Context) {
	results := h.pipeline.Results()
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// PipelineStats returns autosave counters.
func (h *Handlers) PipelineStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Stats())
}

// ListWorkspaces lists the metadata index.
func (h *Handlers) ListWorkspaces(c *gin.Context) {
	records := h.store.List()
	c.JSON(http.StatusOK, gin.H{"workspaces": records, "count": len(records)})
}

// GetWorkspace returns one index record.
func (h *Handlers) GetWorkspace(c *gin.Context) {
	rec, found := h.store.Get(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateWorkspace snapshots the current registry into a new workspace.
func (h *Handlers) CreateWorkspace(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Tags        []string `json:"tags"`
		IsTemplate  bool     `json:"is_template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.store.Create(workspace.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    types.ParseWorkspaceCategory(req.Category),
		Tags:        req.Tags,
		IsTemplate:  req.IsTemplate,
	}, h.registry.ListAll(false))
	if err != nil {
		if errors.Is(err, workspace.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// LoadWorkspace imports a workspace document into the registry.
func (h *Handlers) LoadWorkspace(c *gin.Context) {
	var req struct {
		Clear *bool `json:"clear"`
	}
	// Body is optional; default is to clear before loading.
	_ = c.ShouldBindJSON(&req)
	clearFirst := req.Clear == nil || *req.Clear

	result, err := h.store.LoadWorkspace(c.Request.Context(), c.Param("id"), h.registry, h.opener, clearFirst)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrWorkspaceNotFound), errors.Is(err, workspace.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, notebook.ErrInvalidNotebook), errors.Is(err, notebook.ErrMissingCells):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	if h.metrics != nil {
		h.metrics.RecordImport(len(result.Errors))
	}
	h.syncWindowGauges()
	c.JSON(http.StatusOK, result)
}

// RefreshWorkspaces re-derives cached counts from the documents.
func (h *Handlers) RefreshWorkspaces(c *gin.Context) {
	if err := h.store.Refresh(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": h.store.List()})
}

// DeleteWorkspace removes a workspace and its document.
func (h *Handlers) DeleteWorkspace(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		if errors.Is(err, workspace.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// StoreStats returns workspace index counters.
func (h *Handlers) StoreStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}
