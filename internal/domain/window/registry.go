package window

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

// Cleaner releases rendering resources tied to a window id. Invoked on
// close, removal, and bulk clear.
type Cleaner interface {
	CleanupWindow(id int)
}

// Registry orchestrates window record lifecycle.
type Registry struct {
	mu      sync.RWMutex
	windows map[int]*types.WindowRecord // Protected by mu
	open    map[int]struct{}            // Protected by mu
	// Highest id ever allocated. Keeps NextID monotonic across removals
	// so ids are never reused within this instance's lifetime.
	highWater int
	cleaner   Cleaner
	logger    *logging.Logger
}

// NewRegistry creates a new window registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		windows: make(map[int]*types.WindowRecord),
		open:    make(map[int]struct{}),
		logger:  logger,
	}
}

// WithCleaner attaches the external resource cleaner.
func (r *Registry) WithCleaner(c Cleaner) *Registry {
	r.cleaner = c
	return r
}

// autoTemplates maps a window type to the template selected when its
// first typed payload arrives while the template is still plain.
var autoTemplates = map[types.WindowType]types.ExportTemplate{
	types.WindowTabular:    types.TemplatePandas,
	types.WindowChart:      types.TemplatePlotly,
	types.WindowPointCloud: types.TemplateNumPy,
	types.WindowVolumetric: types.TemplateVolumetric,
	types.WindowModel3D:    types.TemplateModel,
}

// NextID returns the id the next Create without an explicit id will use.
func (r *Registry) NextID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextIDLocked()
}

// nextIDLocked must be called with at least a read lock held.
func (r *Registry) nextIDLocked() int {
	next := r.highWater + 1
	for id := range r.windows {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// Create inserts a new window record with an allocated id. A nil position
// leaves the record at the default position.
func (r *Registry) Create(t types.WindowType, pos *types.Position) *types.WindowRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(r.nextIDLocked(), t, pos)
}

// CreateWithID inserts a record under an explicit id. It always inserts;
// the caller is responsible for not colliding with a live id.
func (r *Registry) CreateWithID(id int, t types.WindowType, pos *types.Position) *types.WindowRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.windows[id]; exists {
		r.logger.Warn("creating window over existing id", zap.Int("window_id", id))
	}
	return r.createLocked(id, t, pos)
}

func (r *Registry) createLocked(id int, t types.WindowType, pos *types.Position) *types.WindowRecord {
	now := time.Now()
	rec := &types.WindowRecord{
		ID:   id,
		Type: t,
		State: types.WindowState{
			Opacity:      1.0,
			Template:     types.TemplatePlain,
			LastModified: now,
		},
		CreatedAt: now,
	}
	if pos != nil {
		rec.Position = *pos
	}
	r.windows[id] = rec
	if id > r.highWater {
		r.highWater = id
	}
	r.logger.Debug("window created",
		zap.Int("window_id", id),
		zap.String("window_type", string(t)),
	)
	return cloneRecord(rec)
}

// Insert adds an already-constructed record, bumping the id high-water
// mark. Used by document import, which allocates its own ids.
func (r *Registry) Insert(rec *types.WindowRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.windows[rec.ID]; exists {
		r.logger.Warn("inserting window over existing id", zap.Int("window_id", rec.ID))
	}
	r.windows[rec.ID] = cloneRecord(rec)
	if rec.ID > r.highWater {
		r.highWater = rec.ID
	}
}

// Get retrieves a window record by id. Absent is not an error; the
// diagnostic distinguishes unknown ids from known-but-not-open ones.
func (r *Registry) Get(id int) (*types.WindowRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.windows[id]
	if !ok {
		r.logger.Debug("window lookup for unknown id", zap.Int("window_id", id))
		return nil, false
	}
	if _, isOpen := r.open[id]; !isOpen {
		r.logger.Debug("window lookup for closed window", zap.Int("window_id", id))
	}
	return cloneRecord(rec), true
}

// mutate runs fn on the record under lock, stamping lastModified.
// Unknown ids are no-ops with a diagnostic; the bool return exists for
// tests and internal callers, not as an error signal.
func (r *Registry) mutate(id int, op string, fn func(rec *types.WindowRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.windows[id]
	if !ok {
		r.logger.Debug("mutation ignored for unknown window",
			zap.Int("window_id", id),
			zap.String("op", op),
		)
		return false
	}
	fn(rec)
	rec.State.LastModified = time.Now()
	return true
}

// UpdatePosition sets a window's position.
func (r *Registry) UpdatePosition(id int, pos types.Position) bool {
	return r.mutate(id, "position", func(rec *types.WindowRecord) {
		rec.Position = pos
	})
}

// UpdateContent sets a window's free-text content.
func (r *Registry) UpdateContent(id int, content string) bool {
	return r.mutate(id, "content", func(rec *types.WindowRecord) {
		rec.State.Content = content
	})
}

// UpdateTemplate sets a window's export template explicitly.
func (r *Registry) UpdateTemplate(id int, tpl types.ExportTemplate) bool {
	return r.mutate(id, "template", func(rec *types.WindowRecord) {
		rec.State.Template = tpl
	})
}

// UpdateFlags sets the minimized/maximized/opacity flags.
func (r *Registry) UpdateFlags(id int, minimized, maximized bool, opacity float64) bool {
	return r.mutate(id, "flags", func(rec *types.WindowRecord) {
		rec.State.Minimized = minimized
		rec.State.Maximized = maximized
		rec.State.Opacity = opacity
	})
}

// AddTags appends tags not already present, preserving insertion order.
func (r *Registry) AddTags(id int, tags ...string) bool {
	return r.mutate(id, "tags", func(rec *types.WindowRecord) {
		for _, tag := range tags {
			if !containsString(rec.State.Tags, tag) {
				rec.State.Tags = append(rec.State.Tags, tag)
			}
		}
	})
}

// SetTags replaces the tag list, deduplicating while preserving order.
func (r *Registry) SetTags(id int, tags []string) bool {
	return r.mutate(id, "tags", func(rec *types.WindowRecord) {
		rec.State.Tags = nil
		for _, tag := range tags {
			if !containsString(rec.State.Tags, tag) {
				rec.State.Tags = append(rec.State.Tags, tag)
			}
		}
	})
}

// autoSelect switches the template exactly while it still equals the
// default. A manually reset template re-arms the rule; this matches the
// source behavior even though it is arguably a UX quirk.
func autoSelect(rec *types.WindowRecord) {
	if rec.State.Template != types.TemplatePlain {
		return
	}
	if tpl, ok := autoTemplates[rec.Type]; ok {
		rec.State.Template = tpl
	}
}

// SetTabularData attaches a tabular payload.
func (r *Registry) SetTabularData(id int, data *types.TabularData) bool {
	return r.mutate(id, "tabular", func(rec *types.WindowRecord) {
		rec.State.Tabular = data
		autoSelect(rec)
	})
}

// SetChartData attaches a chart payload.
func (r *Registry) SetChartData(id int, data *types.ChartData) bool {
	return r.mutate(id, "chart", func(rec *types.WindowRecord) {
		rec.State.Chart = data
		autoSelect(rec)
	})
}

// SetPointCloud attaches a point-cloud payload.
func (r *Registry) SetPointCloud(id int, data *types.PointCloud) bool {
	return r.mutate(id, "pointcloud", func(rec *types.WindowRecord) {
		rec.State.PointCloud = data
		autoSelect(rec)
	})
}

// SetVolumetricMetrics attaches a volumetric payload.
func (r *Registry) SetVolumetricMetrics(id int, data *types.VolumetricMetrics) bool {
	return r.mutate(id, "volumetric", func(rec *types.WindowRecord) {
		rec.State.Volumetric = data
		autoSelect(rec)
	})
}

// SetModel3D attaches a 3-D model payload.
func (r *Registry) SetModel3D(id int, data *types.Model3D) bool {
	return r.mutate(id, "model", func(rec *types.WindowRecord) {
		rec.State.Model = data
		autoSelect(rec)
	})
}

// MarkOpened records that a window is visually open. Membership in the
// open set is independent of record existence.
func (r *Registry) MarkOpened(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[id] = struct{}{}
}

// MarkClosed removes a window from the open set and releases its
// rendering resources. Idempotent; the record itself survives.
func (r *Registry) MarkClosed(id int) {
	r.mu.Lock()
	_, wasOpen := r.open[id]
	delete(r.open, id)
	r.mu.Unlock()

	if wasOpen && r.cleaner != nil {
		r.cleaner.CleanupWindow(id)
	}
}

// IsOpen reports open-set membership.
func (r *Registry) IsOpen(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.open[id]
	return ok
}

// RemoveWindow deletes the record and marks it closed. Idempotent.
func (r *Registry) RemoveWindow(id int) {
	r.mu.Lock()
	_, existed := r.windows[id]
	delete(r.windows, id)
	_, wasOpen := r.open[id]
	delete(r.open, id)
	r.mu.Unlock()

	if wasOpen && r.cleaner != nil {
		r.cleaner.CleanupWindow(id)
	}
	if !existed {
		r.logger.Debug("remove ignored for unknown window", zap.Int("window_id", id))
	}
}

// Cleanup removes exactly the records not currently open and returns how
// many were purged.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged := 0
	for id := range r.windows {
		if _, isOpen := r.open[id]; !isOpen {
			delete(r.windows, id)
			purged++
		}
	}
	if purged > 0 {
		r.logger.Info("purged closed windows", zap.Int("count", purged))
	}
	return purged
}

// ListAll returns records sorted by ascending id, optionally restricted
// to open windows.
func (r *Registry) ListAll(onlyOpen bool) []*types.WindowRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*types.WindowRecord, 0, len(r.windows))
	for id, rec := range r.windows {
		if onlyOpen {
			if _, isOpen := r.open[id]; !isOpen {
				continue
			}
		}
		records = append(records, cloneRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// ClearAll empties both the record map and the open set, releasing all
// rendering resources.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	openIDs := make([]int, 0, len(r.open))
	for id := range r.open {
		openIDs = append(openIDs, id)
	}
	r.windows = make(map[int]*types.WindowRecord)
	r.open = make(map[int]struct{})
	r.mu.Unlock()

	if r.cleaner != nil {
		for _, id := range openIDs {
			r.cleaner.CleanupWindow(id)
		}
	}
}

// Stats returns registry statistics.
func (r *Registry) Stats() types.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byType := make(map[string]int)
	for _, rec := range r.windows {
		byType[string(rec.Type)]++
	}
	return types.RegistryStats{
		TotalWindows: len(r.windows),
		OpenWindows:  len(r.open),
		NextID:       r.nextIDLocked(),
		ByType:       byType,
	}
}

// cloneRecord returns a copy to prevent external modification. Payload
// pointers are shared; payloads are treated as immutable once attached.
func cloneRecord(rec *types.WindowRecord) *types.WindowRecord {
	cp := *rec
	cp.State.Tags = append([]string(nil), rec.State.Tags...)
	return &cp
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
