package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spatialforge/holodesk/backend/internal/domain/notebook"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/infrastructure/monitoring"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

var (
	ErrDuplicateName     = errors.New("workspace name already exists")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrDocumentNotFound  = errors.New("workspace document file not found")
)

// documentPattern matches workspace documents under the documents dir.
const documentPattern = "**/*.ipynb"

// Registry is the window store a workspace loads into.
type Registry interface {
	NextID() int
	Insert(rec *types.WindowRecord)
	MarkOpened(id int)
	ClearAll()
}

// CreateParams are the user-editable fields of a new workspace.
type CreateParams struct {
	Name        string
	Description string
	Category    types.WorkspaceCategory
	Tags        []string
	IsTemplate  bool
}

// Store is the workspace metadata index. All methods are safe for
// concurrent use.
type Store struct {
	codec     *notebook.Codec
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	dir       string
	indexFile string
	openDelay time.Duration

	// createMu serializes Create end to end so the duplicate-name check
	// and the insert behave as one atomic step even across the document
	// write in between.
	createMu sync.Mutex

	mu        sync.Mutex
	records   []*types.WorkspaceRecord
	lastSaved *time.Time
}

// NewStore creates a store over the given documents directory and
// index file.
func NewStore(dir, indexFile string, codec *notebook.Codec, logger *logging.Logger) *Store {
	return &Store{
		codec:     codec,
		logger:    logger,
		dir:       dir,
		indexFile: indexFile,
		openDelay: 100 * time.Millisecond,
	}
}

// WithOpenDelay sets the pacing delay between visual opens.
func (s *Store) WithOpenDelay(d time.Duration) *Store {
	s.openDelay = d
	return s
}

// WithMetrics attaches a metrics collector.
func (s *Store) WithMetrics(m *monitoring.Metrics) *Store {
	s.metrics = m
	return s
}

// Load reads the index file and validates every record's backing file.
// Records whose file moved are relinked by filename; records whose
// file is gone are dropped. A missing or unreadable index falls back
// to a full directory scan.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.indexFile)
	if err != nil {
		s.logger.Info("workspace index unavailable, scanning documents directory",
			zap.String("index", s.indexFile), zap.Error(err))
		return s.rescan()
	}

	var records []*types.WorkspaceRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		s.logger.Warn("workspace index unreadable, scanning documents directory",
			zap.String("index", s.indexFile), zap.Error(err))
		return s.rescan()
	}

	kept := records[:0]
	for _, rec := range records {
		if _, err := os.Stat(rec.DocumentPath); err == nil {
			kept = append(kept, rec)
			continue
		}
		relinked := filepath.Join(s.dir, filepath.Base(rec.DocumentPath))
		if _, err := os.Stat(relinked); err == nil {
			s.logger.Info("relinked workspace document",
				zap.String("workspace", rec.Name),
				zap.String("path", relinked))
			rec.DocumentPath = relinked
			kept = append(kept, rec)
			continue
		}
		s.logger.Warn("dropping workspace with missing document",
			zap.String("workspace", rec.Name),
			zap.String("path", rec.DocumentPath))
	}

	s.mu.Lock()
	s.records = kept
	s.mu.Unlock()
	s.updateGauge()
	return nil
}

// rescan rebuilds the index from the documents on disk.
func (s *Store) rescan() error {
	var (
		mu    sync.Mutex
		found []*types.WorkspaceRecord
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(s.dir, path)
		if rerr != nil {
			return nil
		}
		if ok, _ := doublestar.PathMatch(documentPattern, rel); !ok {
			return nil
		}
		rec := s.recordFromFile(path)
		if rec == nil {
			return nil
		}
		mu.Lock()
		found = append(found, rec)
		mu.Unlock()
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to scan documents directory: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	s.mu.Lock()
	s.records = found
	s.mu.Unlock()
	s.updateGauge()

	s.logger.Info("rebuilt workspace index from directory scan",
		zap.String("dir", s.dir), zap.Int("workspaces", len(found)))
	return s.Save()
}

// recordFromFile builds an index record for one document. Returns nil
// for files that are not parseable notebooks.
func (s *Store) recordFromFile(path string) *types.WorkspaceRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if m := mimetype.Detect(data); !m.Is("application/json") && !strings.HasPrefix(m.String(), "text/") {
		s.logger.Debug("skipping non-notebook file", zap.String("path", path),
			zap.String("mime", m.String()))
		return nil
	}
	_, stamp, _, err := s.codec.DecodeSummary(data)
	if err != nil {
		s.logger.Debug("skipping unparseable notebook", zap.String("path", path),
			zap.Error(err))
		return nil
	}

	total, windowTypes := s.deriveCounts(data)
	now := time.Now().UTC()

	if stamp != nil {
		rec := &types.WorkspaceRecord{
			ID:           stamp.ID,
			Name:         stamp.Name,
			Description:  stamp.Description,
			Category:     types.ParseWorkspaceCategory(stamp.Category),
			IsTemplate:   stamp.IsTemplate,
			Tags:         stamp.Tags,
			TotalWindows: total,
			WindowTypes:  windowTypes,
			DocumentPath: path,
			Native:       true,
			CreatedDate:  parseStampTime(stamp.CreatedDate, now),
			ModifiedDate: parseStampTime(stamp.ModifiedDate, now),
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		return rec
	}

	// Foreign notebook: derive identity from the filename.
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info, _ := os.Stat(path)
	modified := now
	if info != nil {
		modified = info.ModTime().UTC()
	}
	return &types.WorkspaceRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Category:     types.CategoryGeneral,
		TotalWindows: total,
		WindowTypes:  windowTypes,
		DocumentPath: path,
		Native:       false,
		CreatedDate:  modified,
		ModifiedDate: modified,
	}
}

// deriveCounts imports the document into a throwaway target to count
// the window cells it actually restores.
func (s *Store) deriveCounts(data []byte) (int, []string) {
	target := &countingTarget{}
	result, err := s.codec.Import(data, target)
	if err != nil {
		return 0, nil
	}
	seen := map[string]bool{}
	var kinds []string
	for _, rec := range result.Records {
		k := string(rec.Type)
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return len(result.Records), kinds
}

type countingTarget struct {
	next int
	recs []*types.WindowRecord
}

func (t *countingTarget) NextID() int                    { t.next++; return t.next }
func (t *countingTarget) Insert(rec *types.WindowRecord) { t.recs = append(t.recs, rec) }

// Save atomically rewrites the index file.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := sonic.ConfigStd.MarshalIndent(s.records, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode workspace index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.indexFile), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := atomicWrite(s.indexFile, data); err != nil {
		return err
	}

	s.mu.Lock()
	now := time.Now()
	s.lastSaved = &now
	s.mu.Unlock()
	return nil
}

// List returns a copy of all records, templates included.
func (s *Store) List() []*types.WorkspaceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.WorkspaceRecord, len(s.records))
	for i, rec := range s.records {
		c := *rec
		out[i] = &c
	}
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(workspaceID string) (*types.WorkspaceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == workspaceID {
			c := *rec
			return &c, true
		}
	}
	return nil, false
}

// Create serializes the given windows into a new document and indexes
// it. Names are unique, compared case-sensitively; concurrent creates
// with the same name admit exactly one winner.
func (s *Store) Create(params CreateParams, windows []*types.WindowRecord) (*types.WorkspaceRecord, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.Lock()
	for _, rec := range s.records {
		if rec.Name == params.Name {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, params.Name)
		}
	}
	s.mu.Unlock()

	now := time.Now().UTC()
	workspaceID := uuid.NewString()
	path := filepath.Join(s.dir, sanitizeFilename(params.Name)+".ipynb")

	category := params.Category
	if category == "" {
		category = types.CategoryGeneral
	}

	stamp := &types.WorkspaceStamp{
		ID:           workspaceID,
		Name:         params.Name,
		Description:  params.Description,
		Category:     string(category),
		IsTemplate:   params.IsTemplate,
		CreatedDate:  now.Format(time.RFC3339),
		ModifiedDate: now.Format(time.RFC3339),
		Tags:         params.Tags,
		Version:      1,
	}

	data, err := s.codec.ExportBytes(windows, stamp)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workspace: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var kinds []string
	for _, w := range windows {
		k := string(w.Type)
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)

	rec := &types.WorkspaceRecord{
		ID:           workspaceID,
		Name:         params.Name,
		Description:  params.Description,
		Category:     category,
		IsTemplate:   params.IsTemplate,
		CreatedDate:  now,
		ModifiedDate: now,
		TotalWindows: len(windows),
		WindowTypes:  kinds,
		Tags:         params.Tags,
		DocumentPath: path,
		Native:       true,
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	s.updateGauge()

	if err := s.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("workspace created",
		zap.String("id", workspaceID),
		zap.String("name", params.Name),
		zap.Int("windows", len(windows)))
	c := *rec
	return &c, nil
}

// Refresh re-derives window counts and types for every record from its
// backing document. User-editable fields are left untouched.
func (s *Store) Refresh() error {
	s.mu.Lock()
	records := make([]*types.WorkspaceRecord, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	for _, rec := range records {
		data, err := os.ReadFile(rec.DocumentPath)
		if err != nil {
			s.logger.Warn("refresh skipping unreadable document",
				zap.String("workspace", rec.Name), zap.Error(err))
			continue
		}
		total, kinds := s.deriveCounts(data)
		s.mu.Lock()
		rec.TotalWindows = total
		rec.WindowTypes = kinds
		s.mu.Unlock()
	}
	return s.Save()
}

// Delete removes the record and its document file.
func (s *Store) Delete(workspaceID string) error {
	s.mu.Lock()
	idx := -1
	for i, rec := range s.records {
		if rec.ID == workspaceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, workspaceID)
	}
	rec := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()
	s.updateGauge()

	if err := os.Remove(rec.DocumentPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove workspace document",
			zap.String("path", rec.DocumentPath), zap.Error(err))
	}
	s.logger.Info("workspace deleted", zap.String("id", workspaceID), zap.String("name", rec.Name))
	return s.Save()
}

// LoadWorkspace imports a workspace document into the registry and
// opens the restored windows one at a time, ascending by id, pausing
// between opens so the rendering layer keeps up. opener may be nil.
func (s *Store) LoadWorkspace(ctx context.Context, workspaceID string, reg Registry, opener func(windowID int), clearFirst bool) (*types.ImportResult, error) {
	rec, ok := s.Get(workspaceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, workspaceID)
	}
	data, err := os.ReadFile(rec.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, rec.DocumentPath)
	}

	if clearFirst {
		reg.ClearAll()
	}

	result, err := s.codec.Import(data, reg)
	if err != nil {
		return nil, err
	}

	restored := make([]*types.WindowRecord, len(result.Records))
	copy(restored, result.Records)
	sort.Slice(restored, func(i, j int) bool { return restored[i].ID < restored[j].ID })

	for i, w := range restored {
		if opener != nil {
			opener(w.ID)
		}
		reg.MarkOpened(w.ID)
		if i == len(restored)-1 {
			break
		}
		select {
		case <-time.After(s.openDelay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	s.logger.Info("workspace loaded",
		zap.String("id", workspaceID),
		zap.String("name", rec.Name),
		zap.Int("windows", len(restored)),
		zap.Int("cell_errors", len(result.Errors)))
	return result, nil
}

// Stats summarizes the index.
func (s *Store) Stats() types.StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	templates := 0
	for _, rec := range s.records {
		if rec.IsTemplate {
			templates++
		}
	}
	return types.StoreStats{
		TotalWorkspaces: len(s.records),
		Templates:       templates,
		LastSaved:       s.lastSaved,
	}
}

func (s *Store) updateGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	n := len(s.records)
	s.mu.Unlock()
	s.metrics.Workspaces.Set(float64(n))
}

// atomicWrite replaces path via temp-file-and-rename so interrupted
// writes never leave a truncated file behind.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if mapped == "" {
		mapped = "workspace"
	}
	return mapped
}

func parseStampTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}
