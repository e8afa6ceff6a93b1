package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatialforge/holodesk/backend/internal/infrastructure/logging"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

type stubExporter struct {
	err error
}

func (s *stubExporter) Snapshot(time.Time) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(`{"cells":[]}`), nil
}

type memDest struct {
	name string
	fail bool
}

func (d *memDest) Name() string { return d.name }

func (d *memDest) Write(_ context.Context, _ []byte, _ time.Time) (string, error) {
	if d.fail {
		return "", errors.New("write refused")
	}
	return "/dev/null/" + d.name, nil
}

func newPipeline(opts Options, dests ...Destination) *Pipeline {
	return NewPipeline(opts, &stubExporter{}, logging.NewNop()).WithDestinations(dests...)
}

func flush(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(ctx))
}

func TestFocusGainedNeverSaves(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{SaveOnFocusLoss: true, SaveOnMovement: true}, dest)

	accepted := p.Submit(types.Event{Kind: types.EventFocusGained, WindowID: 1, Time: time.Now()})
	assert.False(t, accepted)
	flush(t, p)

	assert.Empty(t, p.Results())
	assert.Equal(t, int64(1), p.Stats().Dropped)
}

func TestPolicySwitchesFilterEvents(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{SaveOnFocusLoss: false, SaveOnMovement: false}, dest)

	assert.False(t, p.Submit(types.Event{Kind: types.EventFocusLost, WindowID: 1}))
	assert.False(t, p.Submit(types.Event{Kind: types.EventMovementStopped, WindowID: 1}))
	assert.True(t, p.Submit(types.Event{Kind: types.EventManualSave}))
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, types.EventManualSave, results[0].Event)
	assert.Equal(t, int64(2), p.Stats().Dropped)
}

func TestEventsProcessedInOrder(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{SaveOnFocusLoss: true}, dest)

	kinds := []types.EventKind{
		types.EventManualSave,
		types.EventWindowClosed,
		types.EventFocusLost,
		types.EventIntervalSave,
	}
	for _, k := range kinds {
		p.Submit(types.Event{Kind: k, Time: time.Now()})
	}
	flush(t, p)

	results := p.Results()
	require.Len(t, results, len(kinds))
	for i, k := range kinds {
		assert.Equal(t, k, results[i].Event)
	}
}

func TestFanOutRecordsPerDestination(t *testing.T) {
	good := &memDest{name: "local_file"}
	bad := &memDest{name: "remote_server", fail: true}
	p := newPipeline(Options{}, good, bad)

	p.SaveNow()
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 2)

	byDest := map[string]types.SaveResult{}
	for _, r := range results {
		byDest[r.Destination] = r
	}
	assert.True(t, byDest["local_file"].Success)
	assert.NotEmpty(t, byDest["local_file"].Location)
	assert.False(t, byDest["remote_server"].Success)
	assert.Contains(t, byDest["remote_server"].Error, "write refused")
}

func TestResultHistoryIsBounded(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{}, dest)

	for i := 0; i < historySize+5; i++ {
		p.SaveNow()
	}
	flush(t, p)

	assert.Len(t, p.Results(), historySize)
	assert.Equal(t, int64(historySize+5), p.Stats().Processed)
}

func TestMovementReportsCoalesce(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{SaveOnMovement: true, MovementDebounce: 20 * time.Millisecond}, dest)

	for i := 1; i <= 8; i++ {
		p.ReportMovement(7, types.Position{X: float64(i), Y: 2, Z: 3})
	}
	time.Sleep(100 * time.Millisecond)
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, types.EventMovementStopped, results[0].Event)
	assert.Equal(t, 7, results[0].WindowID)
	// The one save reflects the last sample of the burst.
	require.NotNil(t, results[0].Position)
	assert.Equal(t, 8.0, results[0].Position.X)
}

func TestContentChangesCoalesce(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{Debounce: 20 * time.Millisecond}, dest)

	for i := 0; i < 5; i++ {
		p.NotifyContentChanged()
	}
	time.Sleep(100 * time.Millisecond)
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, types.EventContentChanged, results[0].Event)
}

func TestWindowClosedCancelsPendingMovement(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{SaveOnMovement: true, MovementDebounce: 30 * time.Millisecond}, dest)

	p.ReportMovement(3, types.Position{X: 1})
	p.WindowClosed(3)
	time.Sleep(120 * time.Millisecond)
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, types.EventWindowClosed, results[0].Event)
}

func TestExportFailureRecordedNotRetried(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := NewPipeline(Options{}, &stubExporter{err: errors.New("registry locked")}, logging.NewNop()).
		WithDestinations(dest)

	p.SaveNow()
	flush(t, p)

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "export", results[0].Destination)
	assert.False(t, results[0].Success)
}

func TestResultHookObservesEverySave(t *testing.T) {
	dest := &memDest{name: "local_file"}
	var mu sync.Mutex
	var seen []types.SaveResult
	p := newPipeline(Options{}, dest)
	p.WithResultHook(func(r types.SaveResult) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	})

	p.SaveNow()
	p.SaveNow()
	flush(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestStopDrainsQueue(t *testing.T) {
	dest := &memDest{name: "local_file"}
	p := newPipeline(Options{}, dest)

	for i := 0; i < 5; i++ {
		p.SaveNow()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Len(t, p.Results(), 5)
}

func TestLocalDestinationWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	dest := NewLocalDestination(dir, false, logging.NewNop())

	loc, err := dest.Write(context.Background(), []byte(`{"cells":[]}`), time.Now())
	require.NoError(t, err)
	assert.FileExists(t, loc)
}

func TestLocalDestinationArchiveCopies(t *testing.T) {
	dir := t.TempDir()
	dest := NewLocalDestination(dir, true, logging.NewNop())

	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	_, err := dest.Write(context.Background(), []byte(`{"cells":[]}`), stamp)
	require.NoError(t, err)
	assert.FileExists(t, dir+"/archive/autosave_20260314T092653.ipynb.gz")
}
