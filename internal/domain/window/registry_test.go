package window

import (
	"testing"

	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

type mockCleaner struct {
	cleaned []int
}

func (m *mockCleaner) CleanupWindow(id int) {
	m.cleaned = append(m.cleaned, id)
}

func TestIDMonotonicity(t *testing.T) {
	r := NewRegistry(nil)

	a := r.Create(types.WindowChart, nil)
	b := r.Create(types.WindowTabular, nil)
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", a.ID, b.ID)
	}

	// Removing the highest id must not allow reuse.
	r.RemoveWindow(b.ID)
	c := r.Create(types.WindowModel3D, nil)
	if c.ID != 3 {
		t.Errorf("expected id 3 after removal, got %d", c.ID)
	}
}

func TestNextIDEmpty(t *testing.T) {
	r := NewRegistry(nil)
	if r.NextID() != 1 {
		t.Errorf("expected next id 1 for empty registry, got %d", r.NextID())
	}
}

func TestOpenClosedIndependence(t *testing.T) {
	r := NewRegistry(nil)

	rec := r.Create(types.WindowTabular, nil)
	// Never opened: present in full list, absent from open list.
	if got := len(r.ListAll(false)); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
	if got := len(r.ListAll(true)); got != 0 {
		t.Errorf("expected 0 open records, got %d", got)
	}

	r.MarkOpened(rec.ID)
	if got := len(r.ListAll(true)); got != 1 {
		t.Errorf("expected 1 open record, got %d", got)
	}

	r.RemoveWindow(rec.ID)
	if _, ok := r.Get(rec.ID); ok {
		t.Error("removed window should be absent")
	}
}

func TestUnknownIDMutationIsNoOp(t *testing.T) {
	r := NewRegistry(nil)

	if r.UpdateContent(42, "ghost") {
		t.Error("mutation of unknown id should report false")
	}
	if r.UpdatePosition(42, types.Position{X: 1}) {
		t.Error("position update of unknown id should report false")
	}
	if got := len(r.ListAll(false)); got != 0 {
		t.Errorf("no records should exist, got %d", got)
	}
}

func TestAutoTemplateSelection(t *testing.T) {
	r := NewRegistry(nil)
	rec := r.Create(types.WindowTabular, nil)

	r.SetTabularData(rec.ID, &types.TabularData{Columns: []string{"a"}, Rows: [][]float64{{1}}})
	got, _ := r.Get(rec.ID)
	if got.State.Template != types.TemplatePandas {
		t.Errorf("expected pandas template, got %s", got.State.Template)
	}

	// A user-chosen template is never overridden by a later payload.
	r.UpdateTemplate(rec.ID, types.TemplatePlotly)
	r.SetTabularData(rec.ID, &types.TabularData{Columns: []string{"b"}, Rows: nil})
	got, _ = r.Get(rec.ID)
	if got.State.Template != types.TemplatePlotly {
		t.Errorf("expected plotly template preserved, got %s", got.State.Template)
	}

	// Resetting to plain re-arms the rule (literal source behavior).
	r.UpdateTemplate(rec.ID, types.TemplatePlain)
	r.SetTabularData(rec.ID, &types.TabularData{Columns: []string{"c"}, Rows: nil})
	got, _ = r.Get(rec.ID)
	if got.State.Template != types.TemplatePandas {
		t.Errorf("expected pandas after reset, got %s", got.State.Template)
	}
}

func TestTagsOrderPreservingSet(t *testing.T) {
	r := NewRegistry(nil)
	rec := r.Create(types.WindowChart, nil)

	r.AddTags(rec.ID, "b", "a", "b", "c", "a")
	got, _ := r.Get(rec.ID)
	want := []string{"b", "a", "c"}
	if len(got.State.Tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, got.State.Tags)
	}
	for i := range want {
		if got.State.Tags[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got.State.Tags)
		}
	}
}

func TestLastModifiedStamping(t *testing.T) {
	r := NewRegistry(nil)
	rec := r.Create(types.WindowChart, nil)
	created := rec.State.LastModified

	r.UpdateContent(rec.ID, "hello")
	got, _ := r.Get(rec.ID)
	if got.State.LastModified.Before(created) {
		t.Error("lastModified should advance on mutation")
	}

	stamped := got.State.LastModified
	r.Get(rec.ID) // reads never stamp
	again, _ := r.Get(rec.ID)
	if !again.State.LastModified.Equal(stamped) {
		t.Error("lastModified must not change on read")
	}
}

func TestCleanupRemovesOnlyClosed(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Create(types.WindowChart, nil)
	b := r.Create(types.WindowTabular, nil)
	r.Create(types.WindowModel3D, nil)

	r.MarkOpened(a.ID)
	r.MarkOpened(b.ID)
	r.MarkClosed(b.ID)

	purged := r.Cleanup()
	if purged != 2 {
		t.Errorf("expected 2 purged, got %d", purged)
	}
	if _, ok := r.Get(a.ID); !ok {
		t.Error("open window must survive cleanup")
	}
}

func TestClearAllCleansResources(t *testing.T) {
	cleaner := &mockCleaner{}
	r := NewRegistry(nil).WithCleaner(cleaner)

	a := r.Create(types.WindowChart, nil)
	b := r.Create(types.WindowTabular, nil)
	r.MarkOpened(a.ID)
	r.MarkOpened(b.ID)

	r.ClearAll()
	if len(cleaner.cleaned) != 2 {
		t.Errorf("expected cleanup for 2 windows, got %d", len(cleaner.cleaned))
	}
	if r.Stats().TotalWindows != 0 {
		t.Error("registry should be empty after ClearAll")
	}
}

func TestMarkClosedIdempotent(t *testing.T) {
	cleaner := &mockCleaner{}
	r := NewRegistry(nil).WithCleaner(cleaner)

	rec := r.Create(types.WindowChart, nil)
	r.MarkOpened(rec.ID)
	r.MarkClosed(rec.ID)
	r.MarkClosed(rec.ID)

	if len(cleaner.cleaned) != 1 {
		t.Errorf("cleanup should run once, ran %d times", len(cleaner.cleaned))
	}
}
