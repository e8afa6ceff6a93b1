package notebook

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatialforge/holodesk/backend/internal/domain/window"
	"github.com/spatialforge/holodesk/backend/internal/shared/types"
)

func newTestRecord(id int, t types.WindowType) *types.WindowRecord {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return &types.WindowRecord{
		ID:   id,
		Type: t,
		State: types.WindowState{
			Opacity:      1.0,
			Template:     types.TemplatePlain,
			LastModified: now,
		},
		CreatedAt: now,
	}
}

func TestExportEmptyRegistryIsValidNotebook(t *testing.T) {
	codec := NewCodec(nil)

	data, err := codec.ExportBytes(nil, nil)
	require.NoError(t, err)

	var doc types.Notebook
	require.NoError(t, sonic.Unmarshal(data, &doc))
	assert.NotNil(t, doc.Cells)
	assert.Len(t, doc.Cells, 0)
	assert.Equal(t, 4, doc.NBFormat)
	require.NotNil(t, doc.Metadata.Export)
	assert.Equal(t, 0, doc.Metadata.Export.TotalWindows)
	assert.Equal(t, "python3", doc.Metadata.Kernelspec.Name)
}

func TestStructuralRoundTrip(t *testing.T) {
	codec := NewCodec(nil)

	rec := newTestRecord(1, types.WindowTabular)
	rec.Position = types.Position{X: 1, Y: 2, Z: 3, Width: 400, Height: 300}
	rec.State.Tags = []string{"a", "b"}
	rec.State.Template = types.TemplatePandas
	rec.State.Minimized = true
	rec.State.Opacity = 0.75

	data, err := codec.ExportBytes([]*types.WindowRecord{rec}, nil)
	require.NoError(t, err)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(data, reg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	got := result.Records[0]
	assert.Equal(t, rec.Position, got.Position)
	assert.Equal(t, []string{"a", "b"}, got.State.Tags)
	assert.Equal(t, types.TemplatePandas, got.State.Template)
	assert.True(t, got.State.Minimized)
	assert.Equal(t, 0.75, got.State.Opacity)
	assert.Equal(t, types.WindowTabular, got.Type)
}

func TestImportNeverCollidesWithExistingIDs(t *testing.T) {
	codec := NewCodec(nil)

	reg := window.NewRegistry(nil)
	reg.CreateWithID(1, types.WindowChart, nil)
	reg.CreateWithID(2, types.WindowChart, nil)
	reg.CreateWithID(5, types.WindowChart, nil)

	// Document ids deliberately collide with live ids.
	recA := newTestRecord(1, types.WindowTabular)
	recB := newTestRecord(2, types.WindowChart)
	data, err := codec.ExportBytes([]*types.WindowRecord{recA, recB}, nil)
	require.NoError(t, err)

	result, err := codec.Import(data, reg)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, 6, result.Records[0].ID)
	assert.Equal(t, 7, result.Records[1].ID)
	assert.Equal(t, 6, result.IDMapping[1])
	assert.Equal(t, 7, result.IDMapping[2])

	// Restored records are inserted, originals untouched.
	assert.Equal(t, 5, len(reg.ListAll(false)))
}

func TestGeneratedContentDeterminism(t *testing.T) {
	rec := newTestRecord(3, types.WindowPointCloud)
	rec.State.PointCloud = &types.PointCloud{
		Title: "Scan",
		Points: []types.Point3D{
			{X: 0.1, Y: -2.5, Z: 3},
			{X: 1e-05, Y: 0, Z: 42.25},
		},
	}

	first := GenerateContent(rec)
	second := GenerateContent(rec)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestPerCellImportIsolation(t *testing.T) {
	codec := NewCodec(nil)

	doc := []byte(`{
		"cells": [
			{"cell_type": "code", "metadata": {"window_type": "chart"}, "source": ["# A\n"], "execution_count": null, "outputs": []},
			{"cell_type": "code", "metadata": {"window_type": 7}, "source": [], "execution_count": null, "outputs": []},
			{"cell_type": "code", "metadata": {"window_type": "tabular"}, "source": ["# C\n"], "execution_count": null, "outputs": []}
		],
		"metadata": {}, "nbformat": 4, "nbformat_minor": 5
	}`)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(doc, reg)
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Cell)

	// A failed cell does not consume an id.
	assert.Equal(t, 1, result.Records[0].ID)
	assert.Equal(t, 2, result.Records[1].ID)
}

func TestImportSkipsForeignCells(t *testing.T) {
	codec := NewCodec(nil)

	doc := []byte(`{
		"cells": [
			{"cell_type": "markdown", "metadata": {}, "source": ["# Just a notebook\n"]},
			{"cell_type": "code", "metadata": {"window_type": "hologram"}, "source": []},
			{"cell_type": "code", "metadata": {"window_type": "chart"}, "source": ["# Real\n"]}
		],
		"metadata": {}, "nbformat": 4, "nbformat_minor": 5
	}`)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(doc, reg)
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Empty(t, result.Errors)
}

func TestImportFatalErrors(t *testing.T) {
	codec := NewCodec(nil)
	reg := window.NewRegistry(nil)

	_, err := codec.Import([]byte("not json at all"), reg)
	assert.ErrorIs(t, err, ErrInvalidNotebook)

	_, err = codec.Import([]byte(`{"metadata": {}, "nbformat": 4}`), reg)
	assert.ErrorIs(t, err, ErrMissingCells)

	assert.Empty(t, reg.ListAll(false))
}

func TestImportAcceptsStringSource(t *testing.T) {
	codec := NewCodec(nil)

	doc := []byte(`{
		"cells": [
			{"cell_type": "code", "metadata": {"window_type": "spatial_editor"}, "source": "line one\nline two\n"}
		],
		"metadata": {}, "nbformat": 4, "nbformat_minor": 5
	}`)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(doc, reg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "line one\nline two\n", result.Records[0].State.Content)
}

func TestImportDefaultsMalformedFields(t *testing.T) {
	codec := NewCodec(nil)

	doc := []byte(`{
		"cells": [
			{"cell_type": "code", "metadata": {
				"window_type": "chart",
				"position": "not an object",
				"tags": 42,
				"timestamps": {"created": "garbage"}
			}, "source": []}
		],
		"metadata": {}, "nbformat": 4, "nbformat_minor": 5
	}`)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(doc, reg)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	got := result.Records[0]
	assert.Equal(t, types.Position{}, got.Position)
	assert.Empty(t, got.State.Tags)
	assert.Equal(t, types.TemplatePlain, got.State.Template)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestImportCarriesOriginalSummary(t *testing.T) {
	codec := NewCodec(nil)

	rec := newTestRecord(1, types.WindowChart)
	rec.State.Tags = []string{"demo"}
	data, err := codec.ExportBytes([]*types.WindowRecord{rec}, nil)
	require.NoError(t, err)

	reg := window.NewRegistry(nil)
	result, err := codec.Import(data, reg)
	require.NoError(t, err)
	require.NotNil(t, result.Original)
	assert.Equal(t, 1, result.Original.TotalWindows)
	assert.Contains(t, result.Original.AllTags, "demo")
}
