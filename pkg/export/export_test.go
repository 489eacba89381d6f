package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Care history",
		Columns: []Column{
			{Key: "type", Title: "Type", Width: 1},
			{Key: "status", Title: "Status", Width: 1},
			{Key: "note", Title: "Note", Width: 2},
		},
		Rows: []map[string]string{
			{"type": "medication", "status": "completed", "note": "Amoxicillin, 5 ml"},
			{"type": "feeding", "status": "missed"},
		},
	}
}

func TestCSVRenderOrdersColumns(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Type,Status,Note\nmedication,completed,\"Amoxicillin, 5 ml\"\nfeeding,missed,\n", string(out))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset().Columns)
	assert.InDelta(t, pageContentWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.InDelta(t, widths[0]*2, widths[2], 0.001)
}
