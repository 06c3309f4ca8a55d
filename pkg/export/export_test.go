package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridDataset() Dataset {
	return Dataset{
		Headers: []string{"Day", "P1", "P2"},
		Rows: []map[string]string{
			{"Day": "MON", "P1": "CS3461 LAB1 (Morning)", "P2": "CS3461 LAB1"},
			{"Day": "TUE", "P1": "MA3354"},
		},
		Caption: "Effective from 2026-01-05",
	}
}

func TestCSVExporterRendersGridInHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(gridDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Day,P1,P2", lines[0])
	assert.Equal(t, "MON,CS3461 LAB1 (Morning),CS3461 LAB1", lines[1])
	assert.Equal(t, "TUE,MA3354,", lines[2])
}

func TestCSVExporterRejectsMalformedGrids(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{
		Headers: []string{"Day", "P1"},
		Rows:    []map[string]string{{"P1": "MA3354"}},
	})
	assert.ErrorContains(t, err, "has no Day")

	_, err = exporter.Render(Dataset{
		Headers: []string{"Day", "P1"},
		Rows:    []map[string]string{{"Day": "MON", "P9": "MA3354"}},
	})
	assert.ErrorContains(t, err, `unknown column "P9"`)

	_, err = exporter.Render(Dataset{Headers: []string{"Day", "P1", "P1"}})
	assert.ErrorContains(t, err, "duplicate grid column")
}

func TestCSVExporterQuotesCellsWithCommas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Day", "1 (09:00-09:50)"},
		Rows:    []map[string]string{{"Day": "WED", "1 (09:00-09:50)": "Seminar, Hall A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Day,1 (09:00-09:50)\nWED,\"Seminar, Hall A\"\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(gridDataset(), "CSE Year 2 Batch P")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsKeepLabelColumnFixed(t *testing.T) {
	widths := columnWidths(9)
	assert.Equal(t, labelColumnWidth, widths[0])
	assert.InDelta(t, (pageWidthLandscape-labelColumnWidth)/8, widths[8], 0.001)
}
