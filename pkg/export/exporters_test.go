package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rosterFixture() Dataset {
	return Dataset{
		Headers: []string{"ID", "Name"},
		Rows: []map[string]string{
			{"ID": "S001", "Name": "Doe, John"},
			{"ID": "S002", "Name": `Jane "JJ" Smith`},
		},
	}
}

func TestCSVExporterUsesRecordEscaping(t *testing.T) {
	body, err := NewCSVExporter().Render(rosterFixture())
	require.NoError(t, err)
	assert.Equal(t, "ID,Name\nS001,\"Doe, John\"\nS002,\"Jane \"\"JJ\"\" Smith\"\n", string(body))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestXLSXExporterWritesNamedSheet(t *testing.T) {
	body, err := NewXLSXExporter("Roster").Render(rosterFixture())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Roster")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ID", "Name"},
		{"S001", "Doe, John"},
		{"S002", `Jane "JJ" Smith`},
	}, rows)

	_, err = NewXLSXExporter("").Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocuments(t *testing.T) {
	pdf := NewPDFExporter()

	table, err := pdf.Render(rosterFixture(), "Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(table, []byte("%PDF")))

	text, err := pdf.RenderText("Transcript S001", "Line one\nLine two")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(text, []byte("%PDF")))
}
