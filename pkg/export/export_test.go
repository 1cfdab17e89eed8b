package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Class statistics",
		Headers: []string{"class", "students", "average_progress"},
		Rows: []map[string]string{
			{"class": "3A", "students": "24", "average_progress": "57"},
			{"class": "3B, evening", "students": "19"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "class,students,average_progress\n3A,24,57\n\"3B, evening\",19,\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", RendererFor(f).ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, "csv", RendererFor(f).Extension())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
