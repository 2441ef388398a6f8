package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/dependability/pkg/vitals"
)

func TestExtractPDFBytesJoinsPages(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "two_page_report.pdf"))
	require.NoError(t, err)

	text, err := ExtractPDFBytes(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Heart Rate: 88")
	assert.Contains(t, text, "SpO2 94")
	assert.Contains(t, text, "Heart Rate: 88 bpm\nSpO2 94%")

	rec := Parse(text)
	assert.Equal(t, 88.0, rec.HeartRate)
	assert.Equal(t, 94.0, rec.SpO2)
	assert.Equal(t, vitals.PostureLeft, rec.CurrentPosture)
}

func TestExtractPDFBytesRejectsGarbage(t *testing.T) {
	_, err := ExtractPDFBytes([]byte("not really a pdf"))
	assert.Error(t, err)

	data, err := os.ReadFile(filepath.Join("testdata", "two_page_report.pdf"))
	require.NoError(t, err)
	_, err = ExtractPDFBytes(data[:len(data)/2])
	assert.Error(t, err)
}
