package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"notes.txt", true},
		{"readme.md", true},
		{"data.csv", true},
		{"payload.json", true},
		{"slides.docx", true},
		{"sheet.XLSX", true},
		{"archive.zip", false},
		{"image.png", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.filename))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("Report.PDF"))
	assert.Equal(t, "", Extension("noextension"))
}

func TestText_PlainFormats(t *testing.T) {
	for _, filename := range []string{"a.txt", "a.md", "a.csv", "a.json"} {
		text, err := Text(context.Background(), filename, []byte("raw content"))
		require.NoError(t, err)
		assert.Equal(t, "raw content", text)
	}
}

func TestText_UnsupportedExtension(t *testing.T) {
	_, err := Text(context.Background(), "a.zip", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestText_Xlsx(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "count"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := Text(context.Background(), "data.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, text, "--- Sheet: Sheet1 ---")
	assert.Contains(t, text, "name\tcount")
}

func TestText_MalformedOfficeDocuments(t *testing.T) {
	_, err := Text(context.Background(), "broken.docx", []byte("not a docx"))
	require.Error(t, err)

	_, err = Text(context.Background(), "broken.xlsx", []byte("not a xlsx"))
	require.Error(t, err)
}

func TestText_MalformedPDF(t *testing.T) {
	_, err := Text(context.Background(), "broken.pdf", []byte("not a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse PDF")
}
