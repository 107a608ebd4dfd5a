// Package extract turns uploaded document bytes into plain text and splits
// the text into overlapping chunks for ingestion.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// SupportedExtensions lists the file types accepted for upload.
var SupportedExtensions = []string{".pdf", ".txt", ".md", ".csv", ".json", ".docx", ".xlsx"}

// Extension returns the lower-cased file extension including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Supported reports whether the filename's extension is accepted.
func Supported(filename string) bool {
	ext := Extension(filename)
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Text extracts plain text from document content based on the filename's
// extension.
func Text(ctx context.Context, filename string, content []byte) (string, error) {
	switch Extension(filename) {
	case ".pdf":
		return pdfText(ctx, content)
	case ".docx":
		return docxText(content)
	case ".xlsx":
		return xlsxText(ctx, content)
	case ".txt", ".md", ".csv", ".json":
		return string(content), nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", Extension(filename))
	}
}

func pdfText(ctx context.Context, content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func docxText(content []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}

func xlsxText(ctx context.Context, content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse Excel document: %w", err)
	}
	defer f.Close()

	var parts []string
	for _, sheetName := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}

	return strings.Join(parts, "\n\n"), nil
}
