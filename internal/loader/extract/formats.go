package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat/docxtxt"
	"github.com/xuri/excelize/v2"
)

func extractTxt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

const docxBody = "word/document.xml"

// Paragraphs in document order, trimmed, blank ones dropped. The file must be a
// zip carrying the main document part; sniffing by content is not enough.
func extractDocx(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docx reader panicked: %v", r)
		}
	}()

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("not a docx archive: %w", err)
	}
	hasBody := false
	for _, f := range zr.File {
		if f.Name == docxBody {
			hasBody = true
			break
		}
	}
	_ = zr.Close()
	if !hasBody {
		return "", fmt.Errorf("not a docx archive: %s missing", docxBody)
	}

	raw, err := docxtxt.ToStr(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract docx: %w", err)
	}
	var paragraphs []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func (e *extractor) extractPDF(ctx context.Context, path string, log *logger_i.Logger) (text string, numPages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()

	f, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages = f.NumPage()
	parts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", numPages, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			log.Debug("extractPDF", "page value is null", i)
			continue
		}

		content, err := e.protectExtract(page)
		if err != nil {
			// an unreadable page contributes nothing
			log.Warn("page without extractable text", "page", i, "error", err)
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n"), numPages, nil
}

func (e *extractor) protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page decode panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(e.pageTimeout):
		return "", errors.New("page extraction timed out")
	}
}

// Sheets in workbook order, rows top to bottom, non-empty cells joined by a space.
func extractXLSX(path string) (string, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var lines []string
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", len(sheets), fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if c := strings.TrimSpace(cell); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " "))
			}
		}
	}
	return strings.Join(lines, "\n"), len(sheets), nil
}
