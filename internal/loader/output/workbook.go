package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/xuri/excelize/v2"
)

const (
	LoaderSheet     = "Loader"
	ProvenanceSheet = "Provenance"
)

var LoaderHeader = []string{"Source Field", "Target Field", "Note"}

// RenderWorkbook lays out one loader result as an xlsx document.
func RenderWorkbook(result documentModel.LoaderResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", LoaderSheet); err != nil {
		return nil, err
	}
	for i, h := range LoaderHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(LoaderSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for r, row := range result.Rows {
		values := []string{row.SourceField, row.TargetField, row.Note}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(LoaderSheet, cell, v); err != nil {
				return nil, fmt.Errorf("row %d: %w", r+1, err)
			}
		}
	}
	_ = f.SetColWidth(LoaderSheet, "A", "B", 36)
	_ = f.SetColWidth(LoaderSheet, "C", "C", 60)

	if _, err := f.NewSheet(ProvenanceSheet); err != nil {
		return nil, err
	}
	p := result.Provenance
	provenance := [][2]string{
		{"Agreement Id", p.AgreementId},
		{"Agreement", p.AgreementName},
		{"Batch Id", p.BatchId},
		{"Standard", p.StandardFilename},
		{"Model", p.Model},
		{"Generated At", p.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Confidence", string(result.Confidence)},
		{"Rows", fmt.Sprint(len(result.Rows))},
		{"Warnings", strings.Join(result.Warnings, "\n")},
	}
	for i, kv := range provenance {
		_ = f.SetCellStr(ProvenanceSheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellStr(ProvenanceSheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(ProvenanceSheet, "A", "A", 16)
	_ = f.SetColWidth(ProvenanceSheet, "B", "B", 60)

	loaderIndex, _ := f.GetSheetIndex(LoaderSheet)
	f.SetActiveSheet(loaderIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf, nil
}
