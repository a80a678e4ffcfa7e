package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/crmimport/internal/importer"
)

// ContextCheckInterval is how often (in rows) the run checks for cancellation.
var ContextCheckInterval = 100

// ProgressInterval is how often (in rows) progress is published.
var ProgressInterval = 100

// runImport streams the CSV in r through the process stage, one row at a time.
func (s *Service) runImport(ctx context.Context, imp *activeImport, r io.Reader, size int64) *ImportResult {
	result := &ImportResult{
		ImportID: imp.id,
		Kind:     imp.kind,
		FileName: imp.fileName,
	}

	counter := WrapForStreaming(r, size)
	reader := csv.NewReader(counter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	imp.update(func(p *ImportProgress) { p.Phase = PhaseReading })

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		result.Error = "empty file"
		return result
	}
	if err != nil {
		result.Error = fmt.Sprintf("invalid csv: %v", err)
		return result
	}
	for i := range header {
		header[i] = CleanCell(header[i])
	}
	result.Header = header

	imp.update(func(p *ImportProgress) {
		p.Phase = PhaseProcessing
		p.BytesRead = counter.BytesRead
	})

	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 && ctx.Err() != nil {
			return interrupted(ctx, result)
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.TotalRows++
			result.FailedRows = append(result.FailedRows, FailedRow{
				LineNumber: parseErr.Line,
				Reason:     fmt.Sprintf("invalid csv: %v", parseErr.Err),
				Data:       record,
			})
			continue
		}
		if err != nil {
			result.Error = fmt.Sprintf("read file: %v", err)
			return result
		}

		result.TotalRows++
		line, _ := reader.FieldPos(0)

		if isEmptyRow(record) {
			result.Skipped++
			continue
		}

		res, err := s.pipeline.Process(ctx, imp.event, makeRow(header, record))
		switch {
		case err != nil && ctx.Err() != nil:
			return interrupted(ctx, result)
		case err != nil:
			result.FailedRows = append(result.FailedRows, FailedRow{
				LineNumber: line,
				Reason:     err.Error(),
				Data:       record,
			})
		case res.Merged:
			result.Merged++
		default:
			result.Inserted++
		}

		if result.TotalRows%ProgressInterval == 0 {
			imp.update(func(p *ImportProgress) {
				p.CurrentRow = result.TotalRows
				p.Inserted = result.Inserted
				p.Merged = result.Merged
				p.Skipped = result.Skipped
				p.Failed = result.Failed()
				p.BytesRead = counter.BytesRead
			})
		}
	}

	imp.update(func(p *ImportProgress) {
		p.CurrentRow = result.TotalRows
		p.BytesRead = counter.BytesRead
	})
	return result
}

// interrupted marks result as cancelled, or failed when the run timed out.
func interrupted(ctx context.Context, result *ImportResult) *ImportResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Error = "import timeout: context deadline exceeded"
		return result
	}
	result.Cancelled = true
	result.Error = "import cancelled"
	return result
}

// makeRow keys a record by header. Extra cells without a header are dropped
// and missing trailing cells are left out of the row.
func makeRow(header, record []string) importer.Row {
	row := make(importer.Row, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		row[name] = CleanCell(record[i])
	}
	return row
}

// CleanCell trims whitespace and strips the ="..." wrapper spreadsheet
// exports put around values that must stay text.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
