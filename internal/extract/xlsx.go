package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor renders every sheet as tab separated rows.
type SpreadsheetExtractor struct {
	logger *slog.Logger
}

func NewSpreadsheetExtractor(logger *slog.Logger) *SpreadsheetExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpreadsheetExtractor{logger: logger}
}

func (e *SpreadsheetExtractor) Extract(_ context.Context, data []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{Method: "xlsx"}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("extract.xlsx.close_failed", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	parts := make([]string, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return Result{Method: "xlsx"}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		lines := []string{"--- Sheet: " + name + " ---"}
		for _, row := range rows {
			line := strings.Join(row, "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
		e.logger.Debug("extract.xlsx.sheet", "sheet", name, "rows", len(lines)-1)
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return Result{Text: strings.Join(parts, "\n\n"), Method: "xlsx", Pages: len(sheets)}, nil
}
