package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet     = "Report"
	candidatesSheet = "Candidates"
)

// WriteXLSX writes the report to <dir>/<base name>.xlsx with a Report sheet
// holding the table and a Candidates sheet listing qualifying instruments
func WriteXLSX(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	for i, col := range r.Columns {
		if err := setCell(f, reportSheet, i+1, 1, col); err != nil {
			return "", err
		}
	}
	for i, row := range r.Rows {
		y := i + 2
		if err := setCell(f, reportSheet, 1, y, row.Date); err != nil {
			return "", err
		}
		x := 2
		for _, e := range append(cells(row.Best), cells(row.Worst)...) {
			if err := setCell(f, reportSheet, x, y, e.value); err != nil {
				return "", err
			}
			if err := setCell(f, reportSheet, x+1, y, e.symbol); err != nil {
				return "", err
			}
			x += 2
		}
	}

	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return "", fmt.Errorf("failed to add candidates sheet: %w", err)
	}
	if err := setCell(f, candidatesSheet, 1, 1, "Symbol"); err != nil {
		return "", err
	}
	for i, symbol := range r.Candidates {
		if err := setCell(f, candidatesSheet, 1, i+2, symbol); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, r.BaseName()+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// ReadXLSXCandidates returns the candidate list stored in a report workbook
func ReadXLSXCandidates(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	var out []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		out = append(out, row[0])
	}
	return out, nil
}

type rankCell struct {
	value  float64
	symbol string
}

func cells(entries []models.RankEntry) []rankCell {
	out := make([]rankCell, len(entries))
	for i, e := range entries {
		out[i] = rankCell{value: e.Value, symbol: e.Symbol}
	}
	return out
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", sheet, name, err)
	}
	return nil
}
