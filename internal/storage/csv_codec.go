package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// SeriesHeader is the column layout of processed series files
var SeriesHeader = append([]string{models.FieldDate}, models.RecordFields...)

// ReadSeriesCSV decodes a processed series file. Columns are matched by
// header name; numeric cells that are empty or "null" decode as NaN.
func ReadSeriesCSV(symbol string, r io.Reader) (*models.InstrumentSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptySeries, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	dateCol, ok := columns[models.FieldDate]
	if !ok {
		return nil, fmt.Errorf("missing %q column", models.FieldDate)
	}

	var records []models.DailyRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := models.ParseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := models.DailyRecord{Date: date}

		for _, field := range models.RecordFields {
			col, ok := columns[field]
			if !ok || col >= len(row) {
				continue
			}
			v, err := parseCell(row[col])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, field, err)
			}
			setField(&rec, field, v)
		}
		records = append(records, rec)
	}

	return models.NewInstrumentSeries(symbol, records), nil
}

// WriteSeriesCSV encodes a series using SeriesHeader
func WriteSeriesCSV(w io.Writer, series *models.InstrumentSeries) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SeriesHeader); err != nil {
		return err
	}

	row := make([]string, len(SeriesHeader))
	for i := range series.Records {
		rec := &series.Records[i]
		row[0] = rec.Date.Format("2006-01-02")
		for j, field := range models.RecordFields {
			v, _ := rec.Field(field)
			row[j+1] = formatCell(v)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func setField(rec *models.DailyRecord, field string, v float64) {
	switch field {
	case models.FieldOpen:
		rec.Open = v
	case models.FieldHigh:
		rec.High = v
	case models.FieldLow:
		rec.Low = v
	case models.FieldClose:
		rec.Close = v
	case models.FieldAdjClose:
		rec.AdjClose = v
	case models.FieldVolume:
		rec.Volume = v
	case models.FieldMarketCap:
		rec.MarketCap = v
	case models.FieldDelta:
		rec.Delta = v
	case models.FieldDeltaPercent:
		rec.DeltaPercent = v
	}
}
