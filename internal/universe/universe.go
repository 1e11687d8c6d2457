package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

const (
	symbolColumn  = "Symbol"
	countryColumn = "Country"
)

// Load reads the stock list at path and returns the symbols listed for the
// given countries. An empty country list keeps every row.
func Load(path string, countries []string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stock list: %w", err)
	}
	defer f.Close()

	symbols, err := Read(f, countries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info("Loaded universe",
		logger.String("path", path),
		logger.Strings("countries", countries),
		logger.Int("symbols", len(symbols)),
	)
	return symbols, nil
}

// Read parses a stock list. Symbols keep their file order and duplicates are
// dropped after the first occurrence.
func Read(r io.Reader, countries []string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.ErrEmptyUniverse
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock list header: %w", err)
	}

	symbolIdx, countryIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case symbolColumn:
			symbolIdx = i
		case countryColumn:
			countryIdx = i
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("stock list has no %q column", symbolColumn)
	}
	if countryIdx < 0 && len(countries) > 0 {
		return nil, fmt.Errorf("stock list has no %q column", countryColumn)
	}

	allowed := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		allowed[strings.TrimSpace(c)] = struct{}{}
	}

	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stock list: %w", err)
		}
		if symbolIdx >= len(row) {
			continue
		}

		symbol := strings.TrimSpace(row[symbolIdx])
		if symbol == "" {
			continue
		}
		if len(allowed) > 0 {
			if countryIdx >= len(row) {
				continue
			}
			if _, ok := allowed[strings.TrimSpace(row[countryIdx])]; !ok {
				continue
			}
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, models.ErrEmptyUniverse
	}
	return symbols, nil
}
