package crosssection

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a day by instrument table of one metric. Rows follow Dates,
// columns follow Symbols. It is read-only once assembled.
type Matrix struct {
	Dates   []time.Time
	Symbols []string
	Field   string

	values *mat.Dense // nil when either dimension is zero
	filled int
}

// Rows returns the number of days
func (m *Matrix) Rows() int { return len(m.Dates) }

// Cols returns the number of instruments
func (m *Matrix) Cols() int { return len(m.Symbols) }

// At returns the value for day i and instrument j
func (m *Matrix) At(i, j int) float64 {
	return m.values.At(i, j)
}

// Row returns the values of day i. The slice aliases the matrix and must not
// be modified.
func (m *Matrix) Row(i int) []float64 {
	if m.values == nil {
		return nil
	}
	return m.values.RawRowView(i)
}

// Filled returns how many cells had no usable value and were set to 0
func (m *Matrix) Filled() int { return m.filled }

// Dense exposes the underlying matrix
func (m *Matrix) Dense() mat.Matrix {
	if m.values == nil {
		return nil
	}
	return m.values
}

// Assembler combines accepted series into a Matrix
type Assembler struct {
	field string
}

// NewAssembler creates an assembler for the given record field. An empty
// field selects the ranking metric.
func NewAssembler(field string) (*Assembler, error) {
	if field == "" {
		field = models.RankingField
	}
	if !models.IsKnownField(field) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownField, field)
	}
	return &Assembler{field: field}, nil
}

// Assemble builds the matrix. Rows are the sorted union of every candidate
// date; a day an instrument has no record for, or a missing value, is 0.
func (a *Assembler) Assemble(candidates *models.CandidateSet) (*Matrix, error) {
	symbols := candidates.Symbols()

	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, symbol := range symbols {
		series, _ := candidates.Get(symbol)
		for _, r := range series.Records {
			if _, ok := seen[r.Date]; ok {
				continue
			}
			seen[r.Date] = struct{}{}
			dates = append(dates, r.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	m := &Matrix{Dates: dates, Symbols: symbols, Field: a.field}
	if len(dates) == 0 || len(symbols) == 0 {
		return m, nil
	}

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}

	m.values = mat.NewDense(len(dates), len(symbols), nil)
	present := make([]bool, len(dates)*len(symbols))
	for j, symbol := range symbols {
		series, _ := candidates.Get(symbol)
		for k := range series.Records {
			value, err := series.Records[k].Field(a.field)
			if err != nil {
				return nil, fmt.Errorf("symbol %s: %w", symbol, err)
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			i := rowOf[series.Records[k].Date]
			m.values.Set(i, j, value)
			present[i*len(symbols)+j] = true
		}
	}

	for _, ok := range present {
		if !ok {
			m.filled++
		}
	}
	if m.filled > 0 {
		logger.Debug("Filled missing cells with 0",
			logger.String("field", a.field),
			logger.Int("cells", m.filled),
			logger.Int("rows", m.Rows()),
			logger.Int("cols", m.Cols()),
		)
	}
	return m, nil
}
