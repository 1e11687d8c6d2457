package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// FilePrefix is the base name of persisted reports
const FilePrefix = "stock_isolator"

// Report is the labeled leaderboard of a run
type Report struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Window      models.Window       `json:"window"`
	KeepBest    int                 `json:"keep_best"`
	KeepWorst   int                 `json:"keep_worst"`
	Columns     []string            `json:"columns"`
	Rows        []models.RankingRow `json:"rows"`
	Candidates  []string            `json:"candidates"`
}

// Day returns the ranking row for a date
func (r *Report) Day(date time.Time) (models.RankingRow, bool) {
	for _, row := range r.Rows {
		if row.Date.Equal(date) {
			return row, true
		}
	}
	return models.RankingRow{}, false
}

// BaseName returns the file name, without extension, for this report
func (r *Report) BaseName() string {
	return fmt.Sprintf("%s_%d", FilePrefix, r.GeneratedAt.Unix())
}

// Columns returns the table header: the date, then a value column (N) and an
// instrument column (Q) per best rank, then the same per worst rank
func Columns(keepBest, keepWorst int) []string {
	cols := make([]string, 0, 1+2*(keepBest+keepWorst))
	cols = append(cols, models.FieldDate)
	for i := 1; i <= keepBest; i++ {
		cols = append(cols, fmt.Sprintf("%dBN", i), fmt.Sprintf("%dBQ", i))
	}
	for i := 1; i <= keepWorst; i++ {
		cols = append(cols, fmt.Sprintf("%dWN", i), fmt.Sprintf("%dWQ", i))
	}
	return cols
}

// Build shapes ranking rows into a report. The rows are not copied.
func Build(runID string, generatedAt time.Time, window models.Window, rows []models.RankingRow, candidates []string) *Report {
	keepBest, keepWorst := 0, 0
	if len(rows) > 0 {
		keepBest, keepWorst = len(rows[0].Best), len(rows[0].Worst)
	}

	cands := make([]string, len(candidates))
	copy(cands, candidates)

	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Window:      window,
		KeepBest:    keepBest,
		KeepWorst:   keepWorst,
		Columns:     Columns(keepBest, keepWorst),
		Rows:        rows,
		Candidates:  cands,
	}
}

// Table returns the header followed by one record per row, values rendered
// with full precision
func (r *Report) Table() [][]string {
	table := make([][]string, 0, len(r.Rows)+1)
	table = append(table, r.Columns)
	for _, row := range r.Rows {
		record := make([]string, 0, len(r.Columns))
		record = append(record, row.Date.Format(time.DateOnly))
		for _, e := range row.Best {
			record = append(record, strconv.FormatFloat(e.Value, 'f', -1, 64), e.Symbol)
		}
		for _, e := range row.Worst {
			record = append(record, strconv.FormatFloat(e.Value, 'f', -1, 64), e.Symbol)
		}
		table = append(table, record)
	}
	return table
}
