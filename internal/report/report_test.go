package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleReport() *Report {
	rows := []models.RankingRow{
		{
			Date: day("2023-01-03"),
			Best: []models.RankEntry{
				{Rank: 1, Symbol: "AAA", Value: 1234.5},
				{Rank: 2, Symbol: "BBB", Value: 1.25},
			},
			Worst: []models.RankEntry{{Rank: 1, Symbol: "CCC", Value: -2}},
		},
		{
			Date: day("2023-01-04"),
			Best: []models.RankEntry{
				{Rank: 1, Symbol: "CCC", Value: 3},
				{Rank: 2, Symbol: "AAA", Value: 0},
			},
			Worst: []models.RankEntry{{Rank: 1, Symbol: "BBB", Value: -0.5}},
		},
	}
	window := models.Window{Start: day("2023-01-03"), End: day("2023-01-04")}
	return Build("run-1", time.Unix(1700000000, 0).UTC(), window, rows, []string{"AAA", "BBB", "CCC"})
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"Date", "1BN", "1BQ", "2BN", "2BQ", "1WN", "1WQ"}, Columns(2, 1))
	assert.Equal(t, []string{"Date"}, Columns(0, 0))

	cols := Columns(11, 0)
	assert.Equal(t, "2BN", cols[3])
	assert.Equal(t, "10BN", cols[19])
	assert.Equal(t, "11BQ", cols[22])
}

func TestBuild(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 2, r.KeepBest)
	assert.Equal(t, 1, r.KeepWorst)
	assert.Equal(t, "stock_isolator_1700000000", r.BaseName())

	row, ok := r.Day(day("2023-01-04"))
	require.True(t, ok)
	assert.Equal(t, "CCC", row.Best[0].Symbol)

	_, ok = r.Day(day("2023-01-05"))
	assert.False(t, ok)

	table := r.Table()
	require.Len(t, table, 3)
	assert.Equal(t, []string{"2023-01-03", "1234.5", "AAA", "1.25", "BBB", "-2", "CCC"}, table[1])
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	path, err := WriteCSV(dir, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stock_isolator_1700000000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Date", "1BN", "1BQ", "2BN", "2BQ", "1WN", "1WQ"}, records[0])
	assert.Equal(t, "BBB", records[2][6])
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteXLSX(dir, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	candidates, err := ReadXLSXCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, candidates)
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.5, "+1,234.50%"},
		{0, "+0.00%"},
		{-2.5, "-2.50%"},
		{1.25, "+1.25%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConsole_Render(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	r := sampleReport()
	r.Candidates = make([]string, 20)
	for i := range r.Candidates {
		r.Candidates[i] = "S" + string(rune('A'+i))
	}
	require.NoError(t, c.Render(r))

	out := buf.String()
	assert.Contains(t, out, "List of stocks that meet the requirements")
	assert.Contains(t, out, "+1,234.50%")
	assert.Contains(t, out, "1WQ")

	lines := c.symbolLines(r.Candidates)
	require.Len(t, lines, 2)
	assert.Len(t, strings.Fields(lines[0]), DefaultSymbolsPerLine)
	assert.Len(t, strings.Fields(lines[1]), 2)

	assert.Len(t, c.WithSymbolsPerLine(5).symbolLines(r.Candidates), 4)
}

type fakeUploader struct {
	keys []string
	body []string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(input.Body)
	f.keys = append(f.keys, *input.Bucket+"/"+*input.Key)
	f.body = append(f.body, string(data))
	return &manager.UploadOutput{}, nil
}

func TestS3Sink_Upload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stock_isolator_1.csv")
	require.NoError(t, os.WriteFile(file, []byte("Date\n"), 0o644))

	up := &fakeUploader{}
	sink, err := NewS3SinkWithUploader(up, "reports", "isolator/")
	require.NoError(t, err)

	location, err := sink.Upload(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/isolator/stock_isolator_1.csv", location)
	assert.Equal(t, []string{"reports/isolator/stock_isolator_1.csv"}, up.keys)
	assert.Equal(t, []string{"Date\n"}, up.body)

	up.err = errors.New("denied")
	_, err = sink.Upload(context.Background(), file)
	assert.Error(t, err)

	_, err = NewS3SinkWithUploader(up, "", "")
	assert.Error(t, err)
}

type recordingUploader struct{ files []string }

func (r *recordingUploader) Upload(ctx context.Context, file string) (string, error) {
	r.files = append(r.files, file)
	return "mem://" + filepath.Base(file), nil
}

func TestPublisher(t *testing.T) {
	up := &recordingUploader{}
	p, err := NewPublisher(t.TempDir(), []string{"csv", "xlsx"}, up)
	require.NoError(t, err)

	paths, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, paths, up.files)

	_, err = NewPublisher(t.TempDir(), []string{"pdf"}, nil)
	assert.Error(t, err)
}
