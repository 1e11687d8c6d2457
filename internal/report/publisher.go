package report

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

// Uploader copies a persisted report file somewhere else
type Uploader interface {
	Upload(ctx context.Context, file string) (string, error)
}

// Publisher persists reports in the configured formats
type Publisher struct {
	dir      string
	formats  []string
	uploader Uploader // optional
}

// NewPublisher creates a publisher writing to dir. Supported formats are
// "csv" and "xlsx"; no formats means csv.
func NewPublisher(dir string, formats []string, uploader Uploader) (*Publisher, error) {
	if len(formats) == 0 {
		formats = []string{"csv"}
	}
	for _, f := range formats {
		if f != "csv" && f != "xlsx" {
			return nil, fmt.Errorf("unsupported report format %q", f)
		}
	}
	return &Publisher{dir: dir, formats: formats, uploader: uploader}, nil
}

// Publish writes every format and uploads the files when an uploader is set.
// It returns the local paths written.
func (p *Publisher) Publish(ctx context.Context, r *Report) ([]string, error) {
	var paths []string
	for _, format := range p.formats {
		var (
			path string
			err  error
		)
		switch format {
		case "csv":
			path, err = WriteCSV(p.dir, r)
		case "xlsx":
			path, err = WriteXLSX(p.dir, r)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
		logger.WithContext(ctx).Info("Saved report",
			logger.String("format", format),
			logger.String("path", path),
		)
	}

	if p.uploader == nil {
		return paths, nil
	}
	for _, path := range paths {
		if _, err := p.uploader.Upload(ctx, path); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
