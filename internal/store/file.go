package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/shanehull/wsbscraper/internal/types"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheetName = "Sheet1"
)

var fileHeader = []interface{}{"run_date", "ticker", "mention_count", "sentiment", "post_date"}

type csvRecord struct {
	RunDate      string `csv:"run_date"`
	Ticker       string `csv:"ticker"`
	MentionCount string `csv:"mention_count"`
	Sentiment    string `csv:"sentiment"`
	PostDate     string `csv:"post_date"`
}

// FileSink writes each run to a new timestamped file in dir.
type FileSink struct {
	dir    string
	format string
	now    func() time.Time

	lastPath string
}

func NewFileSink(dir, format string) (*FileSink, error) {
	switch format {
	case "":
		format = FormatCSV
	case FormatCSV, FormatXLSX:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir, format: format, now: time.Now}, nil
}

func (s *FileSink) Name() string {
	return "file"
}

// Path returns the file written by the last successful Save.
func (s *FileSink) Path() string {
	return s.lastPath
}

func (s *FileSink) Deliver(ctx context.Context, report *types.RunReport) (int, error) {
	return deliver(ctx, s, report)
}

func (s *FileSink) Save(_ context.Context, rows []Row) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("wsb_stock_%s_data_%s.%s", s.format, s.now().UTC().Format("20060102150405"), s.format)
	path := filepath.Join(s.dir, name)

	var err error
	if s.format == FormatXLSX {
		err = writeXLSX(path, rows)
	} else {
		err = writeCSV(path, rows)
	}
	if err != nil {
		return err
	}

	s.lastPath = path
	return nil
}

func formatRow(r Row) csvRecord {
	rec := csvRecord{
		RunDate:      r.RunDate.UTC().Format(time.DateOnly),
		Ticker:       r.Ticker,
		MentionCount: strconv.Itoa(r.MentionCount),
		Sentiment:    strconv.FormatFloat(r.Sentiment, 'f', -1, 64),
	}
	if r.PostDate != nil {
		rec.PostDate = r.PostDate.UTC().Format(time.RFC3339)
	}
	return rec
}

func writeCSV(path string, rows []Row) error {
	records := make([]*csvRecord, 0, len(rows))
	for _, r := range rows {
		rec := formatRow(r)
		records = append(records, &rec)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.Marshal(&records, f); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return f.Close()
}

func writeXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &fileHeader); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := formatRow(r)
		values := []interface{}{rec.RunDate, r.Ticker, r.MentionCount, r.Sentiment, rec.PostDate}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
