package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVFile loads an export from a local CSV file.
type CSVFile struct {
	Path string
}

var _ Source = (*CSVFile)(nil)

func (c *CSVFile) Load(_ context.Context) (*File, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", c.Path, err)
	}

	return ParseRecords(filepath.Base(c.Path), records), nil
}
