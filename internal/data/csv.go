package data

import (
	"encoding/csv"
	"fmt"
	"os"
)

// LoadCSV reads a headered CSV into a Dataset.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s: no data rows", path)
	}
	return &Dataset{Columns: rows[0], Rows: rows[1:]}, nil
}
