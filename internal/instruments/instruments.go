// Package instruments loads the instrument universe the monitor watches.
package instruments

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadCSV reads instrument ids from a CSV file with an "instId" column
// (header row required). Blank cells and duplicate ids are dropped,
// preserving first-seen order.
func LoadCSV(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("instruments: open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("instruments: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("instruments: %s is empty", path)
	}

	col := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "instId") {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("instruments: %s has no instId column", path)
	}

	seen := make(map[string]bool, len(records))
	ids := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[col])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("instruments: %s has no instrument ids", path)
	}
	return ids, nil
}
