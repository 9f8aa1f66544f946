// Package ledger reads bibliography inputs and writes the run's audit trail.
package ledger

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mweiler/primary-preserver/internal/archive"
)

// ReadRecords loads the bibliography produced by the discovery step. CSV
// files need a header with title,year,doi,bibcode,url_hint columns (order
// free); anything else is treated as line-delimited JSON with the same fields.
func ReadRecords(path string) ([]archive.Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSV(path)
	}
	return readJSONL(path)
}

func readCSV(path string) ([]archive.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open biblio %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse biblio csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]archive.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, archive.Record{
			Title:   field(row, "title"),
			Year:    field(row, "year"),
			DOI:     field(row, "doi"),
			Bibcode: field(row, "bibcode"),
			URLHint: field(row, "url_hint"),
		})
	}
	return records, nil
}

func readJSONL(path string) ([]archive.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open biblio %s: %w", path, err)
	}
	defer f.Close()

	var records []archive.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec archive.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parse biblio line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read biblio %s: %w", path, err)
	}
	return records, nil
}
