package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mweiler/primary-preserver/internal/archive"
)

// Filenames produced in the output directory.
const (
	CSVName   = "ledger.csv"
	JSONLName = "ledger.jsonl"
)

// columns is the fixed CSV column order, one column per ledger field.
var columns = []string{
	"title", "year", "chosen_url", "saved_as", "sha256", "validated",
	"has_einstein", "has_venue", "page_sane", "note", "text_len", "pages", "host",
}

// Write persists both representations of the run ledger into outDir:
// a tabular CSV and a line-delimited JSON file with one entry per record.
func Write(outDir string, entries []archive.LedgerEntry) error {
	if err := writeCSV(filepath.Join(outDir, CSVName), entries); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(outDir, JSONLName), entries)
}

func writeCSV(path string, entries []archive.LedgerEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Title,
			e.Year,
			e.ChosenURL,
			e.SavedAs,
			e.SHA256,
			strconv.FormatBool(e.Accepted),
			strconv.FormatBool(e.HasSubject),
			strconv.FormatBool(e.HasVenue),
			strconv.FormatBool(e.PageSane),
			e.Note,
			strconv.Itoa(e.TextLen),
			strconv.Itoa(e.Pages),
			e.Host,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger csv: %w", err)
	}
	return nil
}

func writeJSONL(path string, entries []archive.LedgerEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write ledger jsonl: %w", err)
		}
	}
	return nil
}
