package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mweiler/primary-preserver/internal/archive"
)

func TestReadRecordsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblio.csv")
	content := strings.Join([]string{
		"title,year,doi,bibcode,url_hint",
		`"On the Electrodynamics of Moving Bodies",1905,10.1002/andp.19053221004,1905AnP...322..891E,`,
		`"Short note",,,"",https://archive.org/details/x`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, archive.Record{
		Title:   "On the Electrodynamics of Moving Bodies",
		Year:    "1905",
		DOI:     "10.1002/andp.19053221004",
		Bibcode: "1905AnP...322..891E",
	}, records[0])
	require.Equal(t, "https://archive.org/details/x", records[1].URLHint)
}

func TestReadRecordsCSVHeaderOrderFree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblio.csv")
	content := "bibcode,title\n1905AnP...322..891E,Electrodynamics\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "1905AnP...322..891E", records[0].Bibcode)
	require.Equal(t, "Electrodynamics", records[0].Title)
}

func TestReadRecordsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblio.jsonl")
	content := `{"title":"Die Feldgleichungen der Gravitation","year":"1915","bibcode":"1915SPAW.......844E"}

{"title":"Hinted","url_hint":"https://gallica.bnf.fr/x"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "1915SPAW.......844E", records[0].Bibcode)
	require.Equal(t, "https://gallica.bnf.fr/x", records[1].URLHint)
}

func TestReadRecordsJSONLBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblio.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o600))

	_, err := ReadRecords(path)
	require.Error(t, err)
}

func TestWriteLedger(t *testing.T) {
	dir := t.TempDir()
	entries := []archive.LedgerEntry{
		{
			Title:     "On the Electrodynamics of Moving Bodies",
			Year:      "1905",
			ChosenURL: "http://adsabs.harvard.edu/pdf/1905AnP...322..891E",
			SavedAs:   filepath.Join(dir, "1905_On_the_Electrodynamics.pdf"),
			SHA256:    "deadbeef",
			ValidationResult: archive.ValidationResult{
				HasSubject: true,
				PageSane:   true,
				TextLen:    2400,
				Pages:      13,
				Host:       "adsabs.harvard.edu",
				Accepted:   true,
			},
		},
		{
			Title: "Unresolvable",
			Note:  archive.NoteNoCandidate,
		},
	}
	require.NoError(t, Write(dir, entries))

	f, err := os.Open(filepath.Join(dir, CSVName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, columns, rows[0])
	require.Equal(t, "true", rows[1][5])
	require.Equal(t, "13", rows[1][11])
	require.Equal(t, archive.NoteNoCandidate, rows[2][9])

	raw, err := os.ReadFile(filepath.Join(dir, JSONLName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"validated":true`)
	require.Contains(t, lines[1], archive.NoteNoCandidate)
}
