// Package archive defines core types shared across the preservation pipeline.
package archive

// Record is one bibliographic entry to be archived. Records are immutable
// inputs; one ledger entry is produced per record.
type Record struct {
	Title   string `json:"title"`
	Year    string `json:"year"`
	DOI     string `json:"doi"`
	Bibcode string `json:"bibcode"`
	URLHint string `json:"url_hint"`
}

// FetchClass tells the orchestrator what the fetcher produced for one URL.
type FetchClass int

// Fetch outcome classes.
const (
	// FetchSavedPDF means the payload was a PDF and was streamed to disk.
	FetchSavedPDF FetchClass = iota
	// FetchNeedsRender means the payload was HTML/text and the final URL
	// should be handed to the renderer bridge.
	FetchNeedsRender
	// FetchRejected means the URL attempt terminated with a diagnostic note.
	FetchRejected
)

// FetchOutcome is the result of attempting one candidate URL.
type FetchOutcome struct {
	Class    FetchClass
	FinalURL string
	Note     string
}

// ValidationResult captures the plausibility checks run on a downloaded PDF.
type ValidationResult struct {
	HasSubject bool   `json:"has_einstein"`
	HasVenue   bool   `json:"has_venue"`
	PageSane   bool   `json:"page_sane"`
	TextLen    int    `json:"text_len"`
	Pages      int    `json:"pages"`
	Host       string `json:"host"`
	Accepted   bool   `json:"validated"`
}

// LedgerEntry is the immutable audit record produced for each input record.
type LedgerEntry struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	ChosenURL string `json:"chosen_url,omitempty"`
	SavedAs   string `json:"saved_as,omitempty"`
	SHA256    string `json:"sha256,omitempty"`
	Note      string `json:"note,omitempty"`
	ValidationResult
}

// NoteNoCandidate marks records whose resolution produced no trusted URL.
const NoteNoCandidate = "no_primary_candidate"

// NoteQuarantined marks retrieved files that failed validation.
const NoteQuarantined = "quarantined_failed_validation"
