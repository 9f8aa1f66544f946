package archive

import "context"

// Resolver turns one record into an ordered list of trusted candidate URLs.
// Resolution never fails: network errors degrade to fewer candidates, and an
// empty list means "no primary candidate".
type Resolver interface {
	Resolve(ctx context.Context, rec Record) []string
}

// Fetcher retrieves one URL with retry/backoff and streams PDF payloads to
// outPath. It classifies what it fetched rather than returning raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, outPath string) FetchOutcome
}

// Renderer converts an HTML page at a trusted URL into a PDF at outPath.
type Renderer interface {
	RenderPDF(ctx context.Context, rawURL, outPath string) error
}

// Validator inspects a downloaded PDF and decides acceptance. A corrupt or
// non-PDF file yields an all-false zero result, never an error.
type Validator interface {
	Validate(path, sourceURL string, book bool) ValidationResult
}

// Hasher computes digests for integrity verification of accepted files.
type Hasher interface {
	HashFile(path string) (string, error)
}
