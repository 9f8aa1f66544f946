package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/metrics"
	"github.com/mweiler/primary-preserver/internal/trust"
)

// QuarantineDirName is the subdirectory rejected-but-retrieved files move to.
const QuarantineDirName = "quarantine"

// bookHostMarker identifies the trusted host that serves scanned books
// through a print-friendly reader; its renders get the relaxed page-count
// rule.
const bookHostMarker = "gutenberg.org"

// OrchestratorConfig controls the archive run.
type OrchestratorConfig struct {
	OutDir        string
	Concurrency   int
	Delay         time.Duration
	AllowLicensed bool
	UseBrowser    bool
	MaxRecords    int
}

// Orchestrator drives resolve, fetch, render and validate for every record
// over a bounded worker pool and owns ledger-entry creation.
type Orchestrator struct {
	cfg       OrchestratorConfig
	resolver  Resolver
	fetcher   Fetcher
	renderer  Renderer
	validator Validator
	hasher    Hasher
	policy    *trust.Policy
	logger    *zap.Logger
	runID     string

	total       atomic.Int64
	done        atomic.Int64
	validated   atomic.Int64
	quarantined atomic.Int64
	failed      atomic.Int64
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	cfg OrchestratorConfig,
	resolver Resolver,
	fetcher Fetcher,
	renderer Renderer,
	validator Validator,
	hasher Hasher,
	policy *trust.Policy,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	runID := uuid.NewString()
	return &Orchestrator{
		cfg:       cfg,
		resolver:  resolver,
		fetcher:   fetcher,
		renderer:  renderer,
		validator: validator,
		hasher:    hasher,
		policy:    policy,
		logger:    logger.With(zap.String("run_id", runID)),
		runID:     runID,
	}
}

// RunID identifies this run in logs and the status endpoint.
func (o *Orchestrator) RunID() string { return o.runID }

// Progress returns the current counters for the status listener.
func (o *Orchestrator) Progress() (total, done, validated, quarantined, failed int) {
	return int(o.total.Load()), int(o.done.Load()), int(o.validated.Load()),
		int(o.quarantined.Load()), int(o.failed.Load())
}

type indexedRecord struct {
	idx int
	rec Record
}

type indexedEntry struct {
	idx   int
	entry LedgerEntry
}

// Run processes every record through the pipeline and returns one ledger
// entry per record, in input order. Workers never share mutable state:
// results fan into a channel consumed by a single aggregator.
func (o *Orchestrator) Run(ctx context.Context, records []Record) ([]LedgerEntry, error) {
	if o.cfg.MaxRecords > 0 && len(records) > o.cfg.MaxRecords {
		records = records[:o.cfg.MaxRecords]
	}
	o.total.Store(int64(len(records)))

	if err := os.MkdirAll(o.cfg.OutDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(o.cfg.OutDir, QuarantineDirName), 0o750); err != nil {
		return nil, fmt.Errorf("create quarantine dir: %w", err)
	}

	jobs := make(chan indexedRecord)
	results := make(chan indexedEntry)

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- indexedEntry{idx: job.idx, entry: o.processGuarded(ctx, job.rec)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, rec := range records {
			select {
			case jobs <- indexedRecord{idx: i, rec: rec}:
			case <-ctx.Done():
				// Submission is the only external cancellation point;
				// in-flight records run to completion.
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make([]LedgerEntry, len(records))
	for res := range results {
		entries[res.idx] = res.entry
		o.done.Add(1)
		o.count(res.entry)
	}
	return entries, nil
}

func (o *Orchestrator) count(entry LedgerEntry) {
	switch {
	case entry.Accepted:
		o.validated.Add(1)
		metrics.RecordOutcome("validated")
	case entry.Note == NoteNoCandidate:
		metrics.RecordOutcome("no_candidate")
	case entry.SavedAs != "":
		o.quarantined.Add(1)
		metrics.RecordOutcome("quarantined")
	default:
		o.failed.Add(1)
		metrics.RecordOutcome("failed")
	}
}

// processGuarded isolates one record's pipeline: a panic becomes a ledger
// entry with a fatal note instead of aborting the run.
func (o *Orchestrator) processGuarded(ctx context.Context, rec Record) (entry LedgerEntry) {
	metrics.WorkerStarted()
	defer metrics.WorkerDone()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("record pipeline panicked",
				zap.String("title", rec.Title),
				zap.Any("panic", r),
			)
			entry = LedgerEntry{Title: rec.Title, Year: rec.Year, Note: fmt.Sprintf("fatal:%v", r)}
		}
	}()
	return o.process(ctx, rec)
}

func (o *Orchestrator) process(ctx context.Context, rec Record) LedgerEntry {
	entry := LedgerEntry{Title: rec.Title, Year: rec.Year}

	candidates := o.resolver.Resolve(ctx, rec)
	if len(candidates) == 0 {
		entry.Note = NoteNoCandidate
		return entry
	}

	outPath := filepath.Join(o.cfg.OutDir, BaseName(rec)+".pdf")

	for i, candidate := range candidates {
		if o.policy.IsLicensed(candidate) && !o.cfg.AllowLicensed {
			continue
		}
		if i > 0 && o.cfg.Delay > 0 {
			sleepCtx(ctx, o.cfg.Delay)
		}
		entry.ChosenURL = candidate

		outcome := o.fetcher.Fetch(ctx, candidate, outPath)
		switch outcome.Class {
		case FetchSavedPDF:
			if accepted := o.finish(&entry, outPath, outcome.FinalURL, false); accepted {
				return entry
			}

		case FetchNeedsRender:
			book := strings.Contains(strings.ToLower(outcome.FinalURL), bookHostMarker)
			if o.renderer == nil || (!o.cfg.UseBrowser && !book) {
				entry.Note = "html_no_primary_pdf"
				continue
			}
			err := o.renderer.RenderPDF(ctx, outcome.FinalURL, outPath)
			metrics.RenderAttempt(err == nil)
			if err != nil {
				entry.Note = "html_no_primary_pdf"
				continue
			}
			if accepted := o.finish(&entry, outPath, outcome.FinalURL, book); accepted {
				return entry
			}

		case FetchRejected:
			entry.Note = outcome.Note
		}
	}
	return entry
}

// finish validates a retrieved file, accepting it in place or moving it to
// quarantine. It reports whether the record is done.
func (o *Orchestrator) finish(entry *LedgerEntry, outPath, sourceURL string, book bool) bool {
	res := o.validator.Validate(outPath, sourceURL, book)
	entry.ValidationResult = res

	if !res.Accepted {
		qPath := filepath.Join(o.cfg.OutDir, QuarantineDirName, filepath.Base(outPath))
		if err := os.Rename(outPath, qPath); err != nil {
			o.logger.Warn("quarantine move failed", zap.String("path", outPath), zap.Error(err))
			entry.Note = fmt.Sprintf("error:quarantine:%v", err)
			return false
		}
		entry.SavedAs = qPath
		entry.Note = NoteQuarantined
		return false
	}

	hash, err := o.hasher.HashFile(outPath)
	if err != nil {
		o.logger.Warn("hash accepted file failed", zap.String("path", outPath), zap.Error(err))
		entry.Accepted = false
		entry.Note = fmt.Sprintf("error:hash:%v", err)
		return false
	}
	entry.SavedAs = outPath
	entry.SHA256 = hash
	entry.Note = ""
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// LogSummary prints the run outcome: validated count plus a handful of
// diagnostics for non-validated records to aid triage.
func LogSummary(logger *zap.Logger, entries []LedgerEntry) {
	validated := 0
	var bad []LedgerEntry
	for _, e := range entries {
		if e.Accepted {
			validated++
		} else {
			bad = append(bad, e)
		}
	}
	logger.Info("archive run complete",
		zap.Int("validated", validated),
		zap.Int("total", len(entries)),
	)
	if len(bad) > 5 {
		bad = bad[:5]
	}
	for _, e := range bad {
		logger.Warn("not validated",
			zap.String("title", e.Title),
			zap.String("note", e.Note),
			zap.String("host", e.Host),
			zap.Int("pages", e.Pages),
			zap.Int("text_len", e.TextLen),
		)
	}
}
