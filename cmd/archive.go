package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/archive"
	"github.com/mweiler/primary-preserver/internal/config"
	"github.com/mweiler/primary-preserver/internal/fetch"
	"github.com/mweiler/primary-preserver/internal/hash/sha256"
	"github.com/mweiler/primary-preserver/internal/ledger"
	"github.com/mweiler/primary-preserver/internal/logging"
	"github.com/mweiler/primary-preserver/internal/metrics"
	"github.com/mweiler/primary-preserver/internal/pdftext"
	"github.com/mweiler/primary-preserver/internal/render"
	"github.com/mweiler/primary-preserver/internal/resolve"
	"github.com/mweiler/primary-preserver/internal/status"
	"github.com/mweiler/primary-preserver/internal/trust"
	"github.com/mweiler/primary-preserver/internal/validate"
)

// newArchiveCmd creates the 'archive' subcommand, which runs the full
// resolve-fetch-validate pipeline over a bibliography file.
func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Runs the preservation pipeline over a bibliography",
		Long: `Reads bibliographic records from --biblio (CSV or JSONL), resolves each
to candidate URLs on trusted hosts, downloads or renders one PDF per record
into --out, and writes ledger.csv plus ledger.jsonl describing the outcome
of every record.`,
		RunE: runArchiveCommand,
	}

	flags := cmd.Flags()
	flags.String("biblio", "", "path to the bibliography file (CSV or JSONL)")
	flags.String("out", "", "output directory for PDFs and the ledger")
	flags.Int("concurrency", 3, "number of records processed in parallel")
	flags.Duration("timeout", 60*time.Second, "per-request HTTP timeout")
	flags.Int("retries", 3, "download attempts per candidate URL")
	flags.Duration("delay", 1500*time.Millisecond, "pause between candidate attempts for one record")
	flags.Bool("allow-licensed", false, "also try candidates on licensed/paywalled hosts")
	flags.Bool("use-browser", false, "render HTML landing pages to PDF with a browser backend")
	flags.Int("max-records", 0, "process at most this many records (0 = all)")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.Bool("accept-scan-only", false, "accept short text-free scans from trusted scan hosts")
	flags.StringSlice("trust-host", nil, "extra host suffix to treat as trusted (repeatable)")
	flags.Bool("require-secrets", false, "fail startup when ADS_TOKEN or UNPAYWALL_EMAIL is missing")
	flags.String("status-addr", "", "listen address for /healthz, /metrics and /progress (empty = disabled)")
	flags.String("log-file", "", "also write logs to this rotating file")
	flags.Bool("dev-log", false, "human-readable console logging")

	v := viper.GetViper()
	bindings := map[string]string{
		"biblio":           "biblio",
		"out":              "out",
		"concurrency":      "concurrency",
		"timeout":          "timeout",
		"retries":          "retries",
		"delay":            "delay",
		"allow_licensed":   "allow-licensed",
		"use_browser":      "use-browser",
		"max_records":      "max-records",
		"insecure":         "insecure",
		"accept_scan_only": "accept-scan-only",
		"trust_hosts":      "trust-host",
		"require_secrets":  "require-secrets",
		"status_addr":      "status-addr",
		"log_file":         "log-file",
		"dev_log":          "dev-log",
	}
	for key, flag := range bindings {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}

	return cmd
}

func runArchiveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.DevLog, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := ledger.ReadRecords(cfg.BiblioPath)
	if err != nil {
		return fmt.Errorf("read bibliography: %w", err)
	}
	if len(records) == 0 {
		return errors.New("bibliography contains no records")
	}
	logger.Info("bibliography loaded",
		zap.String("path", cfg.BiblioPath),
		zap.Int("records", len(records)),
	)

	policy := trust.NewPolicy(cfg.TrustHosts)

	fetchCfg := fetch.Config{
		Timeout:  cfg.RequestTimeout,
		Retries:  cfg.Retries,
		Insecure: cfg.Insecure,
	}
	client := fetch.NewClient(fetchCfg)
	fetcher := fetch.New(fetchCfg, client, logger.Named("fetch"))

	resolver := resolve.New(resolve.Config{
		ADSToken:       cfg.Secrets.ADSToken,
		UnpaywallEmail: cfg.Secrets.UnpaywallEmail,
		Timeout:        cfg.RequestTimeout,
	}, client, policy, logger.Named("resolve"))

	chrome := render.NewChromedp(render.ChromedpConfig{
		NavTimeout:      cfg.RequestTimeout,
		DownloadTimeout: cfg.RequestTimeout,
	}, logger.Named("chromedp"))
	defer chrome.Close()
	renderer := render.NewBridge(logger.Named("render"), render.NewWkhtmltopdf(), chrome)

	validator := validate.New(pdftext.NewFitzInspector(), policy, cfg.AcceptScanOnly, logger.Named("validate"))

	orch := archive.NewOrchestrator(archive.OrchestratorConfig{
		OutDir:        cfg.OutDir,
		Concurrency:   cfg.Concurrency,
		Delay:         cfg.Delay,
		AllowLicensed: cfg.AllowLicensed,
		UseBrowser:    cfg.UseBrowser,
		MaxRecords:    cfg.MaxRecords,
	}, resolver, fetcher, renderer, validator, sha256.New(), policy, logger)

	if cfg.StatusAddr != "" {
		metrics.Init()
	}
	statusSrv := status.Start(cfg.StatusAddr, func() status.Snapshot {
		total, done, validated, quarantined, failed := orch.Progress()
		return status.Snapshot{
			Total:       total,
			Done:        done,
			Validated:   validated,
			Quarantined: quarantined,
			Failed:      failed,
		}
	}, logger.Named("status"))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		statusSrv.Shutdown(shutdownCtx)
	}()

	entries, err := orch.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}

	if err := ledger.Write(cfg.OutDir, entries); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	archive.LogSummary(logger, entries)
	return nil
}
