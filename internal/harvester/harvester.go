// Package harvester runs one full harvest: acquire the navigation session, search, collect
// the month window, write the report, then record and announce the run.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/khobor-report/internal/collector"
	"github.com/Adda-Baaj/khobor-report/internal/config"
	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/enrich"
	"github.com/Adda-Baaj/khobor-report/internal/ledger"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
	"github.com/Adda-Baaj/khobor-report/pkg/publishers"
)

// Session is the exclusively owned navigation resource of a run.
type Session interface {
	collector.ArticleSource
	Open(ctx context.Context, siteURL string) error
	Search(ctx context.Context, phrase string) error
	Close() error
}

// SessionFactory acquires a navigation session.
type SessionFactory func(ctx context.Context) (Session, error)

// ReportWriter persists the records.
type ReportWriter interface {
	Write(records []domain.Record, outputPath string) error
}

// RunRecorder stores run summaries.
type RunRecorder interface {
	Record(ctx context.Context, run ledger.RunSummary) error
}

// Deps are the collaborators of a Harvester. Ledger and Publishers are optional.
type Deps struct {
	Sessions   SessionFactory
	Images     collector.ImageResolver
	Report     ReportWriter
	Ledger     RunRecorder
	Publishers []publishers.Publisher
	Log        logger.Logger
	Now        func() time.Time
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string
	Records    []domain.Record
	Stats      collector.Stats
	ReportPath string
}

// Harvester runs the pipeline for one configuration.
type Harvester struct {
	cfg  config.Config
	deps Deps
	log  logger.Logger
}

// New builds a Harvester.
func New(cfg config.Config, deps Deps) *Harvester {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Harvester{cfg: cfg, deps: deps, log: logger.Ensure(deps.Log)}
}

// Run executes the pipeline. Only session failures and report write failures are
// returned; the session is released on every path.
func (h *Harvester) Run(ctx context.Context) (Result, error) {
	summary := ledger.RunSummary{
		ID:           uuid.NewString(),
		SiteURL:      h.cfg.SiteURL,
		SearchPhrase: h.cfg.SearchPhrase,
		NewsCategory: h.cfg.NewsCategory,
		Months:       h.cfg.Months,
		StartedAt:    h.deps.Now(),
	}
	log := h.log.With(map[string]any{"run_id": summary.ID})

	log.InfoObj("harvest started", "run_start", map[string]any{
		"site_url": h.cfg.SiteURL,
		"phrase":   h.cfg.SearchPhrase,
		"category": h.cfg.NewsCategory,
		"months":   h.cfg.Months,
	})

	var (
		records []domain.Record
		stats   collector.Stats
	)
	err := h.withSession(ctx, log, func(s Session) error {
		if err := s.Open(ctx, h.cfg.SiteURL); err != nil {
			return err
		}
		if err := s.Search(ctx, h.cfg.SearchPhrase); err != nil {
			return err
		}

		c := collector.New(s, enrich.New(h.cfg.SearchPhrase), h.deps.Images, h.cfg.Months, log,
			collector.WithClock(h.deps.Now))
		var cerr error
		records, cerr = c.Collect(ctx)
		stats = c.Stats()
		return cerr
	})
	if err == nil {
		if werr := h.deps.Report.Write(records, h.cfg.ReportPath()); werr != nil {
			err = fmt.Errorf("write report: %w", werr)
		} else {
			summary.ReportPath = h.cfg.ReportPath()
		}
	}

	summary.FinishedAt = h.deps.Now()
	summary.Records = len(records)
	summary.ImagesSaved = stats.ImagesSaved
	summary.ImagesFailed = stats.ImagesFailed
	summary.ParseFailures = stats.ParseFailures
	summary.Status = ledger.StatusSucceeded
	if err != nil {
		summary.Status = ledger.StatusFailed
		summary.Error = err.Error()
	}
	// A signal-cancelled run is still recorded.
	h.recordRun(context.WithoutCancel(ctx), log, summary)

	if err != nil {
		log.ErrorObj("harvest failed", "run_failed", map[string]any{"error": err.Error()})
		return Result{RunID: summary.ID}, err
	}

	h.announce(ctx, log, summary, records)

	log.InfoObj("harvest finished", "run_done", map[string]any{
		"records":  len(records),
		"report":   summary.ReportPath,
		"duration": summary.FinishedAt.Sub(summary.StartedAt).String(),
	})
	return Result{RunID: summary.ID, Records: records, Stats: stats, ReportPath: summary.ReportPath}, nil
}

// withSession acquires a session, runs fn and always releases the session exactly once.
func (h *Harvester) withSession(ctx context.Context, log logger.Logger, fn func(Session) error) (err error) {
	s, err := h.deps.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("acquire navigation session: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.ErrorObj("release navigation session failed", "session_close_error", map[string]any{"error": cerr.Error()})
			err = errors.Join(err, fmt.Errorf("release navigation session: %w", cerr))
		}
	}()
	return fn(s)
}

func (h *Harvester) recordRun(ctx context.Context, log logger.Logger, summary ledger.RunSummary) {
	if h.deps.Ledger == nil {
		return
	}
	if err := h.deps.Ledger.Record(ctx, summary); err != nil {
		log.ErrorObj("record run failed", "ledger_error", map[string]any{"error": err.Error()})
	}
}

func (h *Harvester) announce(ctx context.Context, log logger.Logger, summary ledger.RunSummary, records []domain.Record) {
	if len(h.deps.Publishers) == 0 {
		return
	}
	evt := publishers.Event{
		Type:         publishers.EventReportWritten,
		RunID:        summary.ID,
		SiteURL:      summary.SiteURL,
		SearchPhrase: summary.SearchPhrase,
		NewsCategory: summary.NewsCategory,
		ReportPath:   summary.ReportPath,
		RecordCount:  len(records),
		GeneratedAt:  summary.FinishedAt,
		Records:      records,
	}
	// PublishAll logs each failure itself.
	_ = publishers.PublishAll(ctx, h.deps.Publishers, evt, log)
}
