// Package collector walks the month window and turns rendered promos into report records.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/khobor-report/internal/assets"
	"github.com/Adda-Baaj/khobor-report/internal/datewindow"
	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/enrich"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
)

// ArticleSource yields the promos currently rendered on the results page.
// It re-queries on every call.
type ArticleSource interface {
	WaitForArticles(ctx context.Context) ([]domain.RawArticle, error)
}

// ImageResolver saves an article image and returns its path or a failure marker.
type ImageResolver interface {
	Resolve(ctx context.Context, imageURL, title string) string
}

// State is the collector's position in a run.
type State int

const (
	StateIdle State = iota
	StateIterating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts per-article outcomes of a run.
type Stats struct {
	Seen          int
	Accepted      int
	ParseFailures int
	ImagesSaved   int
	ImagesFailed  int
}

// Collector accumulates records across the month window.
type Collector struct {
	source   ArticleSource
	enricher *enrich.Enricher
	images   ImageResolver
	months   int
	log      logger.Logger
	now      func() time.Time

	state   State
	stats   Stats
	records []domain.Record
}

// Option customizes a Collector.
type Option func(*Collector)

// WithClock overrides the time source used to compute target months.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a collector over months windows.
func New(source ArticleSource, enricher *enrich.Enricher, images ImageResolver, months int, log logger.Logger, opts ...Option) *Collector {
	c := &Collector{
		source:   source,
		enricher: enricher,
		images:   images,
		months:   months,
		log:      logger.Ensure(log),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Collector) State() State { return c.state }

// Stats returns the counters gathered so far.
func (c *Collector) Stats() Stats { return c.stats }

// Collect runs every month iteration and returns the accepted records in encounter order.
// Per-article failures are logged and skipped; a source failure aborts the run.
func (c *Collector) Collect(ctx context.Context) ([]domain.Record, error) {
	if c.state != StateIdle {
		return nil, fmt.Errorf("collector already used (state %s)", c.state)
	}
	c.state = StateIterating
	defer func() { c.state = StateDone }()

	now := c.now()
	for i := 0; i < c.months; i++ {
		if err := ctx.Err(); err != nil {
			return c.records, err
		}

		target := datewindow.TargetMonth(now, i)
		c.log.InfoObj("scraping news for month", "month_start", map[string]any{
			"window": i,
			"month":  target.Label(),
		})

		batch, err := c.source.WaitForArticles(ctx)
		if err != nil {
			return c.records, fmt.Errorf("month %s: wait for articles: %w", target.Label(), err)
		}

		for _, raw := range batch {
			c.collectOne(ctx, raw, target)
		}
	}

	c.log.InfoObj("collection finished", "collect_done", map[string]any{
		"seen":           c.stats.Seen,
		"accepted":       c.stats.Accepted,
		"parse_failures": c.stats.ParseFailures,
		"images_failed":  c.stats.ImagesFailed,
	})
	return c.records, nil
}

func (c *Collector) collectOne(ctx context.Context, raw domain.RawArticle, target domain.TargetMonth) {
	c.stats.Seen++

	ok, err := datewindow.Matches(raw.DateText, target.Month)
	if err != nil {
		c.stats.ParseFailures++
		c.log.ErrorObj("date format error", "date_parse_error", map[string]any{
			"date":  raw.DateText,
			"title": raw.Title,
			"error": err.Error(),
		})
		return
	}
	if !ok {
		return
	}

	description := raw.DescriptionOrPlaceholder()
	image := c.images.Resolve(ctx, raw.ImageURL, raw.Title)
	if image == assets.FailureMarker {
		c.stats.ImagesFailed++
	} else {
		c.stats.ImagesSaved++
	}

	sig := c.enricher.Enrich(raw.Title, description)
	c.records = append(c.records, domain.Record{
		Title:         raw.Title,
		DateText:      raw.DateText,
		Description:   description,
		ImageFilename: image,
		PhraseCount:   sig.PhraseCount,
		ContainsMoney: sig.ContainsMoney,
	})
	c.stats.Accepted++
}
