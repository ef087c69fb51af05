package publishers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
)

// EventReportWritten is the type of the event sent once a report exists on disk.
const EventReportWritten = "report.written"

// Logger is the structured logger publishers write to.
type Logger = logger.Logger

// Event describes a finished report.
type Event struct {
	Type         string          `json:"type"`
	RunID        string          `json:"run_id"`
	SiteURL      string          `json:"site_url"`
	SearchPhrase string          `json:"search_phrase"`
	NewsCategory string          `json:"news_category"`
	ReportPath   string          `json:"report_path"`
	RecordCount  int             `json:"record_count"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Records      []domain.Record `json:"records,omitempty"`
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type":    e.Type,
		"run_id":        e.RunID,
		"search_phrase": e.SearchPhrase,
	}
}

// Publisher delivers report events to one sink. Close releases the clients it holds.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// CloseAll closes every publisher and joins the failures.
func CloseAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher %s: %w", p.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}

// PublishAll sends evt to every publisher, in order, and joins the failures.
// A failing publisher does not stop the others.
func PublishAll(ctx context.Context, pubs []Publisher, evt Event, log Logger) error {
	log = ensureLogger(log)

	var errs []error
	for _, p := range pubs {
		if err := p.Publish(ctx, evt); err != nil {
			log.ErrorObj("report notification failed", "publish_error", map[string]any{
				"publisher_id": p.ID(),
				"type":         p.Type(),
				"error":        err.Error(),
			})
			errs = append(errs, fmt.Errorf("publisher %s: %w", p.ID(), err))
			continue
		}
		log.InfoObj("report notification sent", "publish_ok", map[string]any{
			"publisher_id": p.ID(),
			"type":         p.Type(),
			"run_id":       evt.RunID,
		})
	}
	return errors.Join(errs...)
}
