// Package ledger keeps a history of harvester runs in a bbolt database.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/khobor-report/internal/logger"
)

var runsBucket = []byte("runs")

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunSummary describes one finished run.
type RunSummary struct {
	ID            string    `json:"id"`
	SiteURL       string    `json:"site_url"`
	SearchPhrase  string    `json:"search_phrase"`
	NewsCategory  string    `json:"news_category"`
	Months        int       `json:"months"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Records       int       `json:"records"`
	ImagesSaved   int       `json:"images_saved"`
	ImagesFailed  int       `json:"images_failed"`
	ParseFailures int       `json:"parse_failures"`
	ReportPath    string    `json:"report_path,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// Ledger stores run summaries keyed by start time.
type Ledger struct {
	db  *bolt.DB
	log logger.Logger
}

// Open opens or creates the ledger database at path.
func Open(path string, log logger.Logger) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Ledger{db: db, log: logger.Ensure(log)}, nil
}

// Record stores a run summary.
func (l *Ledger) Record(ctx context.Context, run RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is empty")
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	if err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put(runKey(run), payload)
	}); err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}

	l.log.DebugObj("run recorded", "ledger_write", map[string]any{
		"run_id": run.ID,
		"status": run.Status,
	})
	return nil
}

// List returns every stored run, newest first.
func (l *Ledger) List() ([]RunSummary, error) {
	var runs []RunSummary
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run RunSummary
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runKey sorts lexically by UTC start time.
func runKey(run RunSummary) []byte {
	return []byte(run.StartedAt.UTC().Format("20060102T150405.000000000Z") + "/" + run.ID)
}
