package harvester

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-report/internal/assets"
	"github.com/Adda-Baaj/khobor-report/internal/config"
	"github.com/Adda-Baaj/khobor-report/internal/crawler"
	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/ledger"
	"github.com/Adda-Baaj/khobor-report/internal/report"
	"github.com/Adda-Baaj/khobor-report/pkg/publishers"
)

var fixedNow = time.Date(2024, time.July, 20, 9, 0, 0, 0, time.UTC)

type fakeSession struct {
	batches  [][]domain.RawArticle
	waitErr  error
	openErr  error
	calls    int
	closes   int
	searched string
}

func (f *fakeSession) Open(context.Context, string) error { return f.openErr }
func (f *fakeSession) Search(_ context.Context, phrase string) error {
	f.searched = phrase
	return nil
}
func (f *fakeSession) Close() error {
	f.closes++
	return nil
}
func (f *fakeSession) WaitForArticles(context.Context) ([]domain.RawArticle, error) {
	defer func() { f.calls++ }()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	return f.batches[f.calls], nil
}

type fakeImages struct{ fail map[string]bool }

func (f fakeImages) Resolve(_ context.Context, imageURL, title string) string {
	if imageURL == "" || f.fail[imageURL] {
		return assets.FailureMarker
	}
	return "output/" + assets.SanitizeTitle(title) + ".jpg"
}

type memLedger struct{ runs []ledger.RunSummary }

func (m *memLedger) Record(_ context.Context, run ledger.RunSummary) error {
	m.runs = append(m.runs, run)
	return nil
}

type recordingPublisher struct {
	events []publishers.Event
	closes int
}

func (r *recordingPublisher) ID() string   { return "rec" }
func (r *recordingPublisher) Type() string { return "memory" }
func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) error {
	r.events = append(r.events, evt)
	return nil
}
func (r *recordingPublisher) Close() error {
	r.closes++
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]domain.Record, string) error { return errors.New("disk full") }

func testConfig(t *testing.T, months int) config.Config {
	t.Helper()

	return config.Config{
		SiteURL:      "https://news.example.com/",
		SearchPhrase: "tech",
		NewsCategory: "top",
		Months:       months,
		OutputDir:    t.TempDir(),
		WaitTimeout:  time.Second,
		PollInterval: 10 * time.Millisecond,
		HTTPTimeout:  time.Second,
	}
}

func newHarvester(cfg config.Config, s *fakeSession, deps Deps) *Harvester {
	deps.Sessions = func(context.Context) (Session, error) { return s, nil }
	if deps.Images == nil {
		deps.Images = fakeImages{}
	}
	if deps.Report == nil {
		deps.Report = report.NewWriter(nil)
	}
	deps.Now = func() time.Time { return fixedNow }
	return New(cfg, deps)
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 2)
	s := &fakeSession{batches: [][]domain.RawArticle{
		{{Title: "Tech costs $50", DateText: "July 2, 2024", ImageURL: "http://img/1.jpg"}},
		{{Title: "Old tech", DateText: "May 2, 2024", ImageURL: "http://img/2.jpg"}},
	}}
	led := &memLedger{}
	pub := &recordingPublisher{}

	res, err := newHarvester(cfg, s, Deps{Ledger: led, Publishers: []publishers.Publisher{pub}}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tech", s.searched)
	assert.Equal(t, 1, s.closes)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].PhraseCount)
	assert.True(t, res.Records[0].ContainsMoney)

	rows, err := report.ReadRows(filepath.Join(cfg.OutputDir, "news_data.xlsx"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Title", "Date", "Description", "Image Filename", "Phrase Count", "Contains Money"}, rows[0])
	assert.Equal(t, "Tech costs $50", rows[1][0])
	assert.Equal(t, "TRUE", rows[1][5])

	require.Len(t, led.runs, 1)
	assert.Equal(t, ledger.StatusSucceeded, led.runs[0].Status)
	assert.Equal(t, 1, led.runs[0].Records)
	assert.Equal(t, res.RunID, led.runs[0].ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, publishers.EventReportWritten, pub.events[0].Type)
	assert.Equal(t, 1, pub.events[0].RecordCount)
	assert.Equal(t, "top", pub.events[0].NewsCategory)
}

func TestRun_AssetFailureRecordedNotFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	s := &fakeSession{batches: [][]domain.RawArticle{{
		{Title: "Broken", DateText: "July 3, 2024", ImageURL: "http://img/broken.jpg"},
		{Title: "Fine", DateText: "July 4, 2024", ImageURL: "http://img/fine.jpg"},
	}}}

	res, err := newHarvester(cfg, s, Deps{Images: fakeImages{fail: map[string]bool{"http://img/broken.jpg": true}}}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, assets.FailureMarker, res.Records[0].ImageFilename)
	assert.Equal(t, "output/Fine.jpg", res.Records[1].ImageFilename)
	assert.Equal(t, 1, res.Stats.ImagesFailed)
}

func TestRun_NavigationTimeoutIsFatalAndReleasesSession(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 2)
	s := &fakeSession{waitErr: crawler.ErrNavigationTimeout}
	led := &memLedger{}
	pub := &recordingPublisher{}

	_, err := newHarvester(cfg, s, Deps{Ledger: led, Publishers: []publishers.Publisher{pub}}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, crawler.ErrNavigationTimeout))
	assert.Equal(t, 1, s.closes)

	require.Len(t, led.runs, 1)
	assert.Equal(t, ledger.StatusFailed, led.runs[0].Status)
	assert.Empty(t, led.runs[0].ReportPath)
	assert.Empty(t, pub.events)

	_, statErr := report.ReadRows(filepath.Join(cfg.OutputDir, "news_data.xlsx"))
	assert.Error(t, statErr)
}

func TestRun_OpenFailureReleasesSession(t *testing.T) {
	t.Parallel()

	s := &fakeSession{openErr: errors.New("dns failure")}
	_, err := newHarvester(testConfig(t, 1), s, Deps{}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, s.closes)
}

func TestRun_ReportWriteFailureIsFatal(t *testing.T) {
	t.Parallel()

	s := &fakeSession{batches: [][]domain.RawArticle{{{Title: "x", DateText: "July 1, 2024"}}}}
	led := &memLedger{}

	_, err := newHarvester(testConfig(t, 1), s, Deps{Report: failingWriter{}, Ledger: led}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, s.closes)
	require.Len(t, led.runs, 1)
	assert.Equal(t, ledger.StatusFailed, led.runs[0].Status)
}

func TestRun_SessionAcquireFailure(t *testing.T) {
	t.Parallel()

	h := New(testConfig(t, 1), Deps{
		Sessions: func(context.Context) (Session, error) { return nil, errors.New("no browser") },
		Images:   fakeImages{},
		Report:   report.NewWriter(nil),
	})
	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire navigation session")
}

func TestRun_CancelledContextStillRecordsRun(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	led, err := ledger.Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = led.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSession{}
	_, err = newHarvester(cfg, s, Deps{Ledger: led}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.closes)

	runs, err := led.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "context canceled")
}

func TestRun_EmptyWindowWritesHeaderOnlyReport(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	res, err := newHarvester(cfg, &fakeSession{}, Deps{}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	rows, err := report.ReadRows(res.ReportPath)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBootstrap_WiresLedger(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "fresh")
	cfg.LedgerEnabled = true

	h, cleanup, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, h.deps.Ledger)
	assert.DirExists(t, cfg.OutputDir)
	assert.Empty(t, h.deps.Publishers)
}

func TestBootstrap_CleanupClosesPublishersAndLedger(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	cfg.LedgerEnabled = true
	cfg.PublishersFile = filepath.Join(cfg.OutputDir, "publishers.yaml")
	require.NoError(t, os.WriteFile(cfg.PublishersFile, []byte(`
publishers:
  - id: hook
    type: http
    http:
      url: http://127.0.0.1:1/hook
`), 0o644))

	h, cleanup, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, h.deps.Publishers, 1)

	led, ok := h.deps.Ledger.(*ledger.Ledger)
	require.True(t, ok)
	_, err = led.List()
	require.NoError(t, err)

	cleanup()
	_, err = led.List()
	assert.Error(t, err)
}

func TestBootstrap_BadPublishersFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	cfg.PublishersFile = filepath.Join(cfg.OutputDir, "missing.yaml")

	_, _, err := Bootstrap(context.Background(), cfg, nil)
	require.Error(t, err)
}
