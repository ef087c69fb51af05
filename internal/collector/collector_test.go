package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-report/internal/assets"
	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/enrich"
)

var fixedNow = time.Date(2024, time.July, 20, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fakeSource returns one batch per call, in order.
type fakeSource struct {
	batches [][]domain.RawArticle
	errAt   int
	err     error
	calls   int
}

func (f *fakeSource) WaitForArticles(context.Context) ([]domain.RawArticle, error) {
	defer func() { f.calls++ }()
	if f.err != nil && f.calls == f.errAt {
		return nil, f.err
	}
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	return f.batches[f.calls], nil
}

// fakeImages returns a path per title unless the url is listed as failing.
type fakeImages struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeImages) Resolve(_ context.Context, imageURL, title string) string {
	f.calls = append(f.calls, title)
	if imageURL == "" || f.fail[imageURL] {
		return assets.FailureMarker
	}
	return "output/" + assets.SanitizeTitle(title) + ".jpg"
}

func TestCollect_EndToEndWindow(t *testing.T) {
	t.Parallel()

	src := &fakeSource{batches: [][]domain.RawArticle{
		{{Title: "Tech costs $50", DateText: "July 2, 2024", ImageURL: "http://img/1.jpg"}},
		{{Title: "Old tech story", DateText: "May 2, 2024", ImageURL: "http://img/2.jpg"}},
	}}
	images := &fakeImages{}

	c := New(src, enrich.New("tech"), images, 2, nil, WithClock(clock))
	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Tech costs $50", rec.Title)
	assert.Equal(t, "July 2, 2024", rec.DateText)
	assert.Equal(t, domain.DescriptionPlaceholder, rec.Description)
	assert.Equal(t, 1, rec.PhraseCount)
	assert.True(t, rec.ContainsMoney)
	assert.Equal(t, "output/Tech costs $50.jpg", rec.ImageFilename)

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, Stats{Seen: 2, Accepted: 1, ImagesSaved: 1}, c.Stats())
}

func TestCollect_ParseFailureSkipsArticle(t *testing.T) {
	t.Parallel()

	src := &fakeSource{batches: [][]domain.RawArticle{{
		{Title: "Relative", DateText: "3 hours ago", ImageURL: "http://img/a.jpg"},
		{Title: "Kept", DateText: "July 1, 2024", Description: "tech", HasDescription: true, ImageURL: "http://img/b.jpg"},
	}}}
	images := &fakeImages{}

	records, err := New(src, enrich.New("tech"), images, 1, nil, WithClock(clock)).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Kept", records[0].Title)
	assert.Equal(t, "tech", records[0].Description)
	assert.Equal(t, []string{"Kept"}, images.calls)
}

func TestCollect_AssetFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	src := &fakeSource{batches: [][]domain.RawArticle{{
		{Title: "Broken image", DateText: "July 3, 2024", ImageURL: "http://img/broken.jpg"},
		{Title: "No image", DateText: "July 4, 2024"},
		{Title: "Good image", DateText: "July 5, 2024", ImageURL: "http://img/good.jpg"},
	}}}
	images := &fakeImages{fail: map[string]bool{"http://img/broken.jpg": true}}

	c := New(src, enrich.New("image"), images, 1, nil, WithClock(clock))
	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, assets.FailureMarker, records[0].ImageFilename)
	assert.Equal(t, assets.FailureMarker, records[1].ImageFilename)
	assert.Equal(t, "output/Good image.jpg", records[2].ImageFilename)
	assert.Equal(t, 2, c.Stats().ImagesFailed)
	assert.Equal(t, 1, c.Stats().ImagesSaved)
}

func TestCollect_PreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	// Day 31 minus 30 days stays in March, so the same article matches both windows.
	now := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	batch := []domain.RawArticle{
		{Title: "first", DateText: "March 3, 2024"},
		{Title: "second", DateText: "March 4, 2024"},
	}
	src := &fakeSource{batches: [][]domain.RawArticle{batch, batch}}

	records, err := New(src, enrich.New("x"), &fakeImages{}, 2, nil,
		WithClock(func() time.Time { return now })).Collect(context.Background())
	require.NoError(t, err)

	titles := make([]string, 0, len(records))
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"first", "second", "first", "second"}, titles)
}

func TestCollect_YearIgnored(t *testing.T) {
	t.Parallel()

	src := &fakeSource{batches: [][]domain.RawArticle{{
		{Title: "Last year", DateText: "July 8, 2019"},
	}}}

	records, err := New(src, enrich.New("x"), &fakeImages{}, 1, nil, WithClock(clock)).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCollect_SourceFailureIsFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("page never rendered")
	src := &fakeSource{
		batches: [][]domain.RawArticle{{{Title: "kept", DateText: "July 1, 2024"}}},
		errAt:   1,
		err:     boom,
	}

	c := New(src, enrich.New("x"), &fakeImages{}, 3, nil, WithClock(clock))
	records, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Len(t, records, 1)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, StateDone, c.State())
}

func TestCollect_SingleUse(t *testing.T) {
	t.Parallel()

	c := New(&fakeSource{}, enrich.New("x"), &fakeImages{}, 1, nil, WithClock(clock))
	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	_, err = c.Collect(context.Background())
	require.Error(t, err)
}

func TestCollect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{}
	_, err := New(src, enrich.New("x"), &fakeImages{}, 2, nil, WithClock(clock)).Collect(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "iterating", StateIterating.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(9)", State(9).String())
}
