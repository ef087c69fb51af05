package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
	"github.com/Adda-Baaj/khobor-report/pkg/httpclient"
)

const (
	defaultWaitTimeout  = 10 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

var (
	// ErrNavigationTimeout is returned when no article renders within the wait timeout.
	ErrNavigationTimeout = errors.New("timed out waiting for articles")
	// ErrSessionClosed is returned by operations on a released session.
	ErrSessionClosed = errors.New("navigation session closed")
	// ErrNotSearched is returned when articles are requested before a search.
	ErrNotSearched = errors.New("no search has been performed")
)

// Options tune the bounded waits of a Session.
type Options struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// Session drives the news site over HTTP: open the home page, run a search, and read the
// rendered article promos. A Session is used by one goroutine and must be closed.
type Session struct {
	client httpclient.Client
	site   Site
	opts   Options
	log    logger.Logger

	mu         sync.Mutex
	base       *url.URL
	resultsURL string
	closed     bool
	closeOnce  sync.Once
}

// NewSession builds a session for site using client for every page load.
func NewSession(client httpclient.Client, site Site, opts Options, log logger.Logger) *Session {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Session{
		client: client,
		site:   site,
		opts:   opts,
		log:    logger.Ensure(log),
	}
}

// Open loads the site home page.
func (s *Session) Open(ctx context.Context, siteURL string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || !base.IsAbs() {
		return fmt.Errorf("invalid site url %q", siteURL)
	}

	if _, err := s.load(ctx, base.String()); err != nil {
		return fmt.Errorf("open site: %w", err)
	}

	s.mu.Lock()
	s.base = base
	s.mu.Unlock()

	s.log.InfoObj("opened site", "site_opened", map[string]any{"url": base.String()})
	return nil
}

// Search submits phrase to the site's search page.
func (s *Session) Search(ctx context.Context, phrase string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	base := s.base
	s.mu.Unlock()
	if base == nil {
		return errors.New("search before open")
	}

	results := s.site.SearchURL(base, phrase)
	if _, err := s.load(ctx, results); err != nil {
		return fmt.Errorf("search %q: %w", phrase, err)
	}

	s.mu.Lock()
	s.resultsURL = results
	s.mu.Unlock()

	s.log.InfoObj("searched for phrase", "search_submitted", map[string]any{
		"phrase": phrase,
		"url":    results,
	})
	return nil
}

// WaitForArticles reloads the results page until at least one promo renders or the wait
// timeout expires.
func (s *Session) WaitForArticles(ctx context.Context) ([]domain.RawArticle, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	results, base := s.resultsURL, s.base
	s.mu.Unlock()
	if results == "" {
		return nil, ErrNotSearched
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		body, err := s.load(waitCtx, results)
		if err == nil {
			articles, perr := s.site.ExtractPromos(body, base)
			if perr == nil && len(articles) > 0 {
				s.log.DebugObj("articles rendered", "articles_ready", map[string]any{
					"count":   len(articles),
					"attempt": attempt,
				})
				return articles, nil
			}
			lastErr = perr
		} else {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if lastErr != nil {
				return nil, fmt.Errorf("%w after %s: %v", ErrNavigationTimeout, s.opts.WaitTimeout, lastErr)
			}
			return nil, fmt.Errorf("%w after %s", ErrNavigationTimeout, s.opts.WaitTimeout)
		case <-ticker.C:
		}
	}
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.log.InfoObj("navigation session released", "session_closed", nil)
	})
	return nil
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// load fetches a page and rejects non-200 responses.
func (s *Session) load(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := s.client.Get(ctx, pageURL, s.site.Headers)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}
	return resp.Body(), nil
}
