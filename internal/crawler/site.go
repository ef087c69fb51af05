// Package crawler implements the navigation collaborator for the news site.
package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-report/internal/domain"
)

// Site holds the search URL template and CSS selectors of the news property.
type Site struct {
	SearchPath          string
	SearchParam         string
	PromoSelector       string
	TitleSelector       string
	DateSelector        string
	DescriptionSelector string
	ImageSelector       string
	Headers             map[string]string
}

// DefaultSite returns the selectors of the Los Angeles Times search results page.
func DefaultSite() Site {
	return Site{
		SearchPath:          "/search",
		SearchParam:         "q",
		PromoSelector:       "ps-promo",
		TitleSelector:       "h3",
		DateSelector:        ".promo-timestamp",
		DescriptionSelector: ".promo-description",
		ImageSelector:       "img",
		Headers: map[string]string{
			"Accept": "text/html,application/xhtml+xml",
		},
	}
}

// SearchURL builds the results page URL for phrase relative to base.
func (s Site) SearchURL(base *url.URL, phrase string) string {
	ref := &url.URL{Path: s.SearchPath}
	q := url.Values{}
	q.Set(s.SearchParam, phrase)
	ref.RawQuery = q.Encode()
	return base.ResolveReference(ref).String()
}

// ExtractPromos parses every promo element on a results page, in document order.
func (s Site) ExtractPromos(body []byte, base *url.URL) ([]domain.RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var baseURL string
	if base != nil {
		baseURL = base.String()
	}

	var articles []domain.RawArticle
	doc.Find(s.PromoSelector).Each(func(_ int, promo *goquery.Selection) {
		art := domain.RawArticle{
			Title:    strings.TrimSpace(promo.Find(s.TitleSelector).First().Text()),
			DateText: strings.TrimSpace(promo.Find(s.DateSelector).First().Text()),
		}

		if desc := promo.Find(s.DescriptionSelector).First(); desc.Length() > 0 {
			art.Description = strings.TrimSpace(desc.Text())
			art.HasDescription = true
		}

		if img := promo.Find(s.ImageSelector).First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			lazy, _ := img.Attr("data-src")
			art.ImageURL = resolveURL(firstNonEmpty(src, lazy), baseURL)
		}

		articles = append(articles, art)
	})
	return articles, nil
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
