// Package assets persists article images under sanitized file names.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adda-Baaj/khobor-report/internal/logger"
	"github.com/Adda-Baaj/khobor-report/pkg/httpclient"
)

const (
	// FailureMarker is recorded in place of a path when the image could not be saved.
	FailureMarker = "unavailable"

	imageExt   = ".jpg"
	chunkBytes = 8 << 10
)

// ErrNoImageURL marks an article without an image reference.
var ErrNoImageURL = errors.New("article has no image url")

// AssetError describes a failed image download or write.
type AssetError struct {
	URL   string
	Title string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("save image %q for %q: %v", e.URL, e.Title, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

var reservedChars = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "",
	"/", "", `\`, "", "|", "", "?", "", "*", "",
)

// SanitizeTitle strips filesystem-reserved characters from title.
func SanitizeTitle(title string) string {
	return reservedChars.Replace(title)
}

// Resolver downloads article images into a directory.
type Resolver struct {
	client    httpclient.Client
	outputDir string
	headers   map[string]string
	log       logger.Logger
}

// NewResolver builds a Resolver writing into outputDir, which must already exist.
func NewResolver(client httpclient.Client, outputDir string, log logger.Logger) *Resolver {
	return &Resolver{
		client:    client,
		outputDir: outputDir,
		log:       logger.Ensure(log),
	}
}

// WithHeaders sets request headers sent with every download.
func (r *Resolver) WithHeaders(headers map[string]string) *Resolver {
	r.headers = headers
	return r
}

// PathFor returns the file path an image for title is written to.
// Titles that sanitize identically share a path and overwrite one another.
func (r *Resolver) PathFor(title string) string {
	return filepath.Join(r.outputDir, SanitizeTitle(title)+imageExt)
}

// Resolve saves the image for the article and returns its path, or FailureMarker.
// Failures are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, imageURL, title string) string {
	path, err := r.save(ctx, imageURL, title)
	if err != nil {
		r.log.ErrorObj("image download failed", "asset_error", map[string]any{
			"url":   imageURL,
			"title": title,
			"error": err.Error(),
		})
		return FailureMarker
	}

	r.log.DebugObj("image saved", "asset_saved", map[string]any{
		"url":  imageURL,
		"path": path,
	})
	return path
}

func (r *Resolver) save(ctx context.Context, imageURL, title string) (string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return "", &AssetError{URL: imageURL, Title: title, Err: ErrNoImageURL}
	}

	body, err := r.client.Stream(ctx, imageURL, r.headers)
	if err != nil {
		return "", &AssetError{URL: imageURL, Title: title, Err: err}
	}
	defer body.Close()

	path := r.PathFor(title)
	if err := writeStream(path, body); err != nil {
		return "", &AssetError{URL: imageURL, Title: title, Err: err}
	}
	return path, nil
}

// writeStream copies src into path in fixed-size chunks, removing the file on failure.
func writeStream(path string, src io.Reader) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	buf := make([]byte, chunkBytes)
	if _, err = io.CopyBuffer(f, src, buf); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
