// Package fetcher resolves and downloads the raw source artifacts: the
// per-month trip files scraped from the TLC listing page, the static
// zone lookup table, and the daily weather series. Downloads are
// idempotent; files already on disk are never fetched again.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"taxipulse/internal/config"
	"taxipulse/internal/errors"
)

// Fetcher downloads raw source files into the raw data directory.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     config.FetchConfig
	paths   *config.Paths
	logger  *slog.Logger
}

// New creates a fetcher with a polite request rate against the source
// host.
func New(cfg config.FetchConfig, paths *config.Paths, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		cfg:     cfg,
		paths:   paths,
		logger:  logger,
	}
}

// ScrapeTripLinks fetches the TLC listing page and returns the yellow
// and green trip-file links for the configured target year.
func (f *Fetcher) ScrapeTripLinks(ctx context.Context) ([]string, error) {
	body, err := f.get(ctx, f.cfg.ListingURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, errors.NewParsingError("failed to parse listing page", err)
	}

	year := strconv.Itoa(f.cfg.TargetYear)
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if wantTripLink(href, year) {
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	f.logger.InfoContext(ctx, "scraped trip file links",
		slog.String("listing_url", f.cfg.ListingURL),
		slog.String("year", year),
		slog.Int("count", len(links)))

	return links, nil
}

// wantTripLink reports whether a listing href is a per-month trip file
// for the target year and one of the two fleets.
func wantTripLink(href, year string) bool {
	if !strings.HasSuffix(href, ".csv") {
		return false
	}
	if !strings.Contains(href, year) {
		return false
	}
	return strings.Contains(href, "yellow") || strings.Contains(href, "green")
}

// DownloadAll downloads every link that is not already present locally.
func (f *Fetcher) DownloadAll(ctx context.Context, links []string) error {
	for _, url := range links {
		dest := f.paths.GetRawPath(filepath.Base(url))
		if err := f.download(ctx, url, dest); err != nil {
			return err
		}
	}
	return nil
}

// EnsureTripFile makes the per-month trip file for (fleet, year, month)
// available locally, downloading it if absent, and returns its path.
func (f *Fetcher) EnsureTripFile(ctx context.Context, fleet string, year, month int) (string, error) {
	dest := f.paths.GetTripFilePath(fleet, year, month)
	url := fmt.Sprintf("%s/%s_tripdata_%04d-%02d.csv", f.cfg.TripDataURL, fleet, year, month)
	if err := f.download(ctx, url, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// EnsureZoneLookup makes the zone lookup reference table available
// locally and returns its path.
func (f *Fetcher) EnsureZoneLookup(ctx context.Context) (string, error) {
	dest := f.paths.GetZoneLookupPath()
	if err := f.download(ctx, f.cfg.ZoneLookupURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// download fetches url into dest unless dest already exists. The file
// lands under a temp name first so a crashed download never leaves a
// truncated artifact behind.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	if config.FileExists(dest) {
		f.logger.DebugContext(ctx, "file already present, skipping download",
			slog.String("path", dest))
		return nil
	}

	f.logger.InfoContext(ctx, "downloading source file",
		slog.String("url", url),
		slog.String("dest", dest))

	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.NewStorageError("failed to create raw directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+"-*.tmp")
	if err != nil {
		return errors.NewStorageError("failed to create temp download file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return errors.NewFetchError(fmt.Sprintf("failed to download %s", url), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorageError("failed to close temp download file", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to commit download %s", dest), err)
	}

	return nil
}

// get issues a rate-limited GET and returns the response body on 200.
func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.NewFetchError("rate limiter wait interrupted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetchError(fmt.Sprintf("failed to build request for %s", url), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(fmt.Sprintf("request failed for %s", url), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NewFetchError(fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, url), nil)
	}

	return resp.Body, nil
}
