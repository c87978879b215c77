// Package sitemap fetches and parses the portal's daily ECLI sitemap
// indices and leaf sitemaps, and discovers which dates have usable content.
package sitemap

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/logging"
)

// Fetcher implements C6: index/leaf fetch with gzip-aware decoding.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *zap.Logger
}

// NewFetcher constructs a Fetcher against baseURL, identifying itself with
// userAgent on every request.
func NewFetcher(client *http.Client, baseURL, userAgent string, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		logger:    logging.NopIfNil(logger),
	}
}

// IndexURL returns the sitemap index URL for date.
func (f *Fetcher) IndexURL(date time.Time) string {
	return fmt.Sprintf("%s/jportal/docs/eclicrawler/%04d/%02d/%02d/sitemap_index_1.xml",
		f.baseURL, date.Year(), date.Month(), date.Day())
}

// FetchIndex fetches and parses the sitemap index for date, returning the
// leaf sitemap URLs it lists.
func (f *Fetcher) FetchIndex(ctx context.Context, date time.Time) ([]string, error) {
	body, err := f.get(ctx, f.IndexURL(date))
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap index: %w", err)
	}

	var parsed indexXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse sitemap index: %w", err)
	}

	urls := make([]string, 0, len(parsed.Sitemaps))
	for _, s := range parsed.Sitemaps {
		urls = append(urls, s.Loc)
	}
	return urls, nil
}

// FetchLeaf fetches and parses a leaf sitemap, returning its entries with
// documentId parsed from each loc's docid= query parameter. Pacing across
// requests is the caller's responsibility (Discoverer and the orchestrator
// each hold their own limiter).
func (f *Fetcher) FetchLeaf(ctx context.Context, leafURL string) ([]Entry, error) {
	body, err := f.get(ctx, leafURL)
	if err != nil {
		return nil, fmt.Errorf("fetch leaf sitemap: %w", err)
	}

	var parsed leafXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse leaf sitemap: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.URLs))
	for _, u := range parsed.URLs {
		docID := parseDocID(u.Loc)
		if docID == "" {
			f.logger.Debug("leaf sitemap entry missing docid", zap.String("loc", u.Loc))
			continue
		}
		entry := Entry{URL: u.Loc, DocumentID: docID}
		if u.LastMod != "" {
			if t, perr := time.Parse(time.RFC3339, u.LastMod); perr == nil {
				entry.LastModified = &t
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// get performs the GET with the configured headers and transparently
// gunzips a gzip-encoded response body.
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http get %s: status %d", rawURL, resp.StatusCode)
	}

	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, gerr := gzip.NewReader(resp.Body)
		if gerr != nil {
			return nil, fmt.Errorf("gunzip response: %w", gerr)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// Exists issues a HEAD request for date's sitemap index; 200 means present.
func (f *Fetcher) Exists(ctx context.Context, date time.Time) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.IndexURL(date), nil)
	if err != nil {
		return false, fmt.Errorf("build head request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("http head: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// ExistsWithContent GETs date's sitemap index and confirms the body
// actually contains a non-empty <sitemap><loc> listing.
func (f *Fetcher) ExistsWithContent(ctx context.Context, date time.Time) (bool, error) {
	body, err := f.get(ctx, f.IndexURL(date))
	if err != nil {
		return false, nil //nolint:nilerr // a failed/absent fetch just means "not present", not a discovery error
	}
	text := string(body)
	return strings.Contains(text, "<sitemap>") && strings.Contains(text, "<loc>"), nil
}

func parseDocID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("docid")
}
