package sitemap

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchIndex_ParsesLeafURLs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>http://%s/leaf1.xml</loc></sitemap></sitemapindex>`, r.Host)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	urls, err := f.FetchIndex(context.Background(), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, urls, 1)
}

func TestFetchLeaf_ParsesDocID(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>http://%s/doc?docid=KARE500041892</loc><lastmod>2024-01-01T00:00:00Z</lastmod></url></urlset>`, r.Host)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	entries, err := f.FetchLeaf(context.Background(), srv.URL+"/leaf1.xml")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "KARE500041892", entries[0].DocumentID)
	require.NotNil(t, entries[0].LastModified)
}

func TestFetchIndex_GunzipsGzipResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprintf(gz, `<sitemapindex><sitemap><loc>http://%s/leaf1.xml</loc></sitemap></sitemapindex>`, r.Host)
		_ = gz.Close()
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	urls, err := f.FetchIndex(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, urls, 1)
}

func TestFetchIndex_NonOKStatusIsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	_, err := f.FetchIndex(context.Background(), time.Now())
	require.Error(t, err)
}

func TestExists_TrueOn200(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	ok, err := f.Exists(context.Background(), time.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestExistsWithContent_FalseWhenBodyHasNoSitemapLoc(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<sitemapindex></sitemapindex>`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), srv.URL, "test-agent", nil)
	ok, err := f.ExistsWithContent(context.Background(), time.Now())
	require.NoError(t, err)
	require.False(t, ok)
}
