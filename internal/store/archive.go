package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ArchiveStore is the filesystem backend: it writes each document's raw
// body to <basePath>/<court-lower>/<YYYY>/<MM>/<documentId>.xml with
// truncate semantics, and keeps an in-memory catalog of metadata so the
// full Repository query surface works without re-walking the tree.
//
// Grounded on the teacher's archive sink's MkdirAll/WriteFile idiom; the
// catalog is new because the teacher's sink never needed to answer queries.
type ArchiveStore struct {
	basePath string

	mu   sync.RWMutex
	docs map[string]LegalDocument
}

// NewArchiveStore constructs an ArchiveStore rooted at basePath.
func NewArchiveStore(basePath string) *ArchiveStore {
	return &ArchiveStore{
		basePath: basePath,
		docs:     make(map[string]LegalDocument),
	}
}

// PathFor returns the archive path a document with this documentId/court/
// decisionDate would be written to.
func (s *ArchiveStore) PathFor(doc LegalDocument) string {
	court := strings.ToLower(doc.Court)
	if court == "" {
		court = "unknown"
	}
	year := doc.DecisionDate.Year()
	month := int(doc.DecisionDate.Month())
	return filepath.Join(s.basePath, court, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), doc.DocumentID+".xml")
}

// WriteBody writes raw to the document's archive path, creating parent
// directories as needed, truncating any existing file.
func (s *ArchiveStore) WriteBody(doc LegalDocument, raw []byte) (string, error) {
	path := s.PathFor(doc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open archive file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return path, nil
}

func (s *ArchiveStore) Upsert(_ context.Context, doc LegalDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.DocumentID] = doc
	return nil
}

func (s *ArchiveStore) FindByDocumentID(_ context.Context, id string) (LegalDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *ArchiveStore) ExistsBySourceURL(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.SourceURL == url {
			return true, nil
		}
	}
	return false, nil
}

func (s *ArchiveStore) FindByCourt(_ context.Context, court string, page Page) ([]LegalDocument, error) {
	return s.filterPaged(page, func(d LegalDocument) bool {
		return strings.EqualFold(d.Court, court)
	}), nil
}

func (s *ArchiveStore) FindByStatus(_ context.Context, status Status, page Page) ([]LegalDocument, error) {
	return s.filterPaged(page, func(d LegalDocument) bool {
		return d.Status == status
	}), nil
}

func (s *ArchiveStore) FindByDateRange(_ context.Context, from, to time.Time, page Page) ([]LegalDocument, error) {
	return s.filterPaged(page, func(d LegalDocument) bool {
		return !d.DecisionDate.Before(from) && !d.DecisionDate.After(to)
	}), nil
}

func (s *ArchiveStore) FindByECLI(_ context.Context, ecli string) (LegalDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if strings.EqualFold(doc.ECLI, ecli) {
			return doc, true, nil
		}
	}
	return LegalDocument{}, false, nil
}

func (s *ArchiveStore) FindByCrawledAfter(_ context.Context, t time.Time, page Page) ([]LegalDocument, error) {
	return s.filterPaged(page, func(d LegalDocument) bool {
		return d.CrawledAt.After(t)
	}), nil
}

func (s *ArchiveStore) FindRecent(_ context.Context, page Page) ([]LegalDocument, error) {
	page = page.normalized()
	s.mu.RLock()
	all := make([]LegalDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		all = append(all, doc)
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].CrawledAt.After(all[j].CrawledAt) })
	return paginate(all, page), nil
}

func (s *ArchiveStore) SearchText(_ context.Context, term string, page Page) ([]LegalDocument, error) {
	needle := strings.ToLower(term)
	return s.filterPaged(page, func(d LegalDocument) bool {
		return strings.Contains(strings.ToLower(d.Title), needle) ||
			strings.Contains(strings.ToLower(d.Summary), needle) ||
			strings.Contains(strings.ToLower(d.FullText), needle)
	}), nil
}

func (s *ArchiveStore) CountByCourt(_ context.Context, court string) (int, error) {
	return s.count(func(d LegalDocument) bool { return strings.EqualFold(d.Court, court) }), nil
}

func (s *ArchiveStore) CountByStatus(_ context.Context, status Status) (int, error) {
	return s.count(func(d LegalDocument) bool { return d.Status == status }), nil
}

func (s *ArchiveStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *ArchiveStore) FindFailedForRetry(_ context.Context, olderThan time.Time) ([]LegalDocument, error) {
	return s.filterPaged(Page{Limit: 0}, func(d LegalDocument) bool {
		return d.Status == StatusFailed && d.CrawledAt.Before(olderThan)
	}), nil
}

func (s *ArchiveStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *ArchiveStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]LegalDocument)
	return nil
}

func (s *ArchiveStore) filterPaged(page Page, match func(LegalDocument) bool) []LegalDocument {
	s.mu.RLock()
	var matched []LegalDocument
	for _, doc := range s.docs {
		if match(doc) {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].DocumentID < matched[j].DocumentID })
	if page.Limit == 0 && page.Offset == 0 {
		return matched
	}
	return paginate(matched, page.normalized())
}

func (s *ArchiveStore) count(match func(LegalDocument) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, doc := range s.docs {
		if match(doc) {
			n++
		}
	}
	return n
}

func paginate(docs []LegalDocument, page Page) []LegalDocument {
	if page.Offset >= len(docs) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[page.Offset:end]
}
