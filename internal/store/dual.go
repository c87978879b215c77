package store

import (
	"context"
	"fmt"
	"time"
)

// DualStore composes an ArchiveStore and a SearchStore behind the single
// Repository contract, enforcing spec §9's write ordering: the archive
// write happens before the index write, so a crash mid-upsert leaves the
// filesystem copy (the durable source of truth) ahead of the search index
// rather than the other way around.
type DualStore struct {
	archive *ArchiveStore
	search  *SearchStore
}

// NewDualStore composes archive and search into one Repository.
func NewDualStore(archive *ArchiveStore, search *SearchStore) *DualStore {
	return &DualStore{archive: archive, search: search}
}

func (d *DualStore) Upsert(ctx context.Context, doc LegalDocument) error {
	if err := d.archive.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("archive upsert: %w", err)
	}
	if err := d.search.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("search upsert: %w", err)
	}
	return nil
}

func (d *DualStore) FindByDocumentID(ctx context.Context, id string) (LegalDocument, bool, error) {
	return d.archive.FindByDocumentID(ctx, id)
}

func (d *DualStore) ExistsBySourceURL(ctx context.Context, url string) (bool, error) {
	return d.archive.ExistsBySourceURL(ctx, url)
}

func (d *DualStore) FindByCourt(ctx context.Context, court string, page Page) ([]LegalDocument, error) {
	return d.archive.FindByCourt(ctx, court, page)
}

func (d *DualStore) FindByStatus(ctx context.Context, status Status, page Page) ([]LegalDocument, error) {
	return d.archive.FindByStatus(ctx, status, page)
}

func (d *DualStore) FindByDateRange(ctx context.Context, from, to time.Time, page Page) ([]LegalDocument, error) {
	return d.archive.FindByDateRange(ctx, from, to, page)
}

func (d *DualStore) FindByECLI(ctx context.Context, ecli string) (LegalDocument, bool, error) {
	return d.archive.FindByECLI(ctx, ecli)
}

func (d *DualStore) FindByCrawledAfter(ctx context.Context, t time.Time, page Page) ([]LegalDocument, error) {
	return d.archive.FindByCrawledAfter(ctx, t, page)
}

func (d *DualStore) FindRecent(ctx context.Context, page Page) ([]LegalDocument, error) {
	return d.archive.FindRecent(ctx, page)
}

// SearchText is the one read routed to the search backend: full-text
// relevance ranking is bleve's job, not the archive catalog's.
func (d *DualStore) SearchText(ctx context.Context, term string, page Page) ([]LegalDocument, error) {
	return d.search.SearchText(ctx, term, page)
}

func (d *DualStore) CountByCourt(ctx context.Context, court string) (int, error) {
	return d.archive.CountByCourt(ctx, court)
}

func (d *DualStore) CountByStatus(ctx context.Context, status Status) (int, error) {
	return d.archive.CountByStatus(ctx, status)
}

func (d *DualStore) Count(ctx context.Context) (int, error) {
	return d.archive.Count(ctx)
}

func (d *DualStore) FindFailedForRetry(ctx context.Context, olderThan time.Time) ([]LegalDocument, error) {
	return d.archive.FindFailedForRetry(ctx, olderThan)
}

func (d *DualStore) Delete(ctx context.Context, id string) error {
	if err := d.archive.Delete(ctx, id); err != nil {
		return err
	}
	return d.search.Delete(ctx, id)
}

func (d *DualStore) DeleteAll(ctx context.Context) error {
	if err := d.archive.DeleteAll(ctx); err != nil {
		return err
	}
	return d.search.DeleteAll(ctx)
}
