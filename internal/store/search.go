package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// indexedDoc is the flattened shape written to the bleve index, matching
// the field set named in spec §4.8.
type indexedDoc struct {
	DocumentID   string    `json:"document_id"`
	Court        string    `json:"court"`
	ECLI         string    `json:"ecli_identifier"`
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	FullText     string    `json:"full_text"`
	CaseNumber   string    `json:"case_number"`
	DocumentType string    `json:"document_type"`
	DecisionDate time.Time `json:"decision_date"`
	CrawledAt    time.Time `json:"crawled_at"`
	IndexedAt    time.Time `json:"indexed_at"`
	Status       string    `json:"status"`
	FilePath     string    `json:"file_path"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Leitsatz     string    `json:"leitsatz"`
	Tenor        string    `json:"tenor"`
	Gruende      string    `json:"gruende"`
	// All is the unified copy-field backing free-text default queries.
	All string `json:"all"`
}

// caseInsensitiveKeywordAnalyzer is a keyword analyzer (single token, no
// stemming/stopwording) with a lowercase filter, so exact-match fields like
// court/status/ECLI index case-foldingly even though they're stored and
// returned in their original case. Query-side lookups lowercase the term to
// match (termSearch/countTerm), keeping both sides of the comparison aligned.
const caseInsensitiveKeywordAnalyzer = "keyword_ci"

// buildMapping constructs the index mapping: German analysis on the
// German-language prose fields, case-insensitive keyword analysis on
// identifiers/enums, a unified "all" copy-field for default queries.
func buildMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(caseInsensitiveKeywordAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		panic(fmt.Sprintf("register %s analyzer: %v", caseInsensitiveKeywordAnalyzer, err))
	}

	deFieldMapping := bleve.NewTextFieldMapping()
	deFieldMapping.Analyzer = de.AnalyzerName

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = caseInsensitiveKeywordAnalyzer

	dt := bleve.NewDateTimeFieldMapping()

	doc := bleve.NewDocumentMapping()
	for _, field := range []string{"title", "summary", "full_text", "leitsatz", "tenor", "gruende", "all"} {
		doc.AddFieldMappingsAt(field, deFieldMapping)
	}
	for _, field := range []string{"document_id", "court", "ecli_identifier", "source_url", "case_number", "document_type", "status", "file_path"} {
		doc.AddFieldMappingsAt(field, keyword)
	}
	for _, field := range []string{"decision_date", "crawled_at", "indexed_at"} {
		doc.AddFieldMappingsAt(field, dt)
	}

	m.DefaultMapping = doc
	m.DefaultAnalyzer = de.AnalyzerName
	return m
}

// SearchStore is the full-text search backend, backed by an embedded bleve
// index. Grounded on the Domain Stack's bleve choice (no in-pack repo runs
// a real external search engine client); this is the stand-in that still
// exercises the same Repository contract as ArchiveStore.
type SearchStore struct {
	index bleve.Index
}

// NewSearchStore opens (or creates) a bleve index at path. Pass "" for an
// in-memory index, useful in tests.
func NewSearchStore(path string) (*SearchStore, error) {
	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(buildMapping())
	} else {
		idx, err = bleve.Open(path)
		if err != nil {
			idx, err = bleve.New(path, buildMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &SearchStore{index: idx}, nil
}

// Close releases the underlying bleve index.
func (s *SearchStore) Close() error {
	return s.index.Close()
}

func toIndexed(doc LegalDocument) indexedDoc {
	return indexedDoc{
		DocumentID:   doc.DocumentID,
		Court:        doc.Court,
		ECLI:         doc.ECLI,
		SourceURL:    doc.SourceURL,
		Title:        doc.Title,
		Summary:      doc.Summary,
		FullText:     doc.FullText,
		CaseNumber:   doc.CaseNumber,
		DocumentType: doc.DocumentType,
		DecisionDate: doc.DecisionDate,
		CrawledAt:    doc.CrawledAt,
		IndexedAt:    time.Now().UTC(),
		Status:       string(doc.Status),
		FilePath:     doc.FilePath,
		Year:         doc.DecisionDate.Year(),
		Month:        int(doc.DecisionDate.Month()),
		Leitsatz:     doc.Leitsatz,
		Tenor:        doc.Tenor,
		Gruende:      doc.Gruende,
		All:          strings.Join([]string{doc.Title, doc.Summary, doc.FullText, doc.Leitsatz, doc.Tenor, doc.Gruende}, "\n"),
	}
}

// fromHitFields reconstructs a LegalDocument from a search hit's stored
// fields, taking the first value of any multi-valued field per spec §4.8's
// degrade-on-read rule.
func fromHitFields(id string, fields map[string]interface{}) LegalDocument {
	str := func(key string) string {
		v, ok := first(fields[key])
		if !ok {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	ts := func(key string) time.Time {
		v, ok := first(fields[key])
		if !ok {
			return time.Time{}
		}
		s, ok := v.(string)
		if !ok {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return LegalDocument{
		DocumentID:   id,
		Court:        str("court"),
		ECLI:         str("ecli_identifier"),
		SourceURL:    str("source_url"),
		Title:        str("title"),
		Summary:      str("summary"),
		FullText:     str("full_text"),
		CaseNumber:   str("case_number"),
		DocumentType: str("document_type"),
		DecisionDate: ts("decision_date"),
		CrawledAt:    ts("crawled_at"),
		Status:       Status(str("status")),
		FilePath:     str("file_path"),
		Leitsatz:     str("leitsatz"),
		Tenor:        str("tenor"),
		Gruende:      str("gruende"),
	}
}

func first(v interface{}) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if arr, ok := v.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, false
		}
		return arr[0], true
	}
	return v, true
}

func (s *SearchStore) Upsert(_ context.Context, doc LegalDocument) error {
	if err := s.index.Index(doc.DocumentID, toIndexed(doc)); err != nil {
		return fmt.Errorf("index document %s: %w", doc.DocumentID, err)
	}
	return nil
}

func (s *SearchStore) FindByDocumentID(_ context.Context, id string) (LegalDocument, bool, error) {
	doc, err := s.index.Document(id)
	if err != nil {
		return LegalDocument{}, false, fmt.Errorf("lookup document %s: %w", id, err)
	}
	if doc == nil {
		return LegalDocument{}, false, nil
	}
	return fromHitFields(id, storedFields(doc)), true, nil
}

func (s *SearchStore) ExistsBySourceURL(ctx context.Context, url string) (bool, error) {
	q := query.NewTermQuery(url)
	q.SetField("source_url")
	result, err := s.index.Search(bleve.NewSearchRequestOptions(q, 1, 0, false))
	if err != nil {
		return false, fmt.Errorf("search by source url: %w", err)
	}
	return result.Total > 0, nil
}

func (s *SearchStore) termSearch(field, value string, page Page) ([]LegalDocument, error) {
	q := query.NewTermQuery(strings.ToLower(value))
	q.SetField(field)
	return s.runSearch(q, page)
}

func (s *SearchStore) FindByCourt(_ context.Context, court string, page Page) ([]LegalDocument, error) {
	return s.termSearch("court", court, page)
}

func (s *SearchStore) FindByStatus(_ context.Context, status Status, page Page) ([]LegalDocument, error) {
	return s.termSearch("status", string(status), page)
}

func (s *SearchStore) FindByDateRange(_ context.Context, from, to time.Time, page Page) ([]LegalDocument, error) {
	incl := true
	q := query.NewDateRangeInclusiveQuery(from, to, &incl, &incl)
	q.SetField("decision_date")
	return s.runSearch(q, page)
}

func (s *SearchStore) FindByECLI(_ context.Context, ecli string) (LegalDocument, bool, error) {
	results, err := s.termSearch("ecli_identifier", ecli, Page{Limit: 1})
	if err != nil {
		return LegalDocument{}, false, err
	}
	if len(results) == 0 {
		return LegalDocument{}, false, nil
	}
	return results[0], true, nil
}

func (s *SearchStore) FindByCrawledAfter(_ context.Context, t time.Time, page Page) ([]LegalDocument, error) {
	incl := true
	q := query.NewDateRangeInclusiveQuery(t, time.Now().UTC().AddDate(10, 0, 0), &incl, &incl)
	q.SetField("crawled_at")
	return s.runSearch(q, page)
}

func (s *SearchStore) FindRecent(_ context.Context, page Page) ([]LegalDocument, error) {
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(q, page.normalized().Limit, page.normalized().Offset, false)
	req.SortBy([]string{"-crawled_at"})
	req.Fields = []string{"*"}
	result, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("find recent: %w", err)
	}
	return hitsToDocuments(result), nil
}

func (s *SearchStore) SearchText(_ context.Context, term string, page Page) ([]LegalDocument, error) {
	q := query.NewMatchQuery(term)
	q.SetField("all")
	return s.runSearch(q, page)
}

func (s *SearchStore) CountByCourt(_ context.Context, court string) (int, error) {
	return s.countTerm("court", court)
}

func (s *SearchStore) CountByStatus(_ context.Context, status Status) (int, error) {
	return s.countTerm("status", string(status))
}

func (s *SearchStore) countTerm(field, value string) (int, error) {
	q := query.NewTermQuery(strings.ToLower(value))
	q.SetField(field)
	result, err := s.index.Search(bleve.NewSearchRequestOptions(q, 0, 0, false))
	if err != nil {
		return 0, fmt.Errorf("count by %s: %w", field, err)
	}
	return int(result.Total), nil
}

func (s *SearchStore) Count(_ context.Context) (int, error) {
	n, err := s.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return int(n), nil
}

func (s *SearchStore) FindFailedForRetry(_ context.Context, olderThan time.Time) ([]LegalDocument, error) {
	statusQ := query.NewTermQuery(strings.ToLower(string(StatusFailed)))
	statusQ.SetField("status")
	incl := true
	dateQ := query.NewDateRangeInclusiveQuery(time.Time{}, olderThan, &incl, &incl)
	dateQ.SetField("crawled_at")
	conj := query.NewConjunctionQuery([]query.Query{statusQ, dateQ})
	return s.runSearch(conj, Page{Limit: 0})
}

func (s *SearchStore) Delete(_ context.Context, id string) error {
	if err := s.index.Delete(id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (s *SearchStore) DeleteAll(ctx context.Context) error {
	for {
		batch, err := s.runSearch(bleve.NewMatchAllQuery(), Page{})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, doc := range batch {
			if err := s.index.Delete(doc.DocumentID); err != nil {
				return fmt.Errorf("delete all: %w", err)
			}
		}
	}
}

func (s *SearchStore) runSearch(q query.Query, page Page) ([]LegalDocument, error) {
	p := page
	unbounded := p.Limit == 0 && p.Offset == 0
	if unbounded {
		p.Limit = maxSearchResults
	} else {
		p = p.normalized()
	}
	req := bleve.NewSearchRequestOptions(q, p.Limit, p.Offset, false)
	req.Fields = []string{"*"}
	result, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hitsToDocuments(result), nil
}

// maxSearchResults bounds "unbounded" queries (e.g. findFailedForRetry)
// against a single index round trip.
const maxSearchResults = 10000

func hitsToDocuments(result *bleve.SearchResult) []LegalDocument {
	docs := make([]LegalDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, fromHitFields(hit.ID, hit.Fields))
	}
	return docs
}

// storedFields flattens a bleve document.Document's stored fields into the
// same shape search hits expose, so FindByDocumentID can reuse fromHitFields.
func storedFields(doc *document.Document) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range doc.Fields {
		name := f.Name()
		val := string(f.Value())
		if existing, ok := out[name]; ok {
			switch e := existing.(type) {
			case []interface{}:
				out[name] = append(e, val)
			default:
				out[name] = []interface{}{e, val}
			}
			continue
		}
		out[name] = val
	}
	return out
}
