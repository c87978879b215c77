// Package store implements C8: the LegalDocument repository contract and
// its two backends (filesystem archive, full-text search index), plus a
// dual-write coordinator that composes them.
package store

import "time"

// Status is a LegalDocument's lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDownloaded Status = "DOWNLOADED"
	StatusProcessed  Status = "PROCESSED"
	StatusFailed     Status = "FAILED"
)

// validTransitions enumerates the allowed Status edges (spec §3): forward
// through the happy path, any state to FAILED, and FAILED back to PENDING
// for a manual retry.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusDownloaded: true, StatusFailed: true},
	StatusDownloaded: {StatusProcessed: true, StatusFailed: true},
	StatusProcessed:  {StatusFailed: true},
	StatusFailed:     {StatusPending: true},
}

// CanTransition reports whether a document may move from `from` to `to`.
// Setting the same status again is always allowed (idempotent re-upsert).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return validTransitions[from][to]
}

// LegalDocument is the central entity (spec §3): one record per documentId.
type LegalDocument struct {
	DocumentID   string
	ECLI         string
	Court        string
	SourceURL    string
	DecisionDate time.Time
	CrawledAt    time.Time
	Title        string
	Subject      string
	Summary      string
	CaseNumber   string
	DocumentType string
	Norms        string
	Leitsatz     string
	Tenor        string
	Gruende      string
	FullText     string
	FilePath     string
	Status       Status
	// ContentHash is the hex SHA-256 digest of the last-fetched raw body,
	// letting a re-crawl detect an unchanged document without re-running
	// extraction/validation.
	ContentHash string
}

// Page bounds a paged read.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
