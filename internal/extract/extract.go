// Package extract pulls structured legal-document fields out of the
// portal's HTML/XML payloads.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// ExtractedContent holds every field C5 can pull from a document. Every
// field is the zero value on parse failure — this package never returns an
// error, matching spec §4.5's "never throws on bad input" rule.
type ExtractedContent struct {
	Title        string
	Court        string
	DecisionDate *time.Time
	CaseNumber   string
	ECLI         string
	DocumentType string
	Norms        string
	Subject      string
	Leitsatz     string
	Tenor        string
	Gruende      string
	FullText     string
}

var metadataLabels = map[string]*struct{}{
	"gericht": nil, "entscheidungsdatum": nil, "aktenzeichen": nil,
	"ecli": nil, "dokumenttyp": nil, "normen": nil,
}

var courtTokenRe = regexp.MustCompile(`(?i)\b(BGH|BVerfG|BAG|BSG|BVerwG|BFH|BPatG)\b`)

const fullTextCap = 50_000

// Extract parses content (HTML or XML-as-HTML-tolerant) and pulls every
// field it can. A parse failure leaves every field at its zero value
// rather than propagating an error.
func Extract(content []byte) ExtractedContent {
	var out ExtractedContent

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(content)))
	if err != nil {
		return out
	}

	out.Title = strings.TrimSpace(doc.Find("title").First().Text())

	meta := extractMetadataTable(doc)
	if v, ok := meta["gericht"]; ok {
		out.Court = normalizeCourt(v)
	} else {
		out.Court = "UNKNOWN"
	}
	if v, ok := meta["entscheidungsdatum"]; ok {
		if t, perr := time.Parse("02.01.2006", strings.TrimSpace(v)); perr == nil {
			out.DecisionDate = &t
		}
	}
	out.CaseNumber = meta["aktenzeichen"]
	out.ECLI = meta["ecli"]
	out.DocumentType = meta["dokumenttyp"]
	out.Norms = meta["normen"]

	out.Subject = extractSubject(doc)
	out.Leitsatz = extractSection(doc, "Leitsatz")
	out.Tenor = extractSection(doc, "Tenor")
	out.Gruende = extractSection(doc, "Gründe")

	out.FullText = capFullText(collapseWhitespace(doc.Find("body").Text()))

	return out
}

// extractMetadataTable pulls label/value pairs from the standard metadata
// table where the label cell matches (case-insensitively) a recognized
// field name.
func extractMetadataTable(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(norm.NFC.String(strings.TrimSpace(cells.Eq(0).Text())))
		label = strings.TrimSuffix(label, ":")
		if _, ok := metadataLabels[label]; !ok {
			return
		}
		value := strings.TrimSpace(cells.Eq(1).Text())
		out[label] = value
	})
	return out
}

func normalizeCourt(raw string) string {
	if m := courtTokenRe.FindString(raw); m != "" {
		return strings.ToUpper(m)
	}
	return "UNKNOWN"
}

// extractSubject takes the first document-layout title paragraph — the
// first <p> inside an element flagged as the document's title/heading
// block, falling back to the first <p> in the document.
func extractSubject(doc *goquery.Document) string {
	if sel := doc.Find(".doc-title p, .dokumentenkopf p").First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.Text())
	}
	return strings.TrimSpace(doc.Find("p").First().Text())
}

// extractSection implements the heading-then-div pattern: find a heading
// whose text equals label, and return the text of the element immediately
// following it.
func extractSection(doc *goquery.Document, label string) string {
	var result string
	doc.Find("h1, h2, h3, h4, b, strong").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(h.Text()), label) {
			return true
		}
		next := h.Next()
		if next.Length() == 0 {
			next = h.Parent().Next()
		}
		result = strings.TrimSpace(next.Text())
		return false
	})
	return result
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func capFullText(s string) string {
	if len(s) <= fullTextCap {
		return s
	}
	return s[:fullTextCap] + "…"
}
