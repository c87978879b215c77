// Package legaldocml detects and structurally validates LegalDocML.de /
// Akoma Ntoso documents.
package legaldocml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const aknNamespace = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0"

var recognizedRoots = map[string]bool{
	"akomaNtoso": true, "act": true, "bill": true, "doc": true,
	"judgment": true, "portion": true, "documentCollection": true,
}

var (
	eIDRe  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	wIDRe  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	guidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Report is the outcome of Validate.
type Report struct {
	Valid        bool
	IsLegalDocML bool
	RootElement  string
	Errors       []string
	Warnings     []string
	Validations  []string
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) addValidation(format string, args ...any) {
	r.Validations = append(r.Validations, fmt.Sprintf(format, args...))
}

// Validate parses doc and checks it against the LegalDocML/Akoma Ntoso
// structural rules in spec §4.3. It never returns an error for malformed
// input: a parse failure surfaces as Report.Valid == false with an error
// entry, matching the "never throws across component boundaries" policy.
func Validate(doc []byte) *Report {
	report := &Report{Valid: true}

	root, all, err := parse(doc)
	if err != nil {
		report.Valid = false
		report.addError("failed to parse document: %s", err)
		return report
	}

	report.RootElement = root.name.Local
	report.IsLegalDocML = looksLikeLegalDocML(root, all)

	if !report.IsLegalDocML {
		report.Valid = false
		report.addError("no LegalDocML/Akoma Ntoso namespace or akn: token found on root")
		return report
	}

	if !recognizedRoots[report.RootElement] {
		report.addWarning("unexpected root element %q", report.RootElement)
	}

	meta := findDescendant(root, "meta")
	if meta == nil {
		report.Valid = false
		report.addError("meta element is absent")
	} else {
		checkMeta(meta, report)
	}

	if findDescendant(root, "body") == nil {
		report.addWarning("missing structural element: body")
	}

	checkIdentifiers(all, report)

	if isJudgment(root, all) {
		checkGermanJudgment(root, report)
	}

	return report
}

func looksLikeLegalDocML(root *node, all []*node) bool {
	if strings.Contains(root.name.Space, "akn") || root.name.Space == aknNamespace {
		return true
	}
	for _, attr := range root.attr {
		if strings.Contains(attr.Value, "akn") || attr.Value == aknNamespace {
			return true
		}
	}
	if strings.Contains(strings.ToLower(root.name.Local), "akomantoso") {
		return true
	}
	return hasToken(all, "akn:") || hasToken(all, "akomaNtoso")
}

func hasToken(all []*node, token string) bool {
	for _, n := range all {
		if strings.Contains(n.name.Local, token) || strings.Contains(n.name.Space, token) {
			return true
		}
	}
	return false
}

func checkMeta(meta *node, report *Report) {
	for _, sub := range []string{"identification", "publication", "lifecycle"} {
		if findChild(meta, sub) == nil {
			report.addWarning("meta missing subelement %q", sub)
		}
	}

	ident := findChild(meta, "identification")
	if ident != nil {
		for _, level := range []string{"FRBRWork", "FRBRExpression", "FRBRManifestation"} {
			if findDescendant(ident, level) == nil {
				report.addWarning("identification missing FRBR level %q", level)
			}
		}
	} else {
		report.addWarning("cannot check FRBR levels: identification missing")
	}
}

func checkIdentifiers(all []*node, report *Report) {
	for _, n := range all {
		if eID := attrValue(n, "eId"); eID != "" && !eIDRe.MatchString(eID) {
			report.addWarning("eId %q is not a valid hierarchical dotted identifier", eID)
		}
		if wID := attrValue(n, "wId"); wID != "" && !wIDRe.MatchString(wID) {
			report.addWarning("wId %q contains disallowed characters", wID)
		}
		if guid := attrValue(n, "GUID"); guid != "" && !guidRe.MatchString(guid) {
			report.addWarning("GUID %q is not a canonical UUID", guid)
		}
	}
}

func isJudgment(root *node, all []*node) bool {
	if root.name.Local == "judgment" {
		return true
	}
	return hasToken(all, "judgment") || hasToken(all, "urteil") || hasToken(all, "decision")
}

func checkGermanJudgment(root *node, report *Report) {
	probes := []string{"courtType", "docketNumber", "decisionDate", "judges", "procedure"}
	for _, p := range probes {
		if findDescendant(root, p) != nil {
			report.addValidation("found German judgment field %q", p)
		}
	}
}

// --- a minimal nested tree built over encoding/xml tokens, enough for
// namespace, parent/child, and attribute checks without a third DOM
// library. ---

type node struct {
	name     xml.Name
	attr     []xml.Attr
	children []*node
}

func findChild(n *node, local string) *node {
	for _, c := range n.children {
		if c.name.Local == local {
			return c
		}
	}
	return nil
}

func findDescendant(n *node, local string) *node {
	for _, c := range n.children {
		if c.name.Local == local {
			return c
		}
		if found := findDescendant(c, local); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *node, local string) string {
	for _, a := range n.attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func parse(doc []byte) (root *node, all []*node, err error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var stack []*node

	for {
		tok, terr := dec.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return nil, nil, terr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name, attr: t.Attr}
			all = append(all, n)
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, nil, fmt.Errorf("no root element found")
	}
	return root, all, nil
}
