// Package ecli parses and validates European Case Law Identifiers.
package ecli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upperCaser performs locale-independent uppercasing of the ASCII
// identifier components; ECLI codes are language-agnostic by design, so
// language.Und (undetermined) is deliberate, not a placeholder.
var upperCaser = cases.Upper(language.Und)

func upper(s string) string { return upperCaser.String(s) }

// euCountryCodes is the ISO 3166-1 alpha-2 set recognized for the CC
// component, plus the two non-ISO codes the ECLI scheme itself carves out.
var euCountryCodes = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true, "DE": true,
	"DK": true, "EE": true, "ES": true, "FI": true, "FR": true, "GR": true,
	"HR": true, "HU": true, "IE": true, "IT": true, "LT": true, "LU": true,
	"LV": true, "MT": true, "NL": true, "PL": true, "PT": true, "RO": true,
	"SE": true, "SI": true, "SK": true,
	"EL": true, "UK": true, "EU": true,
}

// knownGermanCourts is a non-exhaustive set of recognized German court
// codes. An unrecognized German court code is not an error — §4.2 specifies
// it only produces a debug-level observation.
var knownGermanCourts = map[string]bool{
	"BGH": true, "BVERFG": true, "BAG": true, "BSG": true, "BVERWG": true,
	"BFH": true, "BPATG": true, "OLG": true, "LG": true, "AG": true,
	"FG": true, "ARBG": true, "SG": true, "VG": true,
}

var ecliRe = regexp.MustCompile(`(?i)ECLI:([A-Z]{2}):([A-Z][A-Z0-9]{0,6}):(\d{4}):([A-Z0-9.]{1,25})`)
var euFormRe = regexp.MustCompile(`(?i)\bEU:C:(\d{4}):([A-Z0-9.]{1,25})`)

// Components are the parsed fields of a normalized ECLI string.
type Components struct {
	CountryCode string
	Court       string
	Year        int
	Ordinal     string
}

// Result is the outcome of Validate.
type Result struct {
	Normalized string
	Components Components
	Valid      bool
}

// UnrecognizedCourtObserver is invoked with a debug-level note when a German
// ECLI references a court code outside knownGermanCourts. It defaults to a
// no-op; callers that want logging set validation.Options.Observer rather
// than this package taking a logger directly.
type UnrecognizedCourtObserver func(court string)

// Validate parses and validates s against the ECLI grammar, returning the
// normalized (upper-cased, ECLI:-prefixed unless it is the bare EU form)
// identifier and its parsed components.
func Validate(s string) (Result, error) {
	return ValidateAt(s, time.Now())
}

// ValidateAt is Validate with an explicit reference time for the
// currentYear+1 upper bound, making the year-range check deterministic in
// tests.
func ValidateAt(s string, now time.Time) (Result, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Result{}, fmt.Errorf("ecli: empty input")
	}

	if m := euFormRe.FindStringSubmatch(trimmed); m != nil && strings.EqualFold(trimmed, m[0]) {
		year, _ := strconv.Atoi(m[1])
		if err := validateYear(year, now); err != nil {
			return Result{}, err
		}
		comp := Components{CountryCode: "EU", Court: "C", Year: year, Ordinal: upper(m[2])}
		return Result{
			Normalized: fmt.Sprintf("EU:C:%04d:%s", year, comp.Ordinal),
			Components: comp,
			Valid:      true,
		}, nil
	}

	full := trimmed
	if !strings.HasPrefix(upper(full), "ECLI:") {
		full = "ECLI:" + full
	}

	m := ecliRe.FindStringSubmatch(full)
	if m == nil || !strings.EqualFold(full, m[0]) {
		return Result{}, fmt.Errorf("ecli: %q does not match the ECLI grammar", s)
	}

	cc := upper(m[1])
	if !euCountryCodes[cc] {
		return Result{}, fmt.Errorf("ecli: unrecognized country code %q", cc)
	}
	court := upper(m[2])
	year, _ := strconv.Atoi(m[3])
	if err := validateYear(year, now); err != nil {
		return Result{}, err
	}
	ordinal := upper(m[4])

	comp := Components{CountryCode: cc, Court: court, Year: year, Ordinal: ordinal}
	normalized := fmt.Sprintf("ECLI:%s:%s:%04d:%s", cc, court, year, ordinal)

	return Result{Normalized: normalized, Components: comp, Valid: true}, nil
}

func validateYear(year int, now time.Time) error {
	if year < 1900 || year > now.Year()+1 {
		return fmt.Errorf("ecli: year %d outside [1900, %d]", year, now.Year()+1)
	}
	return nil
}

// IsGerman reports whether a normalized-or-raw ECLI string's country code
// is DE.
func IsGerman(s string) bool {
	res, err := Validate(s)
	if err != nil {
		return false
	}
	return res.Components.CountryCode == "DE"
}

// IsKnownGermanCourt reports whether court is in the recognized German
// court-code set. Callers use this to decide whether to emit the
// debug-level "unrecognized court" note the spec calls for.
func IsKnownGermanCourt(court string) bool {
	return knownGermanCourts[upper(court)]
}

// ExtractAll scans text for every ECLI occurrence (both the ECLI:-prefixed
// and bare EU forms) and returns the set of normalized, valid matches.
// Invalid-looking matches are discarded silently, and duplicates collapse
// naturally via the map — ExtractAll is closed under reordering and
// duplication of the input's matches (testable property 3).
func ExtractAll(text string) map[string]struct{} {
	out := make(map[string]struct{})
	now := time.Now()

	for _, m := range ecliRe.FindAllString(text, -1) {
		if res, err := ValidateAt(m, now); err == nil {
			out[res.Normalized] = struct{}{}
		}
	}
	for _, m := range euFormRe.FindAllString(text, -1) {
		if res, err := ValidateAt(m, now); err == nil {
			out[res.Normalized] = struct{}{}
		}
	}
	return out
}
