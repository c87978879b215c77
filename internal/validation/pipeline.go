// Package validation composes sanitize/ecli/legaldocml into the single
// validation entry point the downloader calls.
package validation

import (
	"github.com/mjochum64/law-crawler-service/internal/ecli"
	"github.com/mjochum64/law-crawler-service/internal/legaldocml"
	"github.com/mjochum64/law-crawler-service/internal/sanitize"
)

// Mode selects strict or lenient error handling.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// Report is the pipeline's full validation result, matching spec §4.4.
type Report struct {
	Valid                 bool
	SanitizationPassed    bool
	StructureValid        bool
	LegalDocMLFormat      bool
	DocumentType          string
	ECLIIdentifiers       []string
	ElementCount          int
	HasSubstantialContent bool
	Validations           []string
	Warnings              []string
	Errors                []string
	OriginalSize          int
	SanitizedSize         int
}

// Options tunes pipeline bounds and behavior.
type Options struct {
	Mode     Mode
	MaxBytes int
	// Observer, if set, is called for every extracted German ECLI whose
	// court code falls outside ecli.IsKnownGermanCourt (spec §4.2: an
	// unrecognized German court code is a debug-level note, not an error).
	Observer ecli.UnrecognizedCourtObserver
}

// observeUnrecognizedCourts reports each identifiers entry with a DE
// country code and a court outside the known set to opts.Observer.
func observeUnrecognizedCourts(identifiers []string, opts Options) {
	if opts.Observer == nil {
		return
	}
	for _, id := range identifiers {
		res, err := ecli.Validate(id)
		if err != nil || res.Components.CountryCode != "DE" {
			continue
		}
		if !ecli.IsKnownGermanCourt(res.Components.Court) {
			opts.Observer(res.Components.Court)
		}
	}
}

// Validate runs the full C1→C3 pipeline and produces a Report.
func Validate(raw []byte, opts Options) Report {
	report := Report{Valid: true, OriginalSize: len(raw)}

	clean, err := sanitize.Sanitize(raw, sanitize.Options{MaxBytes: opts.MaxBytes})
	if err != nil {
		report.SanitizationPassed = false
		report.Valid = false
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.SanitizationPassed = true
	report.SanitizedSize = len(clean)

	docmlReport := legaldocml.Validate(clean)
	report.StructureValid = docmlReport.Valid
	report.LegalDocMLFormat = docmlReport.IsLegalDocML
	report.DocumentType = docmlReport.RootElement
	report.ElementCount = len(docmlReport.Validations) + len(docmlReport.Warnings)
	report.Validations = append(report.Validations, docmlReport.Validations...)
	report.Warnings = append(report.Warnings, docmlReport.Warnings...)

	identifiers := ecli.ExtractAll(string(clean))
	for id := range identifiers {
		report.ECLIIdentifiers = append(report.ECLIIdentifiers, id)
	}
	observeUnrecognizedCourts(report.ECLIIdentifiers, opts)

	report.HasSubstantialContent = len(clean) > 0

	if !docmlReport.Valid {
		switch opts.Mode {
		case ModeStrict:
			report.Valid = false
			report.Errors = append(report.Errors, docmlReport.Errors...)
		default: // lenient: structural errors degrade to warnings
			report.Warnings = append(report.Warnings, docmlReport.Errors...)
		}
	}

	return report
}

// QuickValidate is the fast path: sanitize → structure parse → format
// detect → ECLI extract, skipping the deep LegalDocML structural checks.
func QuickValidate(raw []byte, opts Options) Report {
	report := Report{Valid: true, OriginalSize: len(raw)}

	clean, err := sanitize.Sanitize(raw, sanitize.Options{MaxBytes: opts.MaxBytes})
	if err != nil {
		report.SanitizationPassed = false
		report.Valid = false
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.SanitizationPassed = true
	report.SanitizedSize = len(clean)
	report.StructureValid = true

	docmlReport := legaldocml.Validate(clean)
	report.LegalDocMLFormat = docmlReport.IsLegalDocML
	report.DocumentType = docmlReport.RootElement

	identifiers := ecli.ExtractAll(string(clean))
	for id := range identifiers {
		report.ECLIIdentifiers = append(report.ECLIIdentifiers, id)
	}
	observeUnrecognizedCourts(report.ECLIIdentifiers, opts)
	report.HasSubstantialContent = len(clean) > 0

	return report
}
