package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario S1 from the spec.
func TestQuickValidate_ScenarioS1_RejectsXXE(t *testing.T) {
	t.Parallel()
	input := `<?xml version="1.0"?><!DOCTYPE d [<!ENTITY x SYSTEM "file:///etc/passwd">]><d>&x;</d>`

	report := QuickValidate([]byte(input), Options{})

	require.False(t, report.Valid)
	require.False(t, report.SanitizationPassed)
}

func TestValidate_StrictModeFailsOnStructuralError(t *testing.T) {
	t.Parallel()
	report := Validate([]byte(`<doc>no akn namespace</doc>`), Options{Mode: ModeStrict})
	require.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
}

func TestValidate_LenientModeDowngradesStructuralErrorsToWarnings(t *testing.T) {
	t.Parallel()
	report := Validate([]byte(`<doc>no akn namespace</doc>`), Options{Mode: ModeLenient})
	require.True(t, report.Valid)
	require.NotEmpty(t, report.Warnings)
	require.Empty(t, report.Errors)
}

func TestValidate_LenientModeStillFailsOnSanitizationError(t *testing.T) {
	t.Parallel()
	input := `<!DOCTYPE d><d/>`
	report := Validate([]byte(input), Options{Mode: ModeLenient})
	require.False(t, report.Valid)
	require.False(t, report.SanitizationPassed)
}

func TestValidate_ExtractsECLIIdentifiers(t *testing.T) {
	t.Parallel()
	input := `<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification><FRBRWork/><FRBRExpression/><FRBRManifestation/></identification><publication/><lifecycle/></meta>
			<body>ECLI:DE:BGH:2024:123</body>
		</judgment>
	</akomaNtoso>`
	report := Validate([]byte(input), Options{Mode: ModeLenient})
	require.Contains(t, report.ECLIIdentifiers, "ECLI:DE:BGH:2024:123")
	require.True(t, report.HasSubstantialContent)
}

func TestValidate_ObservesUnrecognizedGermanCourtCode(t *testing.T) {
	t.Parallel()
	input := `<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification><FRBRWork/><FRBRExpression/><FRBRManifestation/></identification><publication/><lifecycle/></meta>
			<body>ECLI:DE:XYZZY:2024:123</body>
		</judgment>
	</akomaNtoso>`

	var observed []string
	report := Validate([]byte(input), Options{
		Mode:     ModeLenient,
		Observer: func(court string) { observed = append(observed, court) },
	})

	require.Contains(t, report.ECLIIdentifiers, "ECLI:DE:XYZZY:2024:123")
	require.Equal(t, []string{"XYZZY"}, observed)
}

func TestValidate_DoesNotObserveKnownGermanCourtCode(t *testing.T) {
	t.Parallel()
	input := `<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification><FRBRWork/><FRBRExpression/><FRBRManifestation/></identification><publication/><lifecycle/></meta>
			<body>ECLI:DE:BGH:2024:123</body>
		</judgment>
	</akomaNtoso>`

	var observed []string
	report := Validate([]byte(input), Options{
		Mode:     ModeLenient,
		Observer: func(court string) { observed = append(observed, court) },
	})

	require.True(t, report.Valid)
	require.Empty(t, observed)
}
