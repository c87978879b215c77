package ecli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_NormalizesAndAddsPrefix(t *testing.T) {
	t.Parallel()
	res, err := Validate("de:bgh:2024:123")
	require.NoError(t, err)
	require.Equal(t, "ECLI:DE:BGH:2024:123", res.Normalized)
	require.True(t, res.Valid)
	require.Equal(t, "DE", res.Components.CountryCode)
}

func TestValidate_AcceptsBareEUForm(t *testing.T) {
	t.Parallel()
	res, err := Validate("EU:C:2005:446")
	require.NoError(t, err)
	require.Equal(t, "EU:C:2005:446", res.Normalized)
}

func TestValidate_RejectsBadYear(t *testing.T) {
	t.Parallel()
	_, err := Validate("ECLI:DE:BGH:1899:123")
	require.Error(t, err)
}

func TestValidate_RejectsUnknownCountryCode(t *testing.T) {
	t.Parallel()
	_, err := Validate("ECLI:ZZ:BGH:2020:123")
	require.Error(t, err)
}

// Testable property 3: validate(normalize(x)) == validate(x).
func TestValidate_IsIdempotentUnderNormalization(t *testing.T) {
	t.Parallel()
	first, err := Validate("ecli:de:bgh:2024:123")
	require.NoError(t, err)

	second, err := Validate(first.Normalized)
	require.NoError(t, err)

	require.Equal(t, first.Normalized, second.Normalized)
	require.Equal(t, first.Components, second.Components)
}

// Scenario S2 from the spec.
func TestExtractAll_ScenarioS2(t *testing.T) {
	t.Parallel()
	text := `See ECLI:DE:BGH:2024:123 and ECLI:DE:BAG:2023:456, also EU:C:2005:446
	but not INVALID:FORMAT.`

	got := ExtractAll(text)

	want := map[string]struct{}{
		"ECLI:DE:BGH:2024:123": {},
		"ECLI:DE:BAG:2023:456": {},
		"EU:C:2005:446":        {},
	}
	require.Equal(t, want, got)
}

// Testable property 3: ExtractAll is closed under reordering and
// duplication of matches.
func TestExtractAll_ClosedUnderDuplicationAndReordering(t *testing.T) {
	t.Parallel()
	a := ExtractAll("ECLI:DE:BGH:2024:123 ECLI:DE:BAG:2023:456 ECLI:DE:BGH:2024:123")
	b := ExtractAll("ECLI:DE:BAG:2023:456 ECLI:DE:BGH:2024:123")

	require.Equal(t, a, b)
}

func TestIsGerman(t *testing.T) {
	t.Parallel()
	require.True(t, IsGerman("ECLI:DE:BGH:2024:123"))
	require.False(t, IsGerman("ECLI:FR:CASS:2024:123"))
}

func TestIsKnownGermanCourt(t *testing.T) {
	t.Parallel()
	require.True(t, IsKnownGermanCourt("bgh"))
	require.False(t, IsKnownGermanCourt("ZZZZZZ"))
}
