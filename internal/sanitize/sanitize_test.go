package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize_RejectsXXE(t *testing.T) {
	t.Parallel()
	input := `<?xml version="1.0"?><!DOCTYPE d [<!ENTITY x SYSTEM "file:///etc/passwd">]><d>&x;</d>`

	_, err := Sanitize([]byte(input), Options{})
	require.Error(t, err)

	kind, ok := AsKind(err)
	require.True(t, ok)
	require.Equal(t, KindExternalEntity, kind)
}

func TestSanitize_RejectsExternalEntityWithoutDoctypeKeyword(t *testing.T) {
	t.Parallel()
	// DOCTYPE-free but still declares an external entity; must not slip
	// through just because the DOCTYPE check alone didn't fire.
	input := `<d><!ENTITY x SYSTEM "http://evil.example/x">&x;</d>`

	_, err := Sanitize([]byte(input), Options{})
	require.Error(t, err)
	kind, _ := AsKind(err)
	require.Equal(t, KindExternalEntity, kind)
}

func TestSanitize_RejectsOversized(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("a", 100)
	_, err := Sanitize([]byte(big), Options{MaxBytes: 10})
	require.Error(t, err)
	kind, _ := AsKind(err)
	require.Equal(t, KindSecurityViolation, kind)
}

func TestSanitize_RejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := Sanitize(nil, Options{})
	require.Error(t, err)
}

func TestSanitize_RejectsInvalidUTF8(t *testing.T) {
	t.Parallel()
	_, err := Sanitize([]byte{0xff, 0xfe, 0xfd}, Options{})
	require.Error(t, err)
	kind, _ := AsKind(err)
	require.Equal(t, KindInvalidEncoding, kind)
}

func TestSanitize_StripsBOMAndControlChars(t *testing.T) {
	t.Parallel()
	input := "\xef\xbb\xbf<d>a\x01b</d>"
	out, err := Sanitize([]byte(input), Options{})
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(string(out), "\xef\xbb\xbf"))
	require.Equal(t, "<d>ab</d>", string(out))
}

func TestSanitize_RejectsMalformedXML(t *testing.T) {
	t.Parallel()
	_, err := Sanitize([]byte("<d><a></d>"), Options{})
	require.Error(t, err)
	kind, _ := AsKind(err)
	require.Equal(t, KindMalformedXML, kind)
}

func TestSanitize_RejectsEntityBomb(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("<d>")
	for i := 0; i < 3; i++ {
		b.WriteString("&amp;")
	}
	b.WriteString("</d>")
	_, err := Sanitize([]byte(b.String()), Options{MaxExpansionRatio: 1})
	require.Error(t, err)
	kind, _ := AsKind(err)
	require.Equal(t, KindXMLBomb, kind)
}

// Round-trip property: sanitize(sanitize(x)) == sanitize(x) for any x the
// sanitizer accepts (Testable property 4 in the spec).
func TestSanitize_RoundTripIsIdempotent(t *testing.T) {
	t.Parallel()
	input := `<judgment><meta><identification/></meta><body>Text &amp; more</body></judgment>`

	once, err := Sanitize([]byte(input), Options{})
	require.NoError(t, err)

	twice, err := Sanitize(once, Options{})
	require.NoError(t, err)

	require.Equal(t, string(once), string(twice))
}

func TestForTextContent_EscapesSpecialCharacters(t *testing.T) {
	t.Parallel()
	require.Equal(t, "a &lt;b&gt; &amp; &#39;c&#39;", ForTextContent(`a <b> & 'c'`))
}

func TestForAttributeValue_EscapesQuotes(t *testing.T) {
	t.Parallel()
	require.Equal(t, "&#34;quoted&#34;", ForAttributeValue(`"quoted"`))
}
