package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><head><title>BGH, Urteil vom 01.01.2024</title></head>
<body>
<table>
<tr><td>Gericht:</td><td>Bundesgerichtshof (BGH)</td></tr>
<tr><td>Entscheidungsdatum:</td><td>01.01.2024</td></tr>
<tr><td>Aktenzeichen:</td><td>IX ZR 1/24</td></tr>
<tr><td>ECLI:</td><td>ECLI:DE:BGH:2024:123</td></tr>
</table>
<div class="doc-title"><p>Ein wichtiger Rechtsstreit</p></div>
<b>Leitsatz</b>
<div>Der Leitsatz-Text.</div>
<b>Tenor</b>
<div>Der Tenor-Text.</div>
</body></html>`

func TestExtract_PullsMetadataTable(t *testing.T) {
	t.Parallel()
	got := Extract([]byte(sampleHTML))

	require.Equal(t, "BGH", got.Court)
	require.Equal(t, "IX ZR 1/24", got.CaseNumber)
	require.Equal(t, "ECLI:DE:BGH:2024:123", got.ECLI)
	require.NotNil(t, got.DecisionDate)
	require.Equal(t, 2024, got.DecisionDate.Year())
}

func TestExtract_PullsSubjectAndSections(t *testing.T) {
	t.Parallel()
	got := Extract([]byte(sampleHTML))

	require.Equal(t, "Ein wichtiger Rechtsstreit", got.Subject)
	require.Equal(t, "Der Leitsatz-Text.", got.Leitsatz)
	require.Equal(t, "Der Tenor-Text.", got.Tenor)
}

func TestExtract_UnknownCourtWhenNoTokenMatches(t *testing.T) {
	t.Parallel()
	got := Extract([]byte(`<html><body><table><tr><td>Gericht:</td><td>Amtsgericht Nirgendwo</td></tr></table></body></html>`))
	require.Equal(t, "UNKNOWN", got.Court)
}

func TestExtract_NeverErrorsOnGarbageInput(t *testing.T) {
	t.Parallel()
	got := Extract([]byte("\x00\x01not even close to html"))
	require.Equal(t, "UNKNOWN", got.Court)
	require.Empty(t, got.CaseNumber)
}

func TestExtract_CapsFullTextAtFiftyThousandChars(t *testing.T) {
	t.Parallel()
	long := make([]byte, 0, 60_000)
	long = append(long, []byte("<html><body>")...)
	for i := 0; i < 60_000; i++ {
		long = append(long, 'a')
	}
	long = append(long, []byte("</body></html>")...)

	got := Extract(long)
	require.LessOrEqual(t, len(got.FullText), fullTextCap+len("…"))
	require.Contains(t, got.FullText, "…")
}
