package legaldocml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_ErrorsOnMissingNamespace(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<doc><body>no akn anywhere</body></doc>`))
	require.False(t, r.Valid)
	require.False(t, r.IsLegalDocML)
	require.NotEmpty(t, r.Errors)
}

func TestValidate_ErrorsOnMissingMeta(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment><body>text</body></judgment>
	</akomaNtoso>`))
	require.False(t, r.Valid)
	require.Contains(t, joinErrors(r.Errors), "meta element is absent")
}

func TestValidate_WarnsOnMissingFRBRLevelsAndMetaChildren(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification></identification></meta>
			<body>text</body>
		</judgment>
	</akomaNtoso>`))
	require.True(t, r.Valid, "warnings alone must not fail validity")
	require.Contains(t, joinErrors(r.Warnings), "FRBRWork")
	require.Contains(t, joinErrors(r.Warnings), "publication")
}

func TestValidate_DetectsGermanJudgmentFields(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta>
				<identification>
					<FRBRWork/><FRBRExpression/><FRBRManifestation/>
				</identification>
				<publication/><lifecycle/>
			</meta>
			<body>
				<courtType>BGH</courtType>
				<docketNumber>IX ZR 1/24</docketNumber>
			</body>
		</judgment>
	</akomaNtoso>`))
	require.True(t, r.Valid)
	require.Empty(t, r.Warnings)
	require.Contains(t, joinErrors(r.Validations), "courtType")
	require.Contains(t, joinErrors(r.Validations), "docketNumber")
}

func TestValidate_WarnsOnBadIdentifierFormats(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification><FRBRWork/><FRBRExpression/><FRBRManifestation/></identification><publication/><lifecycle/></meta>
			<body><section eId="Not Valid!" GUID="not-a-guid"/></body>
		</judgment>
	</akomaNtoso>`))
	require.True(t, r.Valid)
	require.Contains(t, joinErrors(r.Warnings), "eId")
	require.Contains(t, joinErrors(r.Warnings), "GUID")
}

func TestValidate_AcceptsHierarchicalDottedEId(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`<akomaNtoso xmlns:akn="http://docs.oasis-open.org/legaldocml/ns/akn/3.0">
		<judgment>
			<meta><identification><FRBRWork/><FRBRExpression/><FRBRManifestation/></identification><publication/><lifecycle/></meta>
			<body><section eId="art.5.para.2" GUID="a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"/></body>
		</judgment>
	</akomaNtoso>`))
	require.True(t, r.Valid)
	require.NotContains(t, joinErrors(r.Warnings), "eId")
	require.NotContains(t, joinErrors(r.Warnings), "GUID")
}

func TestValidate_NeverErrorsOnMalformedInput(t *testing.T) {
	t.Parallel()
	r := Validate([]byte(`not xml at all`))
	require.False(t, r.Valid)
	require.NotEmpty(t, r.Errors)
}

func joinErrors(ss []string) string {
	out := ""
	for _, s := range ss {
		out += s + "\n"
	}
	return out
}
