package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_NumberedManual(t *testing.T) {
	input := "1.0 General\n\n1.1 Purpose\nThis manual defines scope.\n\n1.2 Applicability\nApplies to all staff."

	st := Build(nil, input)

	require.Len(t, st.Sections, 1)
	sec := st.Sections[0]
	assert.Equal(t, "General", sec.Title)
	require.Len(t, sec.Policies, 2)
	assert.Equal(t, "Purpose", sec.Policies[0].Title)
	assert.Equal(t, []string{"This manual defines scope."}, nonBlank(sec.Policies[0].Raw))
	assert.Equal(t, "Applicability", sec.Policies[1].Title)
	assert.Equal(t, []string{"Applies to all staff."}, nonBlank(sec.Policies[1].Raw))
}

func TestBuild_PolicyBeforeAnySection(t *testing.T) {
	input := "1.1 Purpose\nScope statement here."

	st := Build(nil, input)

	require.Len(t, st.Sections, 1)
	assert.Equal(t, DefaultSectionTitle, st.Sections[0].Title)
	require.Len(t, st.Sections[0].Policies, 1)
	assert.Equal(t, "Purpose", st.Sections[0].Policies[0].Title)
}

func TestBuild_PreambleSeedsFirstPolicy(t *testing.T) {
	input := "Issued by the operations office.\n\n1.0 General\n\n1.1 Purpose\nBody text."

	st := Build(nil, input)

	require.Len(t, st.Sections, 1)
	require.Len(t, st.Sections[0].Policies, 1)
	raw := nonBlank(st.Sections[0].Policies[0].Raw)
	require.Len(t, raw, 2)
	assert.Equal(t, "Issued by the operations office.", raw[0])
	assert.Equal(t, "Body text.", raw[1])
}

func TestBuild_SectionWithoutPolicyGetsOverview(t *testing.T) {
	input := "1.0 General\nIntro text without any policy heading under it.\n\n2.0 Operations\n\n2.1 Dispatch\nDispatch body."

	st := Build(nil, input)

	require.Len(t, st.Sections, 2)
	require.Len(t, st.Sections[0].Policies, 1)
	assert.Equal(t, OverviewPolicyTitle, st.Sections[0].Policies[0].Title)
	assert.Equal(t, []string{"Intro text without any policy heading under it."}, nonBlank(st.Sections[0].Policies[0].Raw))
	require.Len(t, st.Sections[1].Policies, 1)
	assert.Equal(t, "Dispatch", st.Sections[1].Policies[0].Title)
}

func TestBuild_UnstructuredFallback(t *testing.T) {
	input := "it was a long report with no headings at all, just prose that runs on and on without structure. " +
		"nothing in it resembles an index or a title line."

	st := Build(nil, input)

	require.Len(t, st.Sections, 1)
	assert.Equal(t, DefaultSectionTitle, st.Sections[0].Title)
	require.Len(t, st.Sections[0].Policies, 1)
	assert.Equal(t, DefaultPolicyTitle, st.Sections[0].Policies[0].Title)
	assert.NotEmpty(t, nonBlank(st.Sections[0].Policies[0].Raw))
}

func TestBuild_EmptyInputStillYieldsTree(t *testing.T) {
	st := Build(nil, "")

	require.Len(t, st.Sections, 1)
	require.Len(t, st.Sections[0].Policies, 1)
	assert.Empty(t, nonBlank(st.Sections[0].Policies[0].Raw))
}

func TestBuild_Counts(t *testing.T) {
	input := "1.0 Alpha\n1.1 One\nx\n1.2 Two\ny\n2.0 Beta\n2.1 Three\nz"

	st := Build(nil, input)

	assert.Equal(t, 2, st.SectionCount())
	assert.Equal(t, 3, st.PolicyCount())
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
