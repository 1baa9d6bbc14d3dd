package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseward/manualforge/internal/structure"
)

// fakePersister records the structure handed to it.
type fakePersister struct {
	persisted *structure.Structure
	actorID   string
	err       error
}

func (f *fakePersister) PersistStructure(_ context.Context, st *structure.Structure, actorID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.persisted = st
	f.actorID = actorID
	return "manual-1", nil
}

const sampleDoc = "1.0 General\n\n1.1 Purpose\nThis manual defines scope.\n\n1.2 Applicability\nApplies to all staff."

func TestPreview_NumberedDocument(t *testing.T) {
	o := New(nil)

	res, err := o.Preview(context.Background(), Document{Filename: "ops.pdf", Payload: []byte(sampleDoc)}, Options{Granularity: "h2"})
	require.NoError(t, err)

	assert.Equal(t, Summary{Sections: 1, Policies: 2}, res.Summary)

	st := res.Structure
	assert.Equal(t, "Ops", st.Title)
	require.Len(t, st.Sections, 1)
	sec := st.Sections[0]
	assert.Equal(t, "General", sec.Title)
	require.Len(t, sec.Policies, 2)
	assert.Equal(t, "Purpose", sec.Policies[0].Title)
	assert.Equal(t, "<p>This manual defines scope.</p>", sec.Policies[0].ContentHTML)
	assert.Equal(t, "Applicability", sec.Policies[1].Title)
	assert.Equal(t, "<p>Applies to all staff.</p>", sec.Policies[1].ContentHTML)
}

func TestPreview_TitleOverrideWins(t *testing.T) {
	o := New(nil)

	res, err := o.Preview(context.Background(), Document{Filename: "ops.pdf", Payload: []byte(sampleDoc)},
		Options{ManualTitle: "Flight Operations Manual"})
	require.NoError(t, err)
	assert.Equal(t, "Flight Operations Manual", res.Structure.Title)
}

func TestPreview_RejectsUnsupportedType(t *testing.T) {
	o := New(nil)

	_, err := o.Preview(context.Background(), Document{Filename: "ops.txt", Payload: []byte("x")}, Options{})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPreview_RejectsOversizedPayload(t *testing.T) {
	o := New(nil)

	// DOCX ceiling is 20 MB.
	big := make([]byte, 21<<20)
	_, err := o.Preview(context.Background(), Document{Filename: "ops.docx", Payload: big}, Options{})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestPreview_EmptyPayloadIsDecodeFailure(t *testing.T) {
	o := New(nil)

	_, err := o.Preview(context.Background(), Document{Filename: "ops.pdf", Payload: []byte("  \n ")}, Options{})
	require.ErrorIs(t, err, ErrDecodeFailure)
}

func TestPreview_UnstructuredInputFallsBack(t *testing.T) {
	o := New(nil)

	prose := "a long report containing nothing that resembles a heading, written as continuous prose from start to finish and then some more."
	res, err := o.Preview(context.Background(), Document{Filename: "notes.pdf", Payload: []byte(prose)}, Options{})
	require.NoError(t, err)

	require.Equal(t, Summary{Sections: 1, Policies: 1}, res.Summary)
	pol := res.Structure.Sections[0].Policies[0]
	assert.NotEmpty(t, pol.ContentHTML)
	assert.NotEqual(t, "", pol.ContentHTML)
}

func TestPreview_HasNoSideEffects(t *testing.T) {
	fp := &fakePersister{}
	o := New(fp)

	_, err := o.Preview(context.Background(), Document{Filename: "ops.pdf", Payload: []byte(sampleDoc)}, Options{})
	require.NoError(t, err)
	assert.Nil(t, fp.persisted, "preview must not touch the store")
}

func TestCommit_PersistsPreviewEquivalentStructure(t *testing.T) {
	fp := &fakePersister{}
	o := New(fp)
	doc := Document{Filename: "ops.pdf", Payload: []byte(sampleDoc)}
	opts := Options{Granularity: "h2"}

	preview, err := o.Preview(context.Background(), doc, opts)
	require.NoError(t, err)

	manualID, err := o.Commit(context.Background(), doc, opts, "auditor-1")
	require.NoError(t, err)
	assert.Equal(t, "manual-1", manualID)
	assert.Equal(t, "auditor-1", fp.actorID)

	// Same input, same options: the committed structure must equal the
	// previewed one in titles, content, and ordering.
	require.NotNil(t, fp.persisted)
	assert.Equal(t, preview.Structure.Title, fp.persisted.Title)
	require.Equal(t, len(preview.Structure.Sections), len(fp.persisted.Sections))
	for i, sec := range preview.Structure.Sections {
		got := fp.persisted.Sections[i]
		assert.Equal(t, sec.Title, got.Title)
		require.Equal(t, len(sec.Policies), len(got.Policies))
		for j, pol := range sec.Policies {
			assert.Equal(t, pol.Title, got.Policies[j].Title)
			assert.Equal(t, pol.ContentHTML, got.Policies[j].ContentHTML)
		}
	}
}

func TestCommit_WrapsStoreFailure(t *testing.T) {
	fp := &fakePersister{err: assert.AnError}
	o := New(fp)

	_, err := o.Commit(context.Background(), Document{Filename: "ops.pdf", Payload: []byte(sampleDoc)}, Options{}, "auditor-1")
	require.ErrorIs(t, err, ErrPersistence)
}

func TestCommit_ValidationFailsBeforeAnyWork(t *testing.T) {
	fp := &fakePersister{}
	o := New(fp)

	_, err := o.Commit(context.Background(), Document{Filename: "ops.exe", Payload: []byte("x")}, Options{}, "auditor-1")
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Nil(t, fp.persisted)
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Flight Ops Manual", TitleFromFilename("flight-ops-manual.pdf"))
	assert.Equal(t, "Ground Handling", TitleFromFilename("/tmp/uploads/ground_handling.docx"))
	assert.Equal(t, "Ops Manual", TitleFromFilename("ops_manual_part2.docx"))
	assert.Equal(t, "Imported Manual", TitleFromFilename(".pdf"))
}
