package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeParts_OrdersByPartToken(t *testing.T) {
	parts := []Part{
		{Filename: "ops_part3.pdf", Payload: []byte("3.0 Emergencies\n3.1 Fire\nEvacuate.")},
		{Filename: "ops_part1.pdf", Payload: []byte("1.0 General\n1.1 Purpose\nScope statement.")},
		{Filename: "ops_part2.pdf", Payload: []byte("2.0 Operations\n2.1 Dispatch\nDispatch body.")},
	}

	title, text, err := MergeParts(parts, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Ops", title)

	// Decoded texts concatenate in part order.
	idx1 := strings.Index(text, "1.0 General")
	idx2 := strings.Index(text, "2.0 Operations")
	idx3 := strings.Index(text, "3.0 Emergencies")
	require.True(t, idx1 >= 0 && idx2 >= 0 && idx3 >= 0)
	assert.Less(t, idx1, idx2)
	assert.Less(t, idx2, idx3)
}

func TestMergeParts_RejectsUnsupportedPart(t *testing.T) {
	parts := []Part{
		{Filename: "ops_part1.pdf", Payload: []byte("1.0 General")},
		{Filename: "ops_part2.csv", Payload: []byte("a,b")},
	}
	_, _, err := MergeParts(parts, Options{})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestMergeParts_EmptySetFails(t *testing.T) {
	_, _, err := MergeParts(nil, Options{})
	require.ErrorIs(t, err, ErrDecodeFailure)
}

func TestCommitMerged_SingleManualFromAllParts(t *testing.T) {
	fp := &fakePersister{}
	o := New(fp)

	parts := []Part{
		{Filename: "manual_part2.pdf", Payload: []byte("2.0 Operations\n2.1 Dispatch\nDispatch body.")},
		{Filename: "manual_part1.pdf", Payload: []byte("1.0 General\n1.1 Purpose\nScope statement.")},
	}

	id, err := o.CommitMerged(context.Background(), parts, Options{ManualTitle: "Merged Manual"}, "auditor-1")
	require.NoError(t, err)
	assert.Equal(t, "manual-1", id)

	require.NotNil(t, fp.persisted)
	assert.Equal(t, "Merged Manual", fp.persisted.Title)
	require.Len(t, fp.persisted.Sections, 2)
	assert.Equal(t, "General", fp.persisted.Sections[0].Title)
	assert.Equal(t, "Operations", fp.persisted.Sections[1].Title)
}
