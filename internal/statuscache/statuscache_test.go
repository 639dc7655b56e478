package statuscache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

func TestEvaluate_NoPriorStatus_Revalidates(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "data.txt", MD5: "abc"}
	snap := NewSnapshot(nil, nil)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.True(t, dec.Revalidate)
}

func TestEvaluate_UnchangedValidated_SkipsRevalidation(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "data.txt", MD5: "abc"}
	snap := NewSnapshot([]StatusRow{
		{ID: "syn1", MD5: "abc", Name: "data.txt", Status: Validated},
	}, nil)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.False(t, dec.Revalidate)
	assert.Equal(t, Validated, dec.Cached[0].Status.Status)
}

func TestEvaluate_MD5Changed_Revalidates(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "data.txt", MD5: "new-md5"}
	snap := NewSnapshot([]StatusRow{
		{ID: "syn1", MD5: "old-md5", Name: "data.txt", Status: Validated},
	}, nil)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.True(t, dec.Revalidate)
}

func TestEvaluate_NameChanged_Revalidates(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "renamed.txt", MD5: "abc"}
	snap := NewSnapshot([]StatusRow{
		{ID: "syn1", MD5: "abc", Name: "data.txt", Status: Validated},
	}, nil)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.True(t, dec.Revalidate)
}

func TestEvaluate_InvalidWithoutErrorRow_Revalidates(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "data.txt", MD5: "abc"}
	snap := NewSnapshot([]StatusRow{
		{ID: "syn1", MD5: "abc", Name: "data.txt", Status: Invalid},
	}, nil)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.True(t, dec.Revalidate)
}

func TestEvaluate_InvalidWithErrorRow_SkipsRevalidation(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "data.txt", MD5: "abc"}
	snap := NewSnapshot(
		[]StatusRow{{ID: "syn1", MD5: "abc", Name: "data.txt", Status: Invalid}},
		[]ErrorRow{{ID: "syn1", Errors: "some validation error"}},
	)

	dec, err := Evaluate([]platform.Entity{entity}, snap)
	require.NoError(t, err)
	assert.False(t, dec.Revalidate)
	assert.Equal(t, "some validation error", dec.Cached[0].Error.Errors)
}

func TestEvaluate_ORAcrossEntities(t *testing.T) {
	unchanged := platform.Entity{ID: "syn1", Name: "patient.txt", MD5: "abc"}
	changed := platform.Entity{ID: "syn2", Name: "sample.txt", MD5: "new"}
	snap := NewSnapshot([]StatusRow{
		{ID: "syn1", MD5: "abc", Name: "patient.txt", Status: Validated},
		{ID: "syn2", MD5: "old", Name: "sample.txt", Status: Validated},
	}, nil)

	dec, err := Evaluate([]platform.Entity{unchanged, changed}, snap)
	require.NoError(t, err)
	assert.True(t, dec.Revalidate, "one changed entity in the unit forces revalidation of the whole unit")
}

func TestEvaluate_TooManyEntities(t *testing.T) {
	entities := []platform.Entity{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	_, err := Evaluate(entities, NewSnapshot(nil, nil))
	require.Error(t, err)
}
