package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglog/internal/types"
)

func strPtr(s string) *string { return &s }

func TestUpdate_MergesPatch(t *testing.T) {
	all := sample()
	prior := all[1]

	patch := types.RecordPatch{
		Rating:        intPtr(2),
		Comment:       strPtr("second read"),
		ReadingStatus: strPtr("reading"),
	}

	next, updated, err := Update(all, prior.Isbn13, patch)
	require.NoError(t, err)

	assert.Equal(t, 2, *updated.Rating)
	assert.Equal(t, "second read", updated.Comment)
	assert.Equal(t, "reading", updated.ReadingStatus)
	assert.Equal(t, prior.Title, updated.Title)
	assert.Equal(t, prior.Author, updated.Author)
	assert.Equal(t, prior.ReadDate, updated.ReadDate)

	ix := Index(next, prior.Isbn13)
	require.Equal(t, 1, ix)
	assert.Equal(t, updated, next[ix])

	assert.Equal(t, 3, *all[1].Rating, "input collection is left untouched")
	assert.Equal(t, "", all[1].Comment)
}

func TestUpdate_FirstMatchOnly(t *testing.T) {
	all := []types.ReadingRecord{
		{Isbn13: "111", Title: "first"},
		{Isbn13: "111", Title: "second"},
	}

	next, _, err := Update(all, "111", types.RecordPatch{Title: strPtr("changed")})
	require.NoError(t, err)

	assert.Equal(t, "changed", next[0].Title)
	assert.Equal(t, "second", next[1].Title)
}

func TestUpdate_NotFound(t *testing.T) {
	_, _, err := Update(sample(), "0000", types.RecordPatch{Comment: strPtr("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdate_ExactKey(t *testing.T) {
	_, _, err := Update([]types.ReadingRecord{{Isbn13: "978-4"}}, "9784", types.RecordPatch{})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	all := sample()
	key := all[2].Isbn13

	next, deleted := Delete(all, key)
	assert.True(t, deleted)
	assert.Len(t, next, len(all)-1)
	assert.Equal(t, -1, Index(next, key))
	assert.Len(t, all, 5)

	again, deleted := Delete(next, key)
	assert.False(t, deleted)
	assert.Equal(t, next, again)
}
