package query

import (
	"readinglog/internal/types"
)

// Index returns the position of the first record with the exact isbn13, or -1.
func Index(all []types.ReadingRecord, isbn13 string) int {
	for i := range all {
		if all[i].Isbn13 == isbn13 {
			return i
		}
	}
	return -1
}

// Update merges patch into the first record keyed by isbn13 and returns a new collection along with the
// merged record. all is left untouched.
func Update(all []types.ReadingRecord, isbn13 string, patch types.RecordPatch) ([]types.ReadingRecord, types.ReadingRecord, error) {
	ix := Index(all, isbn13)
	if ix < 0 {
		return all, types.ReadingRecord{}, types.NotFound("no record with ISBN %s", isbn13)
	}

	updated := patch.Apply(all[ix])

	ret := make([]types.ReadingRecord, len(all))
	copy(ret, all)
	ret[ix] = updated

	return ret, updated, nil
}

// Delete drops the first record keyed by isbn13. Deleting a missing key is a no-op reporting false.
func Delete(all []types.ReadingRecord, isbn13 string) ([]types.ReadingRecord, bool) {
	ix := Index(all, isbn13)
	if ix < 0 {
		return all, false
	}

	ret := make([]types.ReadingRecord, 0, len(all)-1)
	ret = append(ret, all[:ix]...)
	ret = append(ret, all[ix+1:]...)

	return ret, true
}
