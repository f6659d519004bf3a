package table

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/stats"
)

func TestFindRelatedRowsCaseInsensitive(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
		[]string{"Bob", "B@X.com", "", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("b@x.com", nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, model.MatchCandidate{Row: 1, Address: "b@x.com"}, got[0])
}

func TestFindRelatedRowsMatchesRelatedSet(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
		[]string{"Bob", "b@x.com", "", "", "", "", ""},
		[]string{"Carol", "c@x.com", "", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("nobody@y.com", []string{" C@x.com ", "b@x.com"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, model.MatchCandidate{Row: 1, Address: "b@x.com"}, got[0])
	assert.Equal(t, model.MatchCandidate{Row: 2, Address: "c@x.com"}, got[1])
}

func TestFindRelatedRowsChecksResponseColumn(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "contact@x.com", "Assistant@x.com", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("assistant@x.com", nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, model.MatchCandidate{Row: 0, Address: "assistant@x.com"}, got[0])
}

func TestFindRelatedRowsPrimaryMatchShadowsResponse(t *testing.T) {
	// Both cells match; the row is reported once, on its primary address.
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "a@x.com", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("a@x.com", nil)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, model.MatchCandidate{Row: 0, Address: "a@x.com"}, got[0])
}

func TestFindRelatedRowsBlankCellsNeverMatch(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Empty", "", "", "", "", "", ""},
		[]string{"Spaces", "   ", "", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("", []string{""})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRelatedRowsNoMatches(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
	)

	got, err := s.FindRelatedRows("stranger@y.com", []string{"other@z.com"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRelatedRowsNotLoaded(t *testing.T) {
	s := NewStore(testTableConfig("unused.csv"), zerolog.Nop(), stats.New())
	_, err := s.FindRelatedRows("a@x.com", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotLoaded))
}
