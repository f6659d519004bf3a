package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-reconciler/internal/model"
)

func analysisWith(fields map[string]string) model.AnalysisResult {
	return model.AnalysisResult{Fields: fields}
}

func TestUpdateRowWritesOnlyConfiguredFields(t *testing.T) {
	s, st := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "keep me", "keep me too"},
	)

	err := s.UpdateRow(0, analysisWith(map[string]string{
		model.FieldPriceUSD: "  1500 ",
		"discount_code":     "SECRET",
	}), "")
	require.NoError(t, err)

	assert.Equal(t, "1500", s.Cell(0, "Price USD"), "configured field written trimmed")
	assert.Equal(t, "keep me", s.Cell(0, "Important Info"))
	assert.Equal(t, "keep me too", s.Cell(0, "Comments"))
	assert.Equal(t, "Alice", s.Cell(0, "Name"))

	assert.True(t, s.Modified())
	assert.Equal(t, 1, st.RowUpdates)
	assert.Equal(t, 1, st.FieldUpdates[model.FieldPriceUSD])
	assert.Zero(t, st.FieldUpdates["discount_code"])
}

func TestUpdateRowSkipsResponseAddressForSameIdentity(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "previous@x.com", "", "", "", ""},
	)

	err := s.UpdateRow(0, analysisWith(nil), "  A@X.com ")
	require.NoError(t, err)

	assert.Equal(t, "previous@x.com", s.Cell(0, "Response Email"),
		"a responder who is the addressed contact must not be recorded")
}

func TestUpdateRowRecordsDivergentResponder(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
	)

	err := s.UpdateRow(0, analysisWith(nil), "Manager@Agency.com")
	require.NoError(t, err)

	assert.Equal(t, "Manager@Agency.com", s.Cell(0, "Response Email"),
		"the response address keeps its original casing")
}

func TestUpdateRowOutOfRange(t *testing.T) {
	s, st := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
	)

	require.Error(t, s.UpdateRow(5, analysisWith(nil), ""))
	assert.False(t, s.Modified())
	assert.Zero(t, st.RowUpdates)
}

func TestProcessThreadWritesMatchedRowOnly(t *testing.T) {
	s, st := newLoadedStore(t,
		[]string{"Alice", "A@X.com", "", "", "", "", ""},
		[]string{"Carol", "c@z.com", "", "", "", "", ""},
	)

	thread := model.NewThread("offer", &model.Message{From: "a@x.com", Subject: "Offer"})
	thread.Append(&model.Message{From: "b@y.com", Subject: "Re: Offer"})

	err := s.ProcessThread("a@x.com", thread, analysisWith(map[string]string{
		model.FieldPriceUSD: "1500",
	}))
	require.NoError(t, err)

	assert.Equal(t, "1500", s.Cell(0, "Price USD"))
	assert.Equal(t, "", s.Cell(1, "Price USD"), "unmatched row must stay untouched")
	assert.Equal(t, "b@y.com", s.Cell(0, "Response Email"),
		"first sender diverging from the matched address is the responder")

	assert.Equal(t, 1, st.RowsMatched)
	assert.Equal(t, 1, st.RowUpdates)
	assert.Zero(t, st.ErrorTotal())
}

func TestProcessThreadPicksFirstDivergentSender(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]string{"Bob", "b@x.com", "", "", "", "", ""},
	)

	thread := model.NewThread("offer", &model.Message{From: "b@x.com"})
	thread.Append(&model.Message{From: "colleague@x.com"})
	thread.Append(&model.Message{From: "late@x.com"})

	require.NoError(t, s.ProcessThread("b@x.com", thread, analysisWith(nil)))

	assert.Equal(t, "colleague@x.com", s.Cell(0, "Response Email"),
		"policy is first divergent sender, not most recent")
}

func TestProcessThreadBroadcastsToEveryMatch(t *testing.T) {
	s, st := newLoadedStore(t,
		[]string{"Alice", "shared@x.com", "", "", "", "", ""},
		[]string{"Alias", "other@x.com", "shared@x.com", "", "", "", ""},
	)

	thread := model.NewThread("offer", &model.Message{From: "shared@x.com"})

	err := s.ProcessThread("shared@x.com", thread, analysisWith(map[string]string{
		model.FieldComments: "applies to both",
	}))
	require.NoError(t, err)

	assert.Equal(t, "applies to both", s.Cell(0, "Comments"))
	assert.Equal(t, "applies to both", s.Cell(1, "Comments"))
	assert.Equal(t, 2, st.RowsMatched)
	assert.Equal(t, 2, st.RowUpdates)
}

func TestProcessThreadZeroMatchesIsNotAnError(t *testing.T) {
	s, st := newLoadedStore(t,
		[]string{"Alice", "a@x.com", "", "", "", "", ""},
	)

	thread := model.NewThread("offer", &model.Message{From: "stranger@y.com"})

	err := s.ProcessThread("stranger@y.com", thread, analysisWith(map[string]string{
		model.FieldPriceUSD: "999",
	}))
	require.NoError(t, err)

	assert.Equal(t, "", s.Cell(0, "Price USD"))
	assert.False(t, s.Modified())
	assert.Zero(t, st.ErrorTotal(), "zero matches is a warning, not an error")
	assert.Zero(t, st.RowsMatched)
}
