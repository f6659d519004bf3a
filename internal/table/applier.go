package table

import (
	"fmt"
	"strings"

	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/normalize"
	"github.com/nhle/mail-reconciler/internal/stats"
)

// UpdateRow writes an analysis result into one row. Only fields mapped
// in the configured column map are written, trimmed; everything else in
// the result is ignored. A non-empty responseAddr is recorded in the
// response column, original casing kept, but only when it names a
// different identity than the row's primary address. A successful
// update marks the store dirty.
func (s *Store) UpdateRow(idx int, result model.AnalysisResult, responseAddr string) error {
	if s.rows == nil {
		return ErrNotLoaded
	}
	if idx < 0 || idx >= len(s.rows) {
		return fmt.Errorf("row %d out of range, table has %d rows", idx, len(s.rows))
	}

	row := s.rows[idx]
	for field, value := range result.Fields {
		column, ok := s.columns[field]
		if !ok {
			continue
		}
		row[column] = strings.TrimSpace(value)
		s.stats.AddFieldUpdate(field)
	}

	if responseAddr != "" {
		if normalize.Email(responseAddr) != normalize.Email(row[s.mailColumn]) {
			row[s.responseColumn] = responseAddr
		}
	}

	s.modified = true
	s.stats.AddRowUpdate()
	return nil
}

// ProcessThread reconciles one thread against the table: the thread's
// participants are matched to rows and every matched row receives the
// same thread-level analysis result. The response address recorded per
// row is the sender of the first message in the thread whose normalized
// address differs from the row's matched address. Zero matches is a
// normal outcome; a failing row is logged and counted and the remaining
// rows still get their update.
func (s *Store) ProcessThread(originAddr string, thread *model.Thread, result model.AnalysisResult) error {
	candidates, err := s.FindRelatedRows(originAddr, thread.Participants())
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		s.log.Warn().
			Str("from", originAddr).
			Str("subject", thread.Subject).
			Msg("no matching rows for thread")
		return nil
	}

	s.stats.AddRowsMatched(len(candidates))

	for _, candidate := range candidates {
		responseAddr := ""
		for _, msg := range thread.Messages {
			if normalize.Email(msg.From) != candidate.Address {
				responseAddr = msg.From
				break
			}
		}

		if err := s.UpdateRow(candidate.Row, result, responseAddr); err != nil {
			s.stats.AddError(stats.CategoryTable)
			s.log.Error().Err(err).Int("row", candidate.Row).Msg("row update failed")
			continue
		}
		s.log.Debug().
			Int("row", candidate.Row).
			Str("matched", candidate.Address).
			Str("response", responseAddr).
			Msg("row updated")
	}
	return nil
}
