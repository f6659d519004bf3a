// Package table is the tabular store the pipeline reconciles against:
// a CSV file whose rows are matched by address and updated with
// extraction results.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/stats"
)

// ErrNotLoaded is returned when a row operation runs before Load.
var ErrNotLoaded = errors.New("table not loaded")

const backupTimeLayout = "20060102_150405"

// Store holds the table in memory between Load and Save. All cells are
// text; blank cells are empty strings. Rows are addressed by their
// zero-based data index.
type Store struct {
	cfg   config.TableConfig
	log   zerolog.Logger
	stats *stats.Collector

	header         []string
	rows           []map[string]string
	columns        map[string]string
	mailColumn     string
	responseColumn string
	modified       bool
}

// NewStore builds a store over the configured file. Nothing is read
// until CheckStructure or Load.
func NewStore(cfg config.TableConfig, log zerolog.Logger, st *stats.Collector) *Store {
	return &Store{
		cfg:   cfg,
		log:   log.With().Str("component", "table").Logger(),
		stats: st,
	}
}

// CheckStructure reads just the header row and logs every column with
// its spreadsheet-style letter, which makes misconfigured column names
// easy to spot.
func (s *Store) CheckStructure() error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("opening table %s: %w", s.cfg.Path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return fmt.Errorf("reading table header: %w", err)
	}

	for i, name := range header {
		s.log.Info().
			Str("column", columnLetter(i)).
			Str("header", name).
			Msg("table column")
	}
	return nil
}

// Load reads the whole file as text and resolves the configured column
// names against the actual header. Configured columns that are missing
// from the file are skipped with a warning; a file matching none of
// them, or missing the address columns, is an error.
func (s *Store) Load() error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("opening table %s: %w", s.cfg.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("reading table %s: %w", s.cfg.Path, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("table %s has no header row", s.cfg.Path)
	}

	header := records[0]
	s.log.Info().Strs("columns", header).Msg("found table columns")

	columns := make(map[string]string, len(s.cfg.Columns))
	for field, configured := range s.cfg.Columns {
		actual, ok := resolveColumn(header, configured)
		if !ok {
			s.log.Warn().Str("column", configured).Msg("configured column not found")
			continue
		}
		columns[field] = actual
	}
	if len(columns) == 0 {
		return fmt.Errorf("no configured columns found in %s", s.cfg.Path)
	}

	mailColumn, ok := resolveColumn(header, s.cfg.MailColumn)
	if !ok {
		return fmt.Errorf("mail column %q not found in %s", s.cfg.MailColumn, s.cfg.Path)
	}
	responseColumn, ok := resolveColumn(header, s.cfg.ResponseMailColumn)
	if !ok {
		return fmt.Errorf("response mail column %q not found in %s", s.cfg.ResponseMailColumn, s.cfg.Path)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	s.header = header
	s.columns = columns
	s.mailColumn = mailColumn
	s.responseColumn = responseColumn
	s.rows = rows
	s.modified = false

	s.log.Info().Int("rows", len(rows)).Str("path", s.cfg.Path).Msg("table loaded")
	return nil
}

// Save writes the table back when it changed, creating a timestamped
// backup first when backups are enabled. Column order and unmapped
// columns are preserved as loaded.
func (s *Store) Save() error {
	if !s.modified {
		return nil
	}
	if s.rows == nil {
		return ErrNotLoaded
	}

	if s.cfg.Backup.Enabled {
		backupPath := fmt.Sprintf("%s.%s.bak", s.cfg.Path, time.Now().Format(backupTimeLayout))
		if err := s.writeCSV(backupPath); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}
		s.log.Info().Str("path", backupPath).Msg("created backup")
	}

	if err := s.writeCSV(s.cfg.Path); err != nil {
		return fmt.Errorf("saving table: %w", err)
	}

	s.modified = false
	s.log.Info().Str("path", s.cfg.Path).Msg("table saved")
	return nil
}

func (s *Store) writeCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		_ = f.Close()
		return err
	}
	record := make([]string, len(s.header))
	for _, row := range s.rows {
		for i, name := range s.header {
			record[i] = row[name]
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// CleanupBackups removes timestamped backups older than the retention
// window. Files whose names do not parse as backups are left alone.
func (s *Store) CleanupBackups() {
	if !s.cfg.Backup.Enabled {
		return
	}

	pattern := s.cfg.Path + ".*.bak"
	backups, err := filepath.Glob(pattern)
	if err != nil {
		s.log.Error().Err(err).Str("pattern", pattern).Msg("listing backups failed")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.Backup.KeepDays)
	for _, backup := range backups {
		parts := strings.Split(backup, ".")
		if len(parts) < 2 {
			continue
		}
		stamp, err := time.ParseInLocation(backupTimeLayout, parts[len(parts)-2], time.Local)
		if err != nil {
			s.log.Warn().Str("path", backup).Msg("unrecognized backup name, skipping")
			continue
		}
		if stamp.Before(cutoff) {
			if err := os.Remove(backup); err != nil {
				s.log.Warn().Err(err).Str("path", backup).Msg("removing old backup failed")
				continue
			}
			s.log.Info().Str("path", backup).Msg("removed old backup")
		}
	}
}

// RowCount returns the number of data rows.
func (s *Store) RowCount() int {
	return len(s.rows)
}

// Cell returns a cell by row index and actual column header, or the
// empty string when either does not exist.
func (s *Store) Cell(row int, column string) string {
	if row < 0 || row >= len(s.rows) {
		return ""
	}
	return s.rows[row][column]
}

// Modified reports whether there are unsaved changes.
func (s *Store) Modified() bool {
	return s.modified
}

// resolveColumn finds the actual header for a configured name, first by
// exact match, then ignoring case and spaces.
func resolveColumn(header []string, configured string) (string, bool) {
	for _, h := range header {
		if h == configured {
			return h, true
		}
	}
	want := foldColumn(configured)
	for _, h := range header {
		if foldColumn(h) == want {
			return h, true
		}
	}
	return "", false
}

func foldColumn(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// columnLetter converts a zero-based index to its spreadsheet column
// label (A, B, ..., Z, AA, AB, ...).
func columnLetter(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}
