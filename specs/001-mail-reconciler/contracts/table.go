// Package contracts/table defines the tabular store contract.
// The table is a CSV file edited by humans between runs: load it whole,
// update in memory, write it back once per run.
//
// Library: encoding/csv (stdlib)
// Layout: header row + one row per contact; configured columns are
//         resolved against the header case- and space-insensitively
package contracts

// Store owns the file; Matcher and Applier operate on the loaded rows.

// Key operations:
//
// CheckStructure:
//   Read the header row only and log each column with its spreadsheet
//   letter (A, B, ..., Z, AA, AB, ...). Diagnostic; a failure is a
//   warning at the start of a run, an error from the check command.
//
// Load:
//   Read the whole file as text (no numeric coercion - prices stay
//   strings). Resolve configured columns against the header; a
//   configured column missing from the file is skipped with a warning,
//   but no resolvable column at all, or a missing mail/response-mail
//   column, is an error. Ragged rows are padded with blanks.
//
// FindRelatedRows (matching):
//   Inputs: the sender address + every thread participant.
//   All comparison happens on normalized addresses (trimmed,
//   lowercased). Per row: check the mail column first; on a hit the
//   response column is not consulted. Blank cells never match.
//   Returns every matching row with the address it matched on.
//   Zero matches is not an error; the thread is logged and skipped.
//
// UpdateRow (applying):
//   Write only fields that resolve to a real column (allow-list);
//   values are trimmed. The responder's address is recorded in the
//   response-mail column in its original casing, and only when it
//   differs (normalized) from the row's matched address.
//   The same thread-level result is applied to every matched row.
//
// Save:
//   No-op unless something changed. When backups are enabled, copy the
//   current file to <path>.<YYYYMMDD_HHMMSS>.bak first, then rewrite
//   in the loaded column order, preserving unmapped columns untouched.
//
// CleanupBackups:
//   Delete .bak siblings older than the retention window. Files whose
//   names do not parse as backup timestamps are left alone.
