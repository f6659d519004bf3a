// Package stats accumulates run counters and a chronological event log
// for the reconciliation pipeline.
package stats

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Error categories used across the pipeline. Each reply-search strategy
// records failures under its own category so a miss in one strategy
// stays attributable even when a later strategy succeeds.
const (
	CategoryIMAP       = "imap"
	CategoryLMStudio   = "lm_studio"
	CategoryTable      = "table"
	CategoryProcessing = "processing"

	CategorySearchMessageID   = "search_message_id"
	CategorySearchReferences  = "search_references"
	CategorySearchSubjectFrom = "search_subject_from"
)

// Event is one timestamped entry in the run history.
type Event struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// Collector accumulates counters for a single run. The pipeline is
// sequential, so the collector does no locking.
type Collector struct {
	Started time.Time

	EmailsProcessed int
	RepliesFound    int
	RowsMatched     int
	RowUpdates      int
	ExtractionCalls int

	// FieldUpdates counts cell writes per extraction field name.
	FieldUpdates map[string]int

	// Errors counts recorded failures per category.
	Errors map[string]int

	// History records processed items in chronological order.
	History []Event
}

// New returns a Collector with its maps ready and the start time set.
func New() *Collector {
	return &Collector{
		Started:      time.Now(),
		FieldUpdates: map[string]int{},
		Errors:       map[string]int{},
		History:      []Event{},
	}
}

// AddEmailProcessed records one fully handled inbound message.
func (c *Collector) AddEmailProcessed() {
	c.EmailsProcessed++
}

// AddReplyFound records one successful reply lookup.
func (c *Collector) AddReplyFound() {
	c.RepliesFound++
}

// AddRowsMatched records how many rows a thread resolved to.
func (c *Collector) AddRowsMatched(n int) {
	c.RowsMatched += n
}

// AddRowUpdate records one row written back to the tabular store.
func (c *Collector) AddRowUpdate() {
	c.RowUpdates++
}

// AddExtractionCall records one call to the extraction client.
func (c *Collector) AddExtractionCall() {
	c.ExtractionCalls++
}

// AddFieldUpdate records a cell write for the named extraction field.
func (c *Collector) AddFieldUpdate(field string) {
	c.FieldUpdates[field]++
}

// AddError records a failure under the given category.
func (c *Collector) AddError(category string) {
	c.Errors[category]++
}

// Record appends a history event stamped with the current time.
func (c *Collector) Record(kind, detail string) {
	c.History = append(c.History, Event{At: time.Now(), Kind: kind, Detail: detail})
}

// Elapsed returns the time since the collector was created.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.Started)
}

// ErrorTotal sums every error category.
func (c *Collector) ErrorTotal() int {
	total := 0
	for _, n := range c.Errors {
		total += n
	}
	return total
}

// LogSummary writes the end-of-run totals through the given logger.
func (c *Collector) LogSummary(log zerolog.Logger) {
	log.Info().
		Dur("elapsed", c.Elapsed()).
		Int("emails_processed", c.EmailsProcessed).
		Int("replies_found", c.RepliesFound).
		Int("rows_matched", c.RowsMatched).
		Int("row_updates", c.RowUpdates).
		Int("extraction_calls", c.ExtractionCalls).
		Int("errors", c.ErrorTotal()).
		Msg("run summary")

	for _, field := range sortedKeys(c.FieldUpdates) {
		log.Info().
			Str("field", field).
			Int("count", c.FieldUpdates[field]).
			Msg("field updates")
	}

	for _, category := range sortedKeys(c.Errors) {
		if c.Errors[category] == 0 {
			continue
		}
		log.Warn().
			Str("category", category).
			Int("count", c.Errors[category]).
			Msg("errors recorded")
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
