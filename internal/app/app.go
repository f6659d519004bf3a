// Package app wires the pipeline together: mailbox threads in,
// extracted fields matched and written back to the table, run history
// out to the ledger.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/email"
	"github.com/nhle/mail-reconciler/internal/ledger"
	"github.com/nhle/mail-reconciler/internal/lmstudio"
	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/stats"
	"github.com/nhle/mail-reconciler/internal/table"
)

// recordTimeout bounds the final ledger write. It runs on a fresh
// context because the run context may already be canceled.
const recordTimeout = 5 * time.Second

// mailbox is the slice of the mail client the pipeline depends on. The
// reply finder's searches ride on the same session.
type mailbox interface {
	Connect(ctx context.Context) error
	Close() error
	FetchThreads(ctx context.Context) ([]*model.Thread, error)
	MarkSeen(ctx context.Context, uid imap.UID) error
	SearchHeader(ctx context.Context, key, value string) ([]imap.UID, error)
	SearchFromSinceSubject(ctx context.Context, from string, since time.Time, subject string) ([]imap.UID, error)
	FetchMessage(ctx context.Context, uid imap.UID) (*model.Message, error)
}

// analyzer turns one message body into structured fields.
type analyzer interface {
	AnalyzeEmail(ctx context.Context, body string, threadCtx map[string]string) model.AnalysisResult
}

// App owns every pipeline component for one process.
type App struct {
	log   zerolog.Logger
	stats *stats.Collector

	table    *table.Store
	mail     mailbox
	analyzer analyzer
	ledger   *ledger.Ledger
}

// New builds the pipeline from config. The extraction client's server
// and model pins are checked here and the ledger, when configured, is
// opened, so a misconfigured process never reaches the mailbox.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	st := stats.New()

	extractor, err := lmstudio.New(cfg.LMStudio, log, st)
	if err != nil {
		return nil, err
	}

	a := &App{
		log:      log.With().Str("component", "app").Logger(),
		stats:    st,
		table:    table.NewStore(cfg.Table, log, st),
		mail:     email.NewClient(cfg.IMAP, log, st),
		analyzer: extractor,
	}

	if cfg.Ledger.Path != "" {
		led, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("opening ledger %s: %w", cfg.Ledger.Path, err)
		}
		a.ledger = led
	}

	return a, nil
}

// Close releases resources held across runs.
func (a *App) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

// Run executes one reconciliation pass: load the table, fetch unread
// threads, analyze and reconcile each, then flush. The flush (saving
// the table, pruning backups, logging the summary, recording the run)
// happens on every exit path, so an interrupt keeps whatever updates
// were already applied in memory.
func (a *App) Run(ctx context.Context) (err error) {
	a.log.Info().Msg("starting reconciliation run")

	defer func() { a.finish(err) }()

	if cerr := a.table.CheckStructure(); cerr != nil {
		a.log.Warn().Err(cerr).Msg("table structure check failed")
	}
	if err = a.table.Load(); err != nil {
		return err
	}

	if err = a.mail.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := a.mail.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("closing mailbox session failed")
		}
	}()

	threads, ferr := a.mail.FetchThreads(ctx)
	if ferr != nil {
		err = ferr
		return err
	}

	for _, thread := range threads {
		if err = ctx.Err(); err != nil {
			return err
		}
		a.processThread(ctx, thread)
	}
	return nil
}

// processThread analyzes each unprocessed message and applies the
// result to the rows the thread's participants match. A failed analysis
// skips just that message; a table or flag failure abandons the rest of
// the thread so the messages stay unread for the next run.
func (a *App) processThread(ctx context.Context, thread *model.Thread) {
	log := a.log.With().Str("subject", thread.Subject).Logger()

	for _, msg := range thread.Messages {
		if msg.Processed {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		analysis := a.analyzer.AnalyzeEmail(ctx, msg.Body, thread.Context)
		if analysis.Failed() {
			log.Error().Str("error", analysis.Err).Uint32("uid", msg.UID).Msg("analysis failed, message skipped")
			continue
		}

		if err := a.table.ProcessThread(msg.From, thread, analysis); err != nil {
			a.stats.AddError(stats.CategoryProcessing)
			log.Error().Err(err).Uint32("uid", msg.UID).Msg("reconciliation failed, thread abandoned")
			return
		}

		if err := a.mail.MarkSeen(ctx, imap.UID(msg.UID)); err != nil {
			a.stats.AddError(stats.CategoryProcessing)
			log.Warn().Err(err).Uint32("uid", msg.UID).Msg("flag update failed, thread abandoned")
			return
		}

		msg.Processed = true
		a.stats.AddEmailProcessed()
		a.stats.Record("message", fmt.Sprintf("uid %d from %s", msg.UID, msg.From))
	}
}

// finish flushes the run: save the table when dirty, prune expired
// backups, log the summary, and record the run in the ledger.
func (a *App) finish(runErr error) {
	if err := a.table.Save(); err != nil {
		a.stats.AddError(stats.CategoryTable)
		a.log.Error().Err(err).Msg("saving table failed, in-memory updates are lost")
	} else {
		a.table.CleanupBackups()
	}

	a.stats.LogSummary(a.log)
	a.recordRun(runErr)
}

// recordRun writes the run summary and its event history to the ledger.
func (a *App) recordRun(runErr error) {
	if a.ledger == nil {
		return
	}

	run := ledger.Run{
		StartedAt:       a.stats.Started,
		FinishedAt:      time.Now(),
		Outcome:         ledger.OutcomeCompleted,
		EmailsProcessed: a.stats.EmailsProcessed,
		RepliesFound:    a.stats.RepliesFound,
		RowsMatched:     a.stats.RowsMatched,
		RowUpdates:      a.stats.RowUpdates,
		ExtractionCalls: a.stats.ExtractionCalls,
		Errors:          a.stats.ErrorTotal(),
	}
	switch {
	case errors.Is(runErr, context.Canceled):
		run.Outcome = ledger.OutcomeInterrupted
		run.Detail = runErr.Error()
	case runErr != nil:
		run.Outcome = ledger.OutcomeFailed
		run.Detail = runErr.Error()
	}

	events := make([]ledger.Event, 0, len(a.stats.History))
	for _, e := range a.stats.History {
		events = append(events, ledger.Event{At: e.At, Kind: e.Kind, Detail: e.Detail})
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	id, err := a.ledger.RecordRun(ctx, run, events)
	if err != nil {
		a.log.Error().Err(err).Msg("recording run in ledger failed")
		return
	}
	a.log.Info().Str("run_id", id).Str("outcome", run.Outcome).Msg("run recorded")
}

// FindReply connects to the mailbox and looks up the reply to a single
// previously sent item.
func (a *App) FindReply(ctx context.Context, item model.SentItem) (*model.Message, error) {
	if err := a.mail.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := a.mail.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("closing mailbox session failed")
		}
	}()

	finder := email.NewReplyFinder(a.mail, a.log, a.stats)
	return finder.FindReply(ctx, item), nil
}

// Check validates the configuration against the live table file: the
// structure report runs and the configured columns must resolve.
func (a *App) Check() error {
	if err := a.table.CheckStructure(); err != nil {
		return err
	}
	if err := a.table.Load(); err != nil {
		return err
	}
	a.log.Info().Int("rows", a.table.RowCount()).Msg("table validated")
	return nil
}
