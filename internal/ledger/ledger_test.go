package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nhle/mail-reconciler/internal/ledger"
	"github.com/nhle/mail-reconciler/tests/testutil"
)

func TestRecordRunRoundTrip(t *testing.T) {
	l := testutil.NewTestLedger(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	run := ledger.Run{
		StartedAt:       started,
		FinishedAt:      started.Add(42 * time.Second),
		Outcome:         ledger.OutcomeCompleted,
		EmailsProcessed: 5,
		RepliesFound:    2,
		RowsMatched:     4,
		RowUpdates:      4,
		ExtractionCalls: 5,
		Errors:          1,
	}
	events := []ledger.Event{
		{At: started.Add(time.Second), Kind: "message", Detail: "uid 7 from a@x.com"},
		{At: started.Add(2 * time.Second), Kind: "message", Detail: "uid 9 from b@y.com"},
	}

	id, err := l.RecordRun(ctx, run, events)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id == "" {
		t.Fatal("RecordRun returned empty ID")
	}

	runs, err := l.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	run.ID = id
	if diff := cmp.Diff(run, runs[0]); diff != "" {
		t.Errorf("stored run mismatch (-want +got):\n%s", diff)
	}

	got, err := l.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	ignore := cmpopts.IgnoreFields(ledger.Event{}, "ID", "RunID")
	if diff := cmp.Diff(events, got, ignore); diff != "" {
		t.Errorf("stored events mismatch (-want +got):\n%s", diff)
	}
	for _, e := range got {
		if e.RunID != id {
			t.Errorf("event %d has run_id %q, want %q", e.ID, e.RunID, id)
		}
	}
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	l := testutil.NewTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for day := 1; day <= 3; day++ {
		_, err := l.RecordRun(ctx, ledger.Run{
			StartedAt:  base.AddDate(0, 0, day),
			FinishedAt: base.AddDate(0, 0, day).Add(time.Minute),
			Outcome:    ledger.OutcomeCompleted,
		}, nil)
		if err != nil {
			t.Fatalf("RecordRun day %d: %v", day, err)
		}
	}

	runs, err := l.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestRecordRunKeepsProvidedID(t *testing.T) {
	l := testutil.NewTestLedger(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	id, err := l.RecordRun(ctx, ledger.Run{
		ID:         "run-fixed",
		StartedAt:  now,
		FinishedAt: now,
		Outcome:    ledger.OutcomeInterrupted,
		Detail:     "context canceled",
	}, nil)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id != "run-fixed" {
		t.Errorf("RecordRun ID = %q, want %q", id, "run-fixed")
	}
}

func TestRecordRunRejectsUnknownOutcome(t *testing.T) {
	l := testutil.NewTestLedger(t)

	now := time.Now().UTC()
	_, err := l.RecordRun(context.Background(), ledger.Run{
		StartedAt:  now,
		FinishedAt: now,
		Outcome:    "exploded",
	}, nil)
	if err == nil {
		t.Fatal("RecordRun accepted an outcome outside the schema's set")
	}
}

func TestEventsEmptyRun(t *testing.T) {
	l := testutil.NewTestLedger(t)

	events, err := l.Events(context.Background(), "missing-run")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events for unknown run, want 0", len(events))
	}
}
