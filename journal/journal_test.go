package journal

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"gracefulexit/core"
	"gracefulexit/shutdown"
)

func openTestJournal(t *testing.T, path, runID string) *Journal {
	t.Helper()
	j, err := Open(path, runID, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordsRunInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openTestJournal(t, path, "run-1")

	j.Record(shutdown.BeforeShutdown{})
	j.Record(shutdown.Error{Callback: "db", Err: errors.New("close postgres://app:hunter2@db/app: broken pipe")})
	j.Record(shutdown.BeforeExit{})

	// The terminal event closed the journal; reopen to read.
	reader := openTestJournal(t, path, "")
	entries, err := reader.ByRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ByRun() error = %v", err)
	}

	want := []string{"beforeShutdown", "error", "beforeExit"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, kind := range want {
		if entries[i].Kind != kind {
			t.Errorf("entry %d kind = %q, want %q", i, entries[i].Kind, kind)
		}
		if entries[i].RunID != "run-1" {
			t.Errorf("entry %d run_id = %q", i, entries[i].RunID)
		}
	}

	failed := entries[1]
	if failed.Callback != "db" {
		t.Errorf("callback = %q, want db", failed.Callback)
	}
	if strings.Contains(failed.Message, "hunter2") {
		t.Errorf("error message not redacted: %q", failed.Message)
	}
	if entries[0].Callback != "" {
		t.Errorf("non-error entry callback = %q, want empty", entries[0].Callback)
	}
}

func TestJournal_TerminalEventClosesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openTestJournal(t, path, "run-1")

	j.Record(shutdown.Timeout{})

	if _, err := j.Recent(context.Background(), 10); !errors.Is(err, ErrClosed) {
		t.Errorf("Recent() after terminal event error = %v, want ErrClosed", err)
	}
	if err := j.Append(context.Background(), Entry{Kind: "error"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after terminal event error = %v, want ErrClosed", err)
	}

	// Events after the terminal one are ignored.
	j.Record(shutdown.Error{Callback: "late", Err: errors.New("late")})

	reader := openTestJournal(t, path, "")
	entries, err := reader.ByRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ByRun() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "timeout" {
		t.Errorf("entries = %+v, want a single timeout", entries)
	}
}

func TestJournal_ForcedTimeoutMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openTestJournal(t, path, "run-forced")

	j.Record(shutdown.Timeout{Forced: true})

	reader := openTestJournal(t, path, "")
	entries, err := reader.ByRun(context.Background(), "run-forced")
	if err != nil {
		t.Fatalf("ByRun() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want one", entries)
	}
	if entries[0].Kind != "timeout" || entries[0].Message != "forced exit after repeated triggers" {
		t.Errorf("entry = %+v, want forced timeout", entries[0])
	}
}

func TestJournal_RecentAndRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	j := openTestJournal(t, path, "")
	rows := []Entry{
		{RunID: "a", Kind: "beforeShutdown", CreatedAt: base},
		{RunID: "a", Kind: "error", Callback: "cache", Message: "boom", CreatedAt: base.Add(time.Second)},
		{RunID: "a", Kind: "beforeExit", CreatedAt: base.Add(2 * time.Second)},
		{RunID: "b", Kind: "beforeShutdown", CreatedAt: base.Add(time.Minute)},
		{RunID: "b", Kind: "timeout", CreatedAt: base.Add(time.Minute + 30*time.Second)},
		{RunID: "c", Kind: "beforeShutdown", CreatedAt: base.Add(time.Hour)},
	}
	for _, row := range rows {
		if err := j.Append(ctx, row); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	recent, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].RunID != "c" || recent[1].Kind != "timeout" {
		t.Errorf("Recent() = %+v", recent)
	}
	if !recent[0].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("created_at = %v, want %v", recent[0].CreatedAt, base.Add(time.Hour))
	}

	runs, err := j.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	want := []RunSummary{
		{RunID: "c", Outcome: "", Errors: 0},
		{RunID: "b", Outcome: "timeout", Errors: 0},
		{RunID: "a", Outcome: "beforeExit", Errors: 1},
	}
	for i, w := range want {
		got := runs[i]
		if got.RunID != w.RunID || got.Outcome != w.Outcome || got.Errors != w.Errors {
			t.Errorf("run %d = %+v, want %+v", i, got, w)
		}
	}
	if got := runs[2].EndedAt.Sub(runs[2].StartedAt); got != 2*time.Second {
		t.Errorf("run a duration = %v, want 2s", got)
	}
}

func TestJournal_AppendFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openTestJournal(t, path, "run-x")
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	if err := j.Append(context.Background(), Entry{Kind: "beforeShutdown"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := j.ByRun(context.Background(), "run-x")
	if err != nil {
		t.Fatalf("ByRun() error = %v", err)
	}
	if len(entries) != 1 || !entries[0].CreatedAt.Equal(fixed) {
		t.Errorf("entries = %+v", entries)
	}
}

func TestJournal_OrchestratorListener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	logger := zaptest.NewLogger(t)

	exited := make(chan int, 1)
	o, err := shutdown.New(logger,
		shutdown.WithTriggerSource(shutdown.NewManualSource(shutdown.TriggerSIGTERM)),
		shutdown.WithTriggers(shutdown.TriggerSIGTERM),
		shutdown.WithExitDelay(time.Millisecond),
		shutdown.WithTerminate(func(code int) { exited <- code }),
	)
	if err != nil {
		t.Fatalf("shutdown.New() error = %v", err)
	}

	j := openTestJournal(t, path, o.RunID())
	o.OnAny(j.Record)
	o.AddCallback(core.Sync(func() error { return errors.New("flush failed") }))

	o.Shutdown()
	if code := <-exited; code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	reader := openTestJournal(t, path, "")
	entries, err := reader.ByRun(context.Background(), o.RunID())
	if err != nil {
		t.Fatalf("ByRun() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != "error" || entries[1].Kind != "beforeExit" {
		t.Errorf("entries = %+v, want error then beforeExit", entries)
	}
}
