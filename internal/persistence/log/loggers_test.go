package log

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/runtime"
)

func TestDecisionJournal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	j := NewDecisionJournal(dir)
	for i := 1; i <= 3; i++ {
		err := j.WriteDecision(runtime.DecisionRecord{
			SessionID:   "s1",
			RequestItem: protocol.RequestItem{Kind: protocol.RequestEmote, NPCID: uint64(i), Cause: "greeting", Emote: "WAVE"},
		})
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(filepath.Join(dir, "decisions"), "decisions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	recs, err := ReadInto[runtime.DecisionRecord](files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 3 || recs[2].NPCID != 3 || recs[0].SessionID != "s1" || recs[1].Emote != "WAVE" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "reloads")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	var closed []string
	w.OnClose(func(p string) { closed = append(closed, filepath.Base(p)) })

	if err := w.Write(runtime.ReloadRecord{Status: "reloaded"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(runtime.ReloadRecord{Status: "disabled"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 2 || closed[0] != "reloads-2026-03-01-10.jsonl.zst" || closed[1] != "reloads-2026-03-01-11.jsonl.zst" {
		t.Fatalf("unexpected closed files %v", closed)
	}

	files, err := ListFiles(dir, "reloads")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two hourly files, got %v", files)
	}
	if filepath.Base(files[0]) != "reloads-2026-03-01-10.jsonl.zst" {
		t.Fatalf("unexpected first file %s", files[0])
	}
	recs, err := ReadInto[runtime.ReloadRecord](files[1])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != "disabled" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

type blockingSink struct {
	mu      sync.Mutex
	gate    chan struct{}
	records []runtime.DecisionRecord
}

func (b *blockingSink) WriteDecision(r runtime.DecisionRecord) error {
	<-b.gate
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()
	return nil
}

func TestAsyncDecisions_DropsWhenFullAndDrainsOnClose(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	a := NewAsyncDecisions(sink, 2)

	for i := 0; i < 10; i++ {
		_ = a.WriteDecision(runtime.DecisionRecord{RequestItem: protocol.RequestItem{NPCID: uint64(i)}})
	}
	// One record may be held by the writer goroutine, two fit in the queue.
	if a.Dropped() < 7 {
		t.Fatalf("expected drops, got %d", a.Dropped())
	}
	close(sink.gate)
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := uint64(len(sink.records)) + a.Dropped(); got != 10 {
		t.Fatalf("written+dropped=%d, want 10", got)
	}
}
