package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/runtime"
)

func TestSQLiteIndex_DecisionsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "rp.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for i, cause := range []string{"greeting", "greeting", "ambient", "reaction"} {
		_ = idx.WriteDecision(runtime.DecisionRecord{
			SessionID: "s1",
			RequestItem: protocol.RequestItem{
				Kind: protocol.RequestEmote, NPCID: uint64(i + 1), Cause: cause, AtMs: int64(i * 1000), Emote: "WAVE",
			},
		})
	}
	_ = idx.WriteReload(runtime.ReloadRecord{RecordedAt: "2026-01-01T00:00:00Z", Status: "reloaded", PoolDigest: "aa"})
	_ = idx.WriteReload(runtime.ReloadRecord{RecordedAt: "2026-01-01T00:05:00Z", Status: "failed", Error: "bad yaml"})
	if err := idx.UpsertConfig("tuning", "d1g", map[string]int{"cooldown_ms": 5000}); err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	counts, err := idx.CountByCause(ctx)
	if err != nil {
		t.Fatalf("CountByCause: %v", err)
	}
	if counts["greeting"] != 2 || counts["ambient"] != 1 || counts["reaction"] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	reloads, err := idx.RecentReloads(ctx, 5)
	if err != nil {
		t.Fatalf("RecentReloads: %v", err)
	}
	if len(reloads) != 2 || reloads[0].Status != "failed" || reloads[0].Error != "bad yaml" || reloads[1].PoolDigest != "aa" {
		t.Fatalf("unexpected reloads: %+v", reloads)
	}
}
