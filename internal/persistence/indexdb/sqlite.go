package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"rpflavor/internal/sim/runtime"
)

// SQLiteIndex is a queryable read model of the decision and reload journals.
// Writes are queued and applied in batches by one goroutine; the journal
// files remain the source of truth when the queue overflows.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDecision atomic.Uint64
	dropReload   atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqDecision reqKind = iota + 1
	reqReload
)

type req struct {
	kind reqKind

	decision runtime.DecisionRecord
	reload   runtime.ReloadRecord
}

type SQLiteStats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropDecisionTotal uint64 `json:"drop_decision_total"`
	DropReloadTotal   uint64 `json:"drop_reload_total"`
	WriteErrorTotal   uint64 `json:"write_error_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Ticks with many NPCs in view can burst; keep the engine loop unblocked.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			at_ms INTEGER NOT NULL,
			npc_id INTEGER NOT NULL,
			cause TEXT NOT NULL,
			kind TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			speech TEXT,
			audience TEXT,
			text TEXT,
			emote TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_npc_at ON decisions(npc_id, at_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_cause ON decisions(cause);`,
		`CREATE TABLE IF NOT EXISTS reloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at TEXT NOT NULL,
			status TEXT NOT NULL,
			pool_digest TEXT,
			categories INTEGER NOT NULL,
			ambient_armed INTEGER NOT NULL,
			ambient_dropped INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteDecision(r runtime.DecisionRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqDecision, decision: r}:
	default:
		s.dropDecision.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteReload(r runtime.ReloadRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqReload, reload: r}:
	default:
		s.dropReload.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() SQLiteStats {
	if s == nil {
		return SQLiteStats{}
	}
	return SQLiteStats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropDecisionTotal: s.dropDecision.Load(),
		DropReloadTotal:   s.dropReload.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// UpsertConfig stores the effective configuration document under name, so
// decisions can be read next to the settings that produced them.
func (s *SQLiteIndex) UpsertConfig(name, digest string, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`, name, digest, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

// CountByCause returns how many indexed decisions each cause produced.
func (s *SQLiteIndex) CountByCause(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cause, COUNT(*) FROM decisions GROUP BY cause`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var cause string
		var n int
		if err := rows.Scan(&cause, &n); err != nil {
			return nil, err
		}
		out[cause] = n
	}
	return out, rows.Err()
}

// RecentReloads returns up to limit reload records, newest first.
func (s *SQLiteIndex) RecentReloads(ctx context.Context, limit int) ([]runtime.ReloadRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM reloads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []runtime.ReloadRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r runtime.ReloadRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDecision, _ := s.db.Prepare(`INSERT INTO decisions(session_id,at_ms,npc_id,cause,kind,target_id,speech,audience,text,emote) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertReload, _ := s.db.Prepare(`INSERT INTO reloads(recorded_at,status,pool_digest,categories,ambient_armed,ambient_dropped,raw_json) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertDecision != nil {
			_ = insertDecision.Close()
		}
		if insertReload != nil {
			_ = insertReload.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeErrors.Add(1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// An idle open tx would pin the only connection, so it is also committed
	// on a timer.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		select {
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqDecision:
			d := r.decision
			if insertDecision == nil {
				continue
			}
			if _, err := tx.Stmt(insertDecision).Exec(
				d.SessionID,
				d.AtMs,
				int64(d.NPCID),
				d.Cause,
				d.Kind,
				int64(d.TargetID),
				d.Speech,
				d.Audience,
				d.Text,
				d.Emote,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqReload:
			rl := r.reload
			if insertReload == nil {
				continue
			}
			raw, _ := json.Marshal(rl)
			if _, err := tx.Stmt(insertReload).Exec(
				rl.RecordedAt,
				rl.Status,
				rl.PoolDigest,
				rl.Categories,
				rl.AmbientArmed,
				rl.AmbientDropped,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++
			// Reloads are rare and operators look for them right away.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}
