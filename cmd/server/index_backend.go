package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"rpflavor/internal/persistence/indexdb"
	"rpflavor/internal/sim/runtime"
)

type runtimeIndex interface {
	runtime.DecisionLogger
	runtime.ReloadLogger
	Close() error
	UpsertConfig(name, digest string, v any) error
}

func openRuntimeIndex(e serverEnv, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(e.IndexBackend))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(e.DataDir, "realms", e.RealmID, "index", "roleplay.sqlite")
		return indexdb.OpenSQLite(dbPath)
	case "d1":
		endpoint := strings.TrimSpace(e.D1IngestURL)
		if endpoint == "" {
			return nil, fmt.Errorf("RP_INDEX_BACKEND=d1 but RP_INDEX_D1_INGEST_URL is empty")
		}
		idx, err := indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(e.D1Token),
			RealmID:       e.RealmID,
			BatchSize:     e.D1BatchSize,
			FlushInterval: time.Duration(e.D1FlushMs) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported RP_INDEX_BACKEND: %s", backend)
	}
}

type multiDecisionLogger struct {
	a runtime.DecisionLogger
	b runtime.DecisionLogger
}

func (m multiDecisionLogger) WriteDecision(r runtime.DecisionRecord) error {
	if m.a != nil {
		_ = m.a.WriteDecision(r)
	}
	if m.b != nil {
		_ = m.b.WriteDecision(r)
	}
	return nil
}

type multiReloadLogger struct {
	a runtime.ReloadLogger
	b runtime.ReloadLogger
}

func (m multiReloadLogger) WriteReload(r runtime.ReloadRecord) error {
	if m.a != nil {
		_ = m.a.WriteReload(r)
	}
	if m.b != nil {
		_ = m.b.WriteReload(r)
	}
	return nil
}
