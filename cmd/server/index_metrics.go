package main

import (
	"fmt"
	"net/http"

	"rpflavor/internal/persistence/indexdb"
)

func writeIndexMetrics(rw http.ResponseWriter, realm string, idx runtimeIndex) {
	switch v := idx.(type) {
	case *indexdb.SQLiteIndex:
		s := v.Stats()
		fmt.Fprintf(rw, "# HELP rp_index_queue_depth Index write queue depth.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "rp_index_queue_depth{realm=%q,backend=\"sqlite\"} %d\n", realm, s.QueueDepth)
		fmt.Fprintf(rw, "# HELP rp_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_dropped_total counter\n")
		fmt.Fprintf(rw, "rp_index_dropped_total{realm=%q,backend=\"sqlite\",kind=\"decision\"} %d\n", realm, s.DropDecisionTotal)
		fmt.Fprintf(rw, "rp_index_dropped_total{realm=%q,backend=\"sqlite\",kind=\"reload\"} %d\n", realm, s.DropReloadTotal)
		fmt.Fprintf(rw, "# HELP rp_index_write_errors_total Index transactions that failed.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_write_errors_total counter\n")
		fmt.Fprintf(rw, "rp_index_write_errors_total{realm=%q,backend=\"sqlite\"} %d\n", realm, s.WriteErrorTotal)
	case *indexdb.D1Index:
		s := v.Stats()
		fmt.Fprintf(rw, "# HELP rp_index_queue_depth Index write queue depth.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "rp_index_queue_depth{realm=%q,backend=\"d1\"} %d\n", realm, s.QueueDepth)
		fmt.Fprintf(rw, "# HELP rp_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_dropped_total counter\n")
		fmt.Fprintf(rw, "rp_index_dropped_total{realm=%q,backend=\"d1\"} %d\n", realm, s.QueueDroppedTotal)
		fmt.Fprintf(rw, "# HELP rp_index_flush_fail_total Failed ingest flushes.\n")
		fmt.Fprintf(rw, "# TYPE rp_index_flush_fail_total counter\n")
		fmt.Fprintf(rw, "rp_index_flush_fail_total{realm=%q,backend=\"d1\"} %d\n", realm, s.FlushFailTotal)
	}
}
