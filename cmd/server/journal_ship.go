package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"rpflavor/internal/persistence/r2s3"
)

// openJournalShipper returns nil when no R2 endpoint is configured.
func openJournalShipper(e serverEnv, logger *log.Logger) (*r2s3.Shipper, error) {
	if strings.TrimSpace(e.R2Endpoint) == "" {
		return nil, nil
	}
	client, err := r2s3.New(r2s3.Credentials{
		Endpoint:        e.R2Endpoint,
		Bucket:          e.R2Bucket,
		AccessKeyID:     e.R2AccessKeyID,
		SecretAccessKey: e.R2SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	// Keys are relative to the data dir, so they already carry realms/<id>/.
	logger.Printf("journal shipper enabled bucket=%s prefix=%q", e.R2Bucket, e.R2Prefix)
	return r2s3.NewShipper(client, e.DataDir, e.R2Prefix, e.R2Queue, logger), nil
}

func writeShipperMetrics(w io.Writer, realm string, s *r2s3.Shipper) {
	if s == nil {
		return
	}
	st := s.Stats()
	fmt.Fprintf(w, "# HELP rp_r2_queue_depth Closed journal files waiting for upload.\n")
	fmt.Fprintf(w, "# TYPE rp_r2_queue_depth gauge\n")
	fmt.Fprintf(w, "rp_r2_queue_depth{realm=%q} %d\n", realm, st.QueueDepth)
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s{realm=%q} %d\n", name, realm, v)
	}
	counter("rp_r2_shipped_total", "Journal files uploaded.", st.ShippedTotal)
	counter("rp_r2_failed_total", "Journal files that failed every upload attempt.", st.FailedTotal)
	counter("rp_r2_dropped_total", "Journal files skipped on a full upload queue.", st.DroppedTotal)
}
