package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	persistlog "rpflavor/internal/persistence/log"
	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/runtime"
	"rpflavor/internal/sim/textpool"
	"rpflavor/internal/sim/tuning"
	"rpflavor/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := loadEnv(logger)
	if err != nil {
		logger.Fatalf("env: %v", err)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address")
		realmID    = flag.String("realm", envCfg.RealmID, "realm id (labels index rows and metrics)")
		configDir  = flag.String("configs", envCfg.ConfigDir, "config directory")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the decision index")
		seed       = flag.Int64("seed", 0, "rng seed (0: time based)")
	)
	flag.Parse()
	envCfg.Addr, envCfg.RealmID, envCfg.ConfigDir, envCfg.DataDir = *addr, *realmID, *configDir, *dataDir

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	bundle, notes, err := tuning.LoadBundle(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	for _, n := range notes {
		logger.Printf("tuning: %s", n)
	}
	logger.Printf("pools digest=%s locales=%v", bundle.Pools.Digest(), bundle.Pools.Locales())

	realmDir := filepath.Join(*dataDir, "realms", *realmID)
	_ = os.MkdirAll(realmDir, 0o755)

	// Optional read-model index; the journal files stay authoritative.
	idx, err := openRuntimeIndex(envCfg, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		upsertEffectiveConfig(idx, bundle, logger)
	}

	// Closed hourly journal files go offsite when R2 is configured. The
	// shipper closes after the journals so their final files are queued.
	shipper, err := openJournalShipper(envCfg, logger)
	if err != nil {
		logger.Fatalf("journal shipper: %v", err)
	}
	defer shipper.Close()

	journal := persistlog.NewDecisionJournal(realmDir)
	asyncJournal := persistlog.NewAsyncDecisions(journal, envCfg.JournalQueue)
	reloadJournal := persistlog.NewReloadJournal(realmDir)
	if shipper != nil {
		journal.OnClose(shipper.Enqueue)
		reloadJournal.OnClose(shipper.Enqueue)
	}
	defer journal.Close()
	defer asyncJournal.Close()
	defer reloadJournal.Close()

	source := func() (roleplay.Config, *textpool.Store, []string, error) {
		b, notes, err := tuning.LoadBundle(tp)
		if err != nil {
			return roleplay.Config{}, nil, notes, err
		}
		if idx != nil {
			upsertEffectiveConfig(idx, b, logger)
		}
		return b.Config, b.Pools, notes, nil
	}

	loop := runtime.New(bundle.Config, bundle.Pools, runtime.Options{
		Logger:    log.New(os.Stdout, "[roleplay] ", log.LstdFlags|log.Lmicroseconds),
		Decisions: multiDecisionLogger{a: asyncJournal, b: idx},
		Reloads:   multiReloadLogger{a: reloadJournal, b: idx},
		Source:    source,
		Seed:      *seed,
	})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()
	go reloadOnHangup(ctx, loop, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		st, err := loop.State(ctx2)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *realmID, st, asyncJournal, idx)
		writeShipperMetrics(rw, *realmID, shipper)
	})

	if envCfg.EnableAdmin {
		admin := &adminAPI{loop: loop, realmID: *realmID, logger: logger}
		if h := strings.TrimSpace(envCfg.AdminTokenHash); h != "" {
			admin.tokenHash = []byte(h)
		}
		admin.register(mux)
	} else {
		logger.Printf("admin endpoints disabled (RP_ENABLE_ADMIN_HTTP=false)")
	}
	if envCfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(loop, logger, ws.Options{
		MsgsPerSec: envCfg.WSMsgsPerSec,
		Burst:      envCfg.WSBurst,
		Validate:   envCfg.WSValidate,
	}).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// reloadOnHangup runs the reload flow on SIGHUP, the same as the admin endpoint.
func reloadOnHangup(ctx context.Context, loop *runtime.Loop, logger *log.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
			res, err := loop.Reload(ctx2)
			cancel()
			if err != nil {
				logger.Printf("SIGHUP reload: %v", err)
				continue
			}
			logger.Printf("SIGHUP reload status=%s", res.Status)
		}
	}
}

func upsertEffectiveConfig(idx runtimeIndex, b tuning.Bundle, logger *log.Logger) {
	if err := idx.UpsertConfig("tuning", b.Tuning.Digest(), b.Tuning); err != nil {
		logger.Printf("index backend: upsert tuning: %v", err)
	}
	summary := map[string]int{}
	for _, loc := range b.Pools.Locales() {
		summary[loc] = b.Pools.Stats(loc).Lines
	}
	if err := idx.UpsertConfig("pools", b.Pools.Digest(), summary); err != nil {
		logger.Printf("index backend: upsert pools: %v", err)
	}
}

type statsSource interface{ Dropped() uint64 }

func writeMetrics(rw http.ResponseWriter, realm string, st runtime.State, journal statsSource, idx runtimeIndex) {
	attached := 0
	if st.SessionID != "" {
		attached = 1
	}
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s{realm=%q} %v\n", name, realm, v)
	}
	gauge("rp_host_attached", "Whether a host session is attached.", attached)
	gauge("rp_npcs", "NPCs the engine knows.", st.Engine.NPCs)
	gauge("rp_players", "Players mirrored from the host.", st.Players)
	gauge("rp_ambient_timers", "Armed ambient timers.", st.Engine.AmbientTimers)
	gauge("rp_deferred_reactions", "Reactions waiting for their delay.", st.Engine.Deferred)
	gauge("rp_inbox_depth", "Host messages waiting for the loop.", st.InboxDepth)
	gauge("rp_last_now_ms", "Last host clock value seen.", st.LastNowMs)

	counterVec := func(name, help, label string, m map[string]uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(rw, "%s{realm=%q,%s=%q} %d\n", name, realm, label, k, m[k])
		}
	}
	counterVec("rp_requests_total", "Requests produced by cause.", "cause", st.Engine.Requests)
	counterVec("rp_denials_total", "Triggers suppressed by gate.", "gate", st.Engine.Denials)

	fmt.Fprintf(rw, "# HELP rp_outbound_dropped_total Outbound messages dropped on a full session queue.\n")
	fmt.Fprintf(rw, "# TYPE rp_outbound_dropped_total counter\n")
	fmt.Fprintf(rw, "rp_outbound_dropped_total{realm=%q} %d\n", realm, st.DroppedOutbound)

	fmt.Fprintf(rw, "# HELP rp_journal_dropped_total Decisions dropped before reaching the journal.\n")
	fmt.Fprintf(rw, "# TYPE rp_journal_dropped_total counter\n")
	fmt.Fprintf(rw, "rp_journal_dropped_total{realm=%q} %d\n", realm, journal.Dropped())

	writeIndexMetrics(rw, realm, idx)
}
