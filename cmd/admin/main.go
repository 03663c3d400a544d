package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "rpflavor/internal/persistence/log"
	"rpflavor/internal/sim/runtime"
	"rpflavor/internal/sim/textpool"
	"rpflavor/internal/sim/tuning"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "reload":
			reloadCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "lint":
			lintCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "realms"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// journalCmd prints decision or reload journal entries as JSON lines.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "realm_1", "realm id")
	kind := fs.String("kind", "decisions", "decisions|reloads")
	npc := fs.Uint64("npc", 0, "only decisions for this npc id")
	cause := fs.String("cause", "", "only decisions with this cause")
	_ = fs.Parse(args)

	if *kind != "decisions" && *kind != "reloads" {
		fmt.Fprintln(os.Stderr, "bad -kind:", *kind)
		os.Exit(2)
	}
	dir := filepath.Join(*dataDir, "realms", *realmID, *kind)
	files, err := persistlog.ListFiles(dir, *kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for _, f := range files {
		err := persistlog.ReadFile(f, func(line []byte) error {
			if *kind == "decisions" && (*npc != 0 || *cause != "") {
				var r runtime.DecisionRecord
				if err := json.Unmarshal(line, &r); err != nil {
					return err
				}
				if !matchDecision(r, *npc, *cause) {
					return nil
				}
			}
			_, _ = out.Write(line)
			return out.WriteByte('\n')
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}

func matchDecision(r runtime.DecisionRecord, npc uint64, cause string) bool {
	if npc != 0 && r.NPCID != npc {
		return false
	}
	if cause != "" && !strings.EqualFold(r.Cause, cause) {
		return false
	}
	return true
}

// lintCmd checks a tuning file and the pool files it names without starting
// a server.
func lintCmd(args []string) {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	tuningPath := fs.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
	_ = fs.Parse(args)

	t, notes, err := tuning.Load(*tuningPath)
	for _, n := range notes {
		fmt.Println("note:", n)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}

	failed := false
	for loc, path := range t.PoolFiles(filepath.Dir(*tuningPath)) {
		st, cats, err := lintPool(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pool %s: %v\n", loc, err)
			failed = true
			continue
		}
		fmt.Printf("pool %s: lines=%d skipped=%d discarded=%d categories=%v\n", loc, st.Lines, st.Skipped, st.Discarded, cats)
		if t.TextPool.Enable && st.Lines == 0 {
			fmt.Fprintf(os.Stderr, "pool %s: no usable lines\n", loc)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func lintPool(path string) (textpool.ParseStats, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return textpool.ParseStats{}, nil, err
	}
	defer f.Close()
	pool, st, err := textpool.Parse(f)
	if err != nil {
		return st, nil, err
	}
	cats := make([]string, 0, len(pool))
	for c := range pool {
		cats = append(cats, c)
	}
	return st, sortStrings(cats), nil
}
