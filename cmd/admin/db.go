package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd runs read-only queries against the sqlite decision index.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "realm_1", "realm id (ignored with -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	npc := fs.Uint64("npc", 0, "npc id filter (decisions)")
	_ = fs.Parse(args)

	q := "causes"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "realms", *realmID, "index", "roleplay.sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "causes":
		rows, err := db.Query(`SELECT cause, kind, COUNT(*) FROM decisions GROUP BY cause, kind ORDER BY cause, kind`)
		exitOn("query", err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Cause string `json:"cause"`
				Kind  string `json:"kind"`
				Count int    `json:"count"`
			}
			exitOn("scan", rows.Scan(&r.Cause, &r.Kind, &r.Count))
			_ = enc.Encode(r)
		}
		exitOn("rows", rows.Err())

	case "decisions":
		query := `SELECT session_id,at_ms,npc_id,cause,kind,target_id,COALESCE(speech,''),COALESCE(audience,''),COALESCE(text,''),COALESCE(emote,'') FROM decisions`
		var qargs []any
		if *npc != 0 {
			query += ` WHERE npc_id = ?`
			qargs = append(qargs, int64(*npc))
		}
		query += ` ORDER BY id DESC LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		exitOn("query", err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				SessionID string `json:"session_id"`
				AtMs      int64  `json:"at_ms"`
				NPCID     int64  `json:"npc_id"`
				Cause     string `json:"cause"`
				Kind      string `json:"kind"`
				TargetID  int64  `json:"target_id"`
				Speech    string `json:"speech,omitempty"`
				Audience  string `json:"audience,omitempty"`
				Text      string `json:"text,omitempty"`
				Emote     string `json:"emote,omitempty"`
			}
			exitOn("scan", rows.Scan(&r.SessionID, &r.AtMs, &r.NPCID, &r.Cause, &r.Kind, &r.TargetID, &r.Speech, &r.Audience, &r.Text, &r.Emote))
			_ = enc.Encode(r)
		}
		exitOn("rows", rows.Err())

	case "reloads":
		rows, err := db.Query(`SELECT raw_json FROM reloads ORDER BY id DESC LIMIT ?`, *limit)
		exitOn("query", err)
		defer rows.Close()
		for rows.Next() {
			var raw string
			exitOn("scan", rows.Scan(&raw))
			fmt.Println(raw)
		}
		exitOn("rows", rows.Err())

	case "configs":
		rows, err := db.Query(`SELECT name, digest, updated_at FROM configs ORDER BY name`)
		exitOn("query", err)
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			exitOn("scan", rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt))
			_ = enc.Encode(r)
		}
		exitOn("rows", rows.Err())

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(causes|decisions|reloads|configs)")
		os.Exit(2)
	}
}

func exitOn(what string, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, what+":", err)
		os.Exit(1)
	}
}
