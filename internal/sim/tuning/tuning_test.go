package tuning

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/roleplay/logic/emotes"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	got, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if !reflect.DeepEqual(got.Compile(), Defaults().Compile()) {
		t.Fatalf("missing file should yield defaults")
	}
}

func TestDefaults_MatchEngineDefaults(t *testing.T) {
	got := Defaults().Compile()
	want := roleplay.DefaultConfig()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("compiled defaults differ:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestLoad_OverlayAndNormalize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	src := `
greeting:
  cooldown_ms: 2000
  yell_chance: 150
  extra_emotes: "bow, FLY ,cheer"
filter:
  whitelist: "10,abc,11"
  blacklist: "11"
ambient:
  enable: true
  range_min: 30
  range_max: 10
react:
  delay_min_ms: 500
  delay_max_ms: 200
throttle:
  gossip_budget_per_minute: -1
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, notes, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(notes) < 4 {
		t.Fatalf("expected normalization notes, got %v", notes)
	}
	cfg := tu.Compile()
	if cfg.Greeting.CooldownMs != 2000 || cfg.Greeting.YellChance != 100 {
		t.Fatalf("greeting=%+v", cfg.Greeting)
	}
	if !reflect.DeepEqual(cfg.Greeting.ExtraEmotes, []emotes.Code{emotes.Bow, emotes.Cheer}) {
		t.Fatalf("extra emotes=%v", cfg.Greeting.ExtraEmotes)
	}
	if !reflect.DeepEqual(cfg.Whitelist, []uint32{10, 11}) || !reflect.DeepEqual(cfg.Blacklist, []uint32{11}) {
		t.Fatalf("filter=%v %v", cfg.Whitelist, cfg.Blacklist)
	}
	if cfg.Ambient.RangeMin != 10 || cfg.Ambient.RangeMax != 30 || !cfg.Ambient.Enable {
		t.Fatalf("ambient=%+v", cfg.Ambient)
	}
	if cfg.React.DelayMinMs != 200 || cfg.React.DelayMaxMs != 500 {
		t.Fatalf("react=%+v", cfg.React)
	}
	if cfg.GossipBudgetPerMinute != 60 || cfg.ReactBudgetPerMinute != 60 {
		t.Fatalf("budgets=%d %d", cfg.GossipBudgetPerMinute, cfg.ReactBudgetPerMinute)
	}
	if cfg.Greeting.Gesture != emotes.Wave || cfg.React.CooldownMs != 3000 {
		t.Fatalf("unset keys should keep defaults")
	}
}

func writeTuning(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func hasNote(notes []string, prefix string) bool {
	for _, n := range notes {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func TestLoad_BadGestureFallsBackToWave(t *testing.T) {
	tu, notes, err := Load(writeTuning(t, "greeting:\n  gesture: HUG\n  cooldown_ms: 1200\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.Greeting.Gesture != "WAVE" || tu.Compile().Greeting.Gesture != emotes.Wave {
		t.Fatalf("gesture=%q", tu.Greeting.Gesture)
	}
	if tu.Greeting.CooldownMs != 1200 {
		t.Fatalf("sibling key lost: %d", tu.Greeting.CooldownMs)
	}
	if !hasNote(notes, "greeting.gesture: unknown emote") {
		t.Fatalf("notes=%v", notes)
	}
}

func TestLoad_BadValueKeepsDefault(t *testing.T) {
	src := `
greeting:
  cooldown_ms: fast
  yell_chance: 20
texts: [not, a, map]
ambient:
  enable: true
  interval_ms: {x: 1}
react: 7
colour: blue
`
	tu, notes, err := Load(writeTuning(t, src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := Defaults()
	if tu.Greeting.CooldownMs != d.Greeting.CooldownMs || tu.Greeting.YellChance != 20 {
		t.Fatalf("greeting=%+v", tu.Greeting)
	}
	if !reflect.DeepEqual(tu.Texts, d.Texts) {
		t.Fatalf("texts=%v", tu.Texts)
	}
	if !tu.Ambient.Enable || tu.Ambient.IntervalMs != d.Ambient.IntervalMs {
		t.Fatalf("ambient=%+v", tu.Ambient)
	}
	if !reflect.DeepEqual(tu.React, d.React) {
		t.Fatalf("react=%+v", tu.React)
	}
	for _, want := range []string{"greeting.cooldown_ms: line 3", "texts: line", "ambient.interval_ms: line", "react: line", "colour: unknown key"} {
		if !hasNote(notes, want) {
			t.Fatalf("missing note %q in %v", want, notes)
		}
	}
}

func TestLoad_PoolWithoutPrimaryFileIsNoted(t *testing.T) {
	tu, notes, err := Load(writeTuning(t, "text_pool:\n  enable: true\n  primary_locale: fr\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !tu.TextPool.Enable || !hasNote(notes, "text_pool.files") {
		t.Fatalf("enable=%v notes=%v", tu.TextPool.Enable, notes)
	}
}

func TestPoolFiles(t *testing.T) {
	tu := Defaults()
	tu.TextPool.Files["fr"] = "/abs/fr.txt"
	got := tu.PoolFiles("/etc/rp")
	if got["en"] != filepath.Join("/etc/rp", "better_rp_texts.en.txt") || got["fr"] != "/abs/fr.txt" {
		t.Fatalf("PoolFiles=%v", got)
	}
}
