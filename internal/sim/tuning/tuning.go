package tuning

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/roleplay/feature/selector"
	"rpflavor/internal/sim/roleplay/logic/eligibility"
	"rpflavor/internal/sim/roleplay/logic/emotes"
)

// Tuning is the yaml view of the roleplay settings. Lists stay comma
// separated strings so operators can paste them from older configs.
type Tuning struct {
	Enable   bool              `yaml:"enable"`
	Greeting Greeting          `yaml:"greeting"`
	Texts    map[string]string `yaml:"texts"`
	TextPool TextPool          `yaml:"text_pool"`
	Filter   Filter            `yaml:"filter"`
	Ambient  Ambient           `yaml:"ambient"`
	React    React             `yaml:"react"`
	Throttle Throttle          `yaml:"throttle"`
}

type Greeting struct {
	CooldownMs       int64  `yaml:"cooldown_ms"`
	Gesture          string `yaml:"gesture"`
	UseExtraEmote    bool   `yaml:"use_extra_emote"`
	ExtraEmoteChance int    `yaml:"extra_emote_chance"`
	ExtraEmotes      string `yaml:"extra_emotes"`
	YellChance       int    `yaml:"yell_chance"`
}

type TextPool struct {
	Enable        bool              `yaml:"enable"`
	PrimaryLocale string            `yaml:"primary_locale"`
	Category      string            `yaml:"category"`
	ReloadCommand bool              `yaml:"reload_command"`
	Files         map[string]string `yaml:"files"`
}

type Filter struct {
	Whitelist string `yaml:"whitelist"`
	Blacklist string `yaml:"blacklist"`
}

type Ambient struct {
	Enable     bool    `yaml:"enable"`
	IntervalMs int64   `yaml:"interval_ms"`
	JitterMs   int64   `yaml:"jitter_ms"`
	RangeMin   float64 `yaml:"range_min"`
	RangeMax   float64 `yaml:"range_max"`
	Emotes     string  `yaml:"emotes"`
	Chance     int     `yaml:"chance"`
}

type React struct {
	Enable     bool    `yaml:"enable"`
	CooldownMs int64   `yaml:"cooldown_ms"`
	RangeMax   float64 `yaml:"range_max"`
	Supported  string  `yaml:"supported"`
	DelayMinMs int64   `yaml:"delay_min_ms"`
	DelayMaxMs int64   `yaml:"delay_max_ms"`
}

type Throttle struct {
	GossipBudgetPerMinute int `yaml:"gossip_budget_per_minute"`
	ReactBudgetPerMinute  int `yaml:"react_budget_per_minute"`
}

func Defaults() Tuning {
	return Tuning{
		Enable: true,
		Greeting: Greeting{
			CooldownMs:       5000,
			Gesture:          "WAVE",
			UseExtraEmote:    true,
			ExtraEmoteChance: 50,
			ExtraEmotes:      "WAVE,BOW,DANCE,CHEER,SALUTE",
			YellChance:       0,
		},
		Texts: map[string]string{
			roleplay.LocaleEN: "Hello, {name}!|Welcome, {name}!|Greetings, {name}!",
			roleplay.LocaleDE: "Hallo, {name}!|Willkommen, {name}!|Seid gegrüßt, {name}!",
		},
		TextPool: TextPool{
			Enable:        false,
			PrimaryLocale: roleplay.LocaleEN,
			Category:      roleplay.GossipCategory,
			ReloadCommand: true,
			Files: map[string]string{
				roleplay.LocaleEN: "better_rp_texts.en.txt",
				roleplay.LocaleDE: "better_rp_texts.de.txt",
			},
		},
		Ambient: Ambient{
			Enable:     false,
			IntervalMs: 15000,
			JitterMs:   1000,
			RangeMin:   0,
			RangeMax:   25,
			Emotes:     "LOOK_AROUND,TALK,LAUGH,SIT,EAT,DRINK",
			Chance:     100,
		},
		React: React{
			Enable:     true,
			CooldownMs: 3000,
			RangeMax:   5,
			Supported:  "WAVE,DANCE,CHEER,SALUTE,BOW",
			DelayMinMs: 100,
			DelayMaxMs: 300,
		},
		Throttle: Throttle{
			GossipBudgetPerMinute: 60,
			ReactBudgetPerMinute:  60,
		},
	}
}

// Load starts from Defaults and overlays the file key by key. Values that do
// not decode keep their default and come back as notes. A missing file
// returns the normalized defaults together with the read error so callers
// can tell "absent" from "broken"; only a file that is not YAML at all is
// an error with no usable result.
func Load(path string) (Tuning, []string, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, t.Normalize(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return t, t.Normalize(), fmt.Errorf("tuning.yaml: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return Defaults(), nil, fmt.Errorf("tuning.yaml: %w", err)
	}
	var notes []string
	overlay(&root, reflect.ValueOf(&t).Elem(), "", &notes)
	return t, append(notes, t.Normalize()...), nil
}

// Normalize repairs out-of-range values in place and describes each repair.
func (t *Tuning) Normalize() []string {
	if t == nil {
		return nil
	}
	d := Defaults()
	var notes []string
	fix := func(format string, args ...any) { notes = append(notes, fmt.Sprintf(format, args...)) }

	if t.Greeting.CooldownMs < 0 {
		fix("greeting.cooldown_ms %d < 0, using %d", t.Greeting.CooldownMs, d.Greeting.CooldownMs)
		t.Greeting.CooldownMs = d.Greeting.CooldownMs
	}
	if _, ok := emotes.Parse(t.Greeting.Gesture); !ok {
		if strings.TrimSpace(t.Greeting.Gesture) != "" {
			fix("greeting.gesture: unknown emote %q, using %s", t.Greeting.Gesture, d.Greeting.Gesture)
		}
		t.Greeting.Gesture = d.Greeting.Gesture
	}
	t.Greeting.ExtraEmoteChance = clampPct("greeting.extra_emote_chance", t.Greeting.ExtraEmoteChance, fix)
	t.Greeting.YellChance = clampPct("greeting.yell_chance", t.Greeting.YellChance, fix)

	if t.Texts == nil {
		t.Texts = map[string]string{}
	}
	if strings.TrimSpace(t.TextPool.PrimaryLocale) == "" {
		t.TextPool.PrimaryLocale = d.TextPool.PrimaryLocale
	}
	if strings.TrimSpace(t.TextPool.Category) == "" {
		t.TextPool.Category = d.TextPool.Category
	}
	if len(selector.ParsePhrases(t.Texts[t.TextPool.PrimaryLocale])) == 0 {
		if def, ok := d.Texts[t.TextPool.PrimaryLocale]; ok {
			fix("texts.%s empty, using built-in phrases", t.TextPool.PrimaryLocale)
			t.Texts[t.TextPool.PrimaryLocale] = def
		}
	}

	if t.Ambient.IntervalMs <= 0 {
		fix("ambient.interval_ms %d <= 0, using %d", t.Ambient.IntervalMs, d.Ambient.IntervalMs)
		t.Ambient.IntervalMs = d.Ambient.IntervalMs
	}
	if t.Ambient.JitterMs < 0 {
		fix("ambient.jitter_ms %d < 0, using 0", t.Ambient.JitterMs)
		t.Ambient.JitterMs = 0
	}
	if t.Ambient.RangeMin < 0 {
		t.Ambient.RangeMin = 0
	}
	if t.Ambient.RangeMax < 0 {
		fix("ambient.range_max %.1f < 0, using %.1f", t.Ambient.RangeMax, d.Ambient.RangeMax)
		t.Ambient.RangeMax = d.Ambient.RangeMax
	}
	if t.Ambient.RangeMin > t.Ambient.RangeMax {
		fix("ambient.range_min > range_max, swapping")
		t.Ambient.RangeMin, t.Ambient.RangeMax = t.Ambient.RangeMax, t.Ambient.RangeMin
	}
	if t.TextPool.Enable && strings.TrimSpace(t.TextPool.Files[t.TextPool.PrimaryLocale]) == "" {
		fix("text_pool.files: no file for primary locale %q, greetings use built-in phrases", t.TextPool.PrimaryLocale)
	}

	t.Ambient.Chance = clampPct("ambient.chance", t.Ambient.Chance, fix)

	if t.React.CooldownMs < 0 {
		fix("react.cooldown_ms %d < 0, using %d", t.React.CooldownMs, d.React.CooldownMs)
		t.React.CooldownMs = d.React.CooldownMs
	}
	if t.React.RangeMax < 0 {
		fix("react.range_max %.1f < 0, using %.1f", t.React.RangeMax, d.React.RangeMax)
		t.React.RangeMax = d.React.RangeMax
	}
	if t.React.DelayMinMs < 0 || t.React.DelayMaxMs < 0 {
		fix("react delay range negative, using %d..%d", d.React.DelayMinMs, d.React.DelayMaxMs)
		t.React.DelayMinMs, t.React.DelayMaxMs = d.React.DelayMinMs, d.React.DelayMaxMs
	}
	if t.React.DelayMinMs > t.React.DelayMaxMs {
		fix("react.delay_min_ms > delay_max_ms, swapping")
		t.React.DelayMinMs, t.React.DelayMaxMs = t.React.DelayMaxMs, t.React.DelayMinMs
	}

	if t.Throttle.GossipBudgetPerMinute < 0 {
		fix("throttle.gossip_budget_per_minute < 0, using %d", d.Throttle.GossipBudgetPerMinute)
		t.Throttle.GossipBudgetPerMinute = d.Throttle.GossipBudgetPerMinute
	}
	if t.Throttle.ReactBudgetPerMinute < 0 {
		fix("throttle.react_budget_per_minute < 0, using %d", d.Throttle.ReactBudgetPerMinute)
		t.Throttle.ReactBudgetPerMinute = d.Throttle.ReactBudgetPerMinute
	}
	return notes
}

func clampPct(name string, v int, fix func(string, ...any)) int {
	switch {
	case v < 0:
		fix("%s %d < 0, using 0", name, v)
		return 0
	case v > 100:
		fix("%s %d > 100, using 100", name, v)
		return 100
	}
	return v
}

// PoolFiles resolves the pool file paths against baseDir.
func (t Tuning) PoolFiles(baseDir string) map[string]string {
	out := make(map[string]string, len(t.TextPool.Files))
	for loc, p := range t.TextPool.Files {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		out[loc] = p
	}
	return out
}

func (t Tuning) Locales() []string {
	out := make([]string, 0, len(t.Texts))
	for loc := range t.Texts {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Compile converts the yaml view into the engine's typed configuration.
// Unknown emote tokens and non-numeric ids are dropped.
func (t Tuning) Compile() roleplay.Config {
	gesture, ok := emotes.Parse(t.Greeting.Gesture)
	if !ok {
		gesture = emotes.Wave
	}
	texts := make(map[string][]string, len(t.Texts))
	for loc, s := range t.Texts {
		texts[loc] = selector.ParsePhrases(s)
	}
	return roleplay.Config{
		Enable: t.Enable,
		Greeting: roleplay.GreetingConfig{
			CooldownMs:       t.Greeting.CooldownMs,
			Gesture:          gesture,
			UseExtraEmote:    t.Greeting.UseExtraEmote,
			ExtraEmoteChance: t.Greeting.ExtraEmoteChance,
			ExtraEmotes:      emotes.ParseList(t.Greeting.ExtraEmotes),
			YellChance:       t.Greeting.YellChance,
		},
		Texts:         texts,
		PrimaryLocale: t.TextPool.PrimaryLocale,
		TextPool: roleplay.TextPoolConfig{
			Enable:        t.TextPool.Enable,
			Category:      t.TextPool.Category,
			ReloadCommand: t.TextPool.ReloadCommand,
		},
		Whitelist: eligibility.ParseIDs(t.Filter.Whitelist),
		Blacklist: eligibility.ParseIDs(t.Filter.Blacklist),
		Ambient: roleplay.AmbientConfig{
			Enable:     t.Ambient.Enable,
			IntervalMs: t.Ambient.IntervalMs,
			JitterMs:   t.Ambient.JitterMs,
			RangeMin:   t.Ambient.RangeMin,
			RangeMax:   t.Ambient.RangeMax,
			Emotes:     emotes.ParseList(t.Ambient.Emotes),
			Chance:     t.Ambient.Chance,
		},
		React: roleplay.ReactConfig{
			Enable:     t.React.Enable,
			CooldownMs: t.React.CooldownMs,
			RangeMax:   t.React.RangeMax,
			Supported:  emotes.ParseList(t.React.Supported),
			DelayMinMs: t.React.DelayMinMs,
			DelayMaxMs: t.React.DelayMaxMs,
		},
		GossipBudgetPerMinute: t.Throttle.GossipBudgetPerMinute,
		ReactBudgetPerMinute:  t.Throttle.ReactBudgetPerMinute,
	}
}
