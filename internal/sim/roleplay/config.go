package roleplay

import (
	"rpflavor/internal/sim/roleplay/logic/emotes"
)

// Config is the typed, already validated configuration the engine runs on.
// internal/sim/tuning builds it from yaml.
type Config struct {
	Enable bool

	Greeting GreetingConfig
	// Texts holds the built-in greeting phrases per locale.
	Texts         map[string][]string
	PrimaryLocale string
	TextPool      TextPoolConfig

	Whitelist []uint32
	Blacklist []uint32

	Ambient AmbientConfig
	React   ReactConfig

	GossipBudgetPerMinute int
	ReactBudgetPerMinute  int
}

type GreetingConfig struct {
	CooldownMs       int64
	Gesture          emotes.Code
	UseExtraEmote    bool
	ExtraEmoteChance int // percent
	ExtraEmotes      []emotes.Code
	YellChance       int // percent
}

type TextPoolConfig struct {
	Enable        bool
	Category      string
	ReloadCommand bool
}

type AmbientConfig struct {
	Enable     bool
	IntervalMs int64
	JitterMs   int64
	RangeMin   float64
	RangeMax   float64
	Emotes     []emotes.Code
	Chance     int // percent
}

type ReactConfig struct {
	Enable     bool
	CooldownMs int64
	RangeMax   float64
	Supported  []emotes.Code
	DelayMinMs int64
	DelayMaxMs int64
}

const (
	LocaleEN = "en"
	LocaleDE = "de"

	GossipCategory = "gossip"
)

func DefaultConfig() Config {
	return Config{
		Enable: true,
		Greeting: GreetingConfig{
			CooldownMs:       5000,
			Gesture:          emotes.Wave,
			UseExtraEmote:    true,
			ExtraEmoteChance: 50,
			ExtraEmotes:      emotes.ParseList("WAVE,BOW,DANCE,CHEER,SALUTE"),
			YellChance:       0,
		},
		Texts: map[string][]string{
			LocaleEN: {"Hello, {name}!", "Welcome, {name}!", "Greetings, {name}!"},
			LocaleDE: {"Hallo, {name}!", "Willkommen, {name}!", "Seid gegrüßt, {name}!"},
		},
		PrimaryLocale: LocaleEN,
		TextPool: TextPoolConfig{
			Enable:        false,
			Category:      GossipCategory,
			ReloadCommand: true,
		},
		Ambient: AmbientConfig{
			Enable:     false,
			IntervalMs: 15000,
			JitterMs:   1000,
			RangeMin:   0,
			RangeMax:   25,
			Emotes:     emotes.ParseList("LOOK_AROUND,TALK,LAUGH,SIT,EAT,DRINK"),
			Chance:     100,
		},
		React: ReactConfig{
			Enable:     true,
			CooldownMs: 3000,
			RangeMax:   5,
			Supported:  emotes.ParseList("WAVE,DANCE,CHEER,SALUTE,BOW"),
			DelayMinMs: 100,
			DelayMaxMs: 300,
		},
		GossipBudgetPerMinute: 60,
		ReactBudgetPerMinute:  60,
	}
}
