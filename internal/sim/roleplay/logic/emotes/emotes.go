package emotes

import (
	"strings"
)

// Code is a gesture the host knows how to animate.
type Code uint16

const (
	None Code = iota
	Wave
	Bow
	Dance
	Cheer
	Salute
	LookAround
	Talk
	Eat
	Drink
	Laugh
	Kneel
	Sit
)

var tokens = map[string]Code{
	"WAVE":        Wave,
	"BOW":         Bow,
	"DANCE":       Dance,
	"CHEER":       Cheer,
	"SALUTE":      Salute,
	"LOOK_AROUND": LookAround,
	"TALK":        Talk,
	"EAT":         Eat,
	"DRINK":       Drink,
	"LAUGH":       Laugh,
	"KNEEL":       Kneel,
	"SIT":         Sit,
}

var names = func() map[Code]string {
	m := make(map[Code]string, len(tokens))
	for tok, c := range tokens {
		m[c] = tok
	}
	return m
}()

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "NONE"
}

// Parse maps a config or wire token to its code.
func Parse(token string) (Code, bool) {
	c, ok := tokens[strings.ToUpper(strings.TrimSpace(token))]
	return c, ok
}

// ParseList reads a comma separated token list, dropping unknown tokens.
func ParseList(s string) []Code {
	var out []Code
	for _, tok := range strings.Split(s, ",") {
		if c, ok := Parse(tok); ok {
			out = append(out, c)
		}
	}
	return out
}

func Tokens(list []Code) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.String())
	}
	return out
}

func Contains(list []Code, c Code) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
