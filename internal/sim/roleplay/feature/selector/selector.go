package selector

import (
	"math"
	"math/rand"
	"strings"

	"rpflavor/internal/sim/textpool"
)

// Placeholder is replaced with the invoking actor's display name.
const Placeholder = "{name}"

// Pick draws one line with probability weight/total. Weights below 1 count
// as 1 and weights above textpool.MaxWeight count as MaxWeight.
func Pick(rng *rand.Rand, lines []textpool.Line) (textpool.Line, bool) {
	var total int64
	for _, ln := range lines {
		total += weight(ln)
	}
	if total <= 0 {
		return textpool.Line{}, false
	}
	var r int64
	if total <= math.MaxInt32 {
		r = int64(rng.Intn(int(total))) + 1
	} else {
		r = rng.Int63n(total) + 1
	}
	var acc int64
	for _, ln := range lines {
		acc += weight(ln)
		if acc >= r {
			return ln, true
		}
	}
	return lines[len(lines)-1], true
}

func weight(ln textpool.Line) int64 {
	switch {
	case ln.Weight < 1:
		return 1
	case ln.Weight > textpool.MaxWeight:
		return textpool.MaxWeight
	}
	return int64(ln.Weight)
}

// ResolveLocale returns the locale whose pool serves (locale, category):
// the requested one when non-empty, else primary.
func ResolveLocale(s *textpool.Store, category, locale, primary string) string {
	if locale != primary && len(s.Lines(locale, category)) > 0 {
		return locale
	}
	return primary
}

// PickLocale picks from the locale's pool, falling back to the primary locale.
func PickLocale(rng *rand.Rand, s *textpool.Store, category, locale, primary string) (textpool.Line, bool) {
	return Pick(rng, s.Lines(ResolveLocale(s, category, locale, primary), category))
}

// ReplaceName substitutes every placeholder in one pass.
func ReplaceName(text, name string) string {
	return strings.ReplaceAll(text, Placeholder, name)
}

// Fallback holds the built-in phrase lists per locale.
type Fallback struct {
	Primary string
	Phrases map[string][]string
}

// ParsePhrases splits a '|' separated phrase list, dropping blanks.
func ParsePhrases(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// List returns the phrases for locale, or the primary list when locale has none.
func (f Fallback) List(locale string) []string {
	if l := f.Phrases[locale]; len(l) > 0 {
		return l
	}
	return f.Phrases[f.Primary]
}

// Pick chooses uniformly from the resolved list.
func (f Fallback) Pick(rng *rand.Rand, locale string) (string, bool) {
	l := f.List(locale)
	if len(l) == 0 {
		return "", false
	}
	return l[rng.Intn(len(l))], true
}
