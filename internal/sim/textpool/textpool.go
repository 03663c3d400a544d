package textpool

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Kind is how a pooled line is delivered.
type Kind uint8

const (
	Say Kind = iota + 1
	Yell
	Emote
	Whisper
)

func (k Kind) String() string {
	switch k {
	case Say:
		return "SAY"
	case Yell:
		return "YELL"
	case Emote:
		return "EMOTE"
	case Whisper:
		return "WHISPER"
	default:
		return "UNKNOWN"
	}
}

func ParseKind(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAY":
		return Say, true
	case "YELL":
		return Yell, true
	case "EMOTE":
		return Emote, true
	case "WHISPER":
		return Whisper, true
	default:
		return 0, false
	}
}

// MaxWeight bounds a line's weight so pool totals stay well inside int64.
const MaxWeight = math.MaxUint32

type Line struct {
	Kind     Kind
	Category string
	Weight   int
	Text     string
}

// Pool maps category to lines in file order.
type Pool map[string][]Line

// ParseLine reads one KIND|CATEGORY|WEIGHT|TEXT entry. ok is false for
// comments, blank lines and malformed entries. TEXT may itself contain '|'.
func ParseLine(raw string) (Line, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "#") {
		return Line{}, false
	}
	parts := strings.SplitN(s, "|", 4)
	if len(parts) != 4 {
		return Line{}, false
	}
	kind, ok := ParseKind(parts[0])
	if !ok {
		return Line{}, false
	}
	cat := strings.TrimSpace(parts[1])
	text := strings.TrimSpace(parts[3])
	if cat == "" || text == "" {
		return Line{}, false
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || w < 1 {
		w = 1
	}
	if w > MaxWeight {
		w = MaxWeight
	}
	return Line{Kind: kind, Category: cat, Weight: w, Text: text}, true
}

// ParseStats counts what Parse kept and dropped.
type ParseStats struct {
	Lines     int
	Skipped   int
	Discarded int
}

// Parse reads a pool file. Malformed lines are discarded; only read errors are returned.
func Parse(r io.Reader) (Pool, ParseStats, error) {
	pool := Pool{}
	var st ParseStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			st.Skipped++
			continue
		}
		ln, ok := ParseLine(raw)
		if !ok {
			st.Discarded++
			continue
		}
		pool[ln.Category] = append(pool[ln.Category], ln)
		st.Lines++
	}
	if err := sc.Err(); err != nil {
		return nil, st, err
	}
	return pool, st, nil
}

// Store is an immutable set of per-locale pools. Reload builds a new Store and swaps it in.
type Store struct {
	pools  map[string]Pool
	stats  map[string]ParseStats
	digest string
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// NewStore wraps already parsed pools, e.g. for tests.
func NewStore(pools map[string]Pool) *Store {
	s := &Store{pools: map[string]Pool{}, stats: map[string]ParseStats{}}
	var concat bytes.Buffer
	for _, loc := range sortedKeys(pools) {
		p := pools[loc]
		s.pools[loc] = p
		var st ParseStats
		concat.WriteString("@" + loc + "\n")
		for _, cat := range sortedCats(p) {
			for _, ln := range p[cat] {
				st.Lines++
				fmt.Fprintf(&concat, "%s|%s|%d|%s\n", ln.Kind, ln.Category, ln.Weight, ln.Text)
			}
		}
		s.stats[loc] = st
	}
	s.digest = sha256Hex(concat.Bytes())
	return s
}

// Empty is a store with no content. Every lookup misses.
func Empty() *Store { return NewStore(nil) }

// Load reads one pool file per locale. A missing or unreadable file yields an
// empty pool for that locale and is reported in the returned error slice; the
// store is always usable.
func Load(files map[string]string) (*Store, []error) {
	s := &Store{pools: map[string]Pool{}, stats: map[string]ParseStats{}}
	var errs []error
	var concat bytes.Buffer
	for _, loc := range sortedKeys(files) {
		path := files[loc]
		concat.WriteString("@" + loc + "\n")
		raw, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("pool %s (%s): %w", loc, path, err))
			s.pools[loc] = Pool{}
			continue
		}
		concat.Write(raw)
		concat.WriteByte('\n')
		p, st, err := Parse(bytes.NewReader(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("pool %s (%s): %w", loc, path, err))
			p = Pool{}
		}
		s.pools[loc] = p
		s.stats[loc] = st
	}
	s.digest = sha256Hex(concat.Bytes())
	return s, errs
}

// Lines returns the lines for (locale, category); nil when absent. Callers must not mutate.
func (s *Store) Lines(locale, category string) []Line {
	if s == nil {
		return nil
	}
	return s.pools[locale][category]
}

func (s *Store) Locales() []string {
	if s == nil {
		return nil
	}
	return sortedKeys(s.pools)
}

func (s *Store) Categories(locale string) []string {
	if s == nil {
		return nil
	}
	return sortedCats(s.pools[locale])
}

func (s *Store) Stats(locale string) ParseStats {
	if s == nil {
		return ParseStats{}
	}
	return s.stats[locale]
}

// Digest identifies the loaded content; equal inputs give equal digests.
func (s *Store) Digest() string {
	if s == nil {
		return sha256Hex(nil)
	}
	return s.digest
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCats(p Pool) []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
