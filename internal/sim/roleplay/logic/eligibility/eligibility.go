package eligibility

import (
	"sort"
	"strconv"
	"strings"
)

// Filter holds the NPC type-id allow and deny lists. An empty list does not restrict.
type Filter struct {
	allow map[uint32]struct{}
	deny  map[uint32]struct{}
}

func New(allow, deny []uint32) Filter {
	return Filter{allow: toSet(allow), deny: toSet(deny)}
}

// Allowed reports whether an NPC of the given type id may interact at all.
// Deny wins over allow when an id is on both lists.
func (f Filter) Allowed(entry uint32) bool {
	if len(f.allow) > 0 {
		if _, ok := f.allow[entry]; !ok {
			return false
		}
	}
	if len(f.deny) > 0 {
		if _, ok := f.deny[entry]; ok {
			return false
		}
	}
	return true
}

func (f Filter) Allow() []uint32 { return fromSet(f.allow) }
func (f Filter) Deny() []uint32  { return fromSet(f.deny) }

// ParseIDs reads a comma separated id list. Blank, zero and non-numeric tokens are dropped.
func ParseIDs(s string) []uint32 {
	var out []uint32
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil || v == 0 {
			continue
		}
		out = append(out, uint32(v))
	}
	return out
}

func toSet(ids []uint32) map[uint32]struct{} {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func fromSet(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
