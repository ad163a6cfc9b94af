package epg

import (
	"strings"
	"unicode/utf8"
)

// Classify ranks a stored channel name against the query. Exact beats a
// stored name that extends the query, which beats a stored name contained
// in the query.
func Classify(stored, query string) (MatchCandidate, bool) {
	switch {
	case stored == query:
		return MatchCandidate{Tier: TierExact}, true
	case strings.HasPrefix(stored, query):
		return MatchCandidate{Tier: TierPrefix, TieBreak: utf8.RuneCountInString(stored)}, true
	case stored != "" && strings.Contains(query, stored):
		return MatchCandidate{Tier: TierSubstring, TieBreak: -utf8.RuneCountInString(stored)}, true
	default:
		return MatchCandidate{}, false
	}
}

// Better reports whether a outranks b. Equal ranks fall back to the stored
// channel name so the result does not depend on row order.
func Better(a, b MatchCandidate) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.TieBreak != b.TieBreak {
		return a.TieBreak < b.TieBreak
	}
	return a.Record.Channel < b.Record.Channel
}

// SelectBest picks the best record for query among those dated date.
func SelectBest(records []ProgramRecord, date, query string) (MatchCandidate, bool) {
	var (
		best  MatchCandidate
		found bool
	)
	for _, rec := range records {
		if rec.Date != date {
			continue
		}
		cand, ok := Classify(rec.Channel, query)
		if !ok {
			continue
		}
		cand.Record = rec
		if !found || Better(cand, best) {
			best, found = cand, true
		}
	}
	return best, found
}
