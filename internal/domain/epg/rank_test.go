package epg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func records(date string, names ...string) []ProgramRecord {
	out := make([]ProgramRecord, 0, len(names))
	for _, n := range names {
		out = append(out, ProgramRecord{Channel: n, Date: date})
	}
	return out
}

func TestSelectBestExactWins(t *testing.T) {
	best, ok := SelectBest(records("2024-03-01", "CCTV1+", "CCTV", "CCTV1"), "2024-03-01", "CCTV1")
	require.True(t, ok)
	require.Equal(t, "CCTV1", best.Record.Channel)
	require.Equal(t, TierExact, best.Tier)
}

func TestSelectBestShortestPrefix(t *testing.T) {
	best, ok := SelectBest(records("2024-03-01", "CCTV5+赛事", "CCTV5+", "CCTV5PLUS"), "2024-03-01", "CCTV5")
	require.True(t, ok)
	require.Equal(t, "CCTV5+", best.Record.Channel)
	require.Equal(t, TierPrefix, best.Tier)
	require.Equal(t, 6, best.TieBreak)
}

func TestSelectBestLongestSubstring(t *testing.T) {
	best, ok := SelectBest(records("2024-03-01", "CCTV", "CCTV5", "TV"), "2024-03-01", "CCTV5+")
	require.True(t, ok)
	require.Equal(t, "CCTV5", best.Record.Channel)
	require.Equal(t, TierSubstring, best.Tier)
}

func TestSelectBestPrefixBeatsSubstring(t *testing.T) {
	best, ok := SelectBest(records("2024-03-01", "CCTV", "CCTV13新闻"), "2024-03-01", "CCTV13")
	require.True(t, ok)
	require.Equal(t, "CCTV13新闻", best.Record.Channel)
}

func TestSelectBestTieBrokenByName(t *testing.T) {
	best, ok := SelectBest(records("2024-03-01", "CCTV1B", "CCTV1A"), "2024-03-01", "CCTV1")
	require.True(t, ok)
	require.Equal(t, "CCTV1A", best.Record.Channel)
}

func TestSelectBestFiltersDateAndEmptyNames(t *testing.T) {
	recs := append(records("2024-02-29", "CCTV1"), records("2024-03-01", "")...)
	_, ok := SelectBest(recs, "2024-03-01", "CCTV1")
	require.False(t, ok)
}

func TestClassifyCountsRunes(t *testing.T) {
	cand, ok := Classify("湖南卫视高清", "湖南卫视")
	require.True(t, ok)
	require.Equal(t, TierPrefix, cand.Tier)
	require.Equal(t, 6, cand.TieBreak)

	cand, ok = Classify("湖南卫视", "湖南卫视高清")
	require.True(t, ok)
	require.Equal(t, TierSubstring, cand.Tier)
	require.Equal(t, -4, cand.TieBreak)

	_, ok = Classify("浙江卫视", "湖南卫视")
	require.False(t, ok)
}
