package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC) // 2024-03-02 in CST

	cases := map[string]string{
		"":             "2024-03-02",
		"2024":         "2024-03-02",
		"20240115":     "2024-01-15",
		"2024-01-15":   "2024-01-15",
		"202401151230": "2024-01-15",
		"20240230":     "2024-03-02",
		"20241301":     "2024-03-02",
		"abc":          "2024-03-02",
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseDate(raw, now, loc), raw)
	}
}
