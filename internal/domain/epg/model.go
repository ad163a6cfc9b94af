package epg

import (
	"context"
	"time"
)

// Schema is the client document format.
type Schema string

const (
	SchemaDIYP   Schema = "diyp"
	SchemaLoveTV Schema = "lovetv"
)

// Config drives resolution and synthesis.
type Config struct {
	Location         *time.Location
	DefaultData      bool
	CacheTTL         time.Duration
	PlaceholderURL   string
	PlaceholderTitle string
}

// ProgramRecord is one stored (channel, date) row. Payload is the JSON
// document written by the ingestion job.
type ProgramRecord struct {
	Channel string
	Date    string
	Payload []byte
}

// Tier orders match quality; lower is better.
type Tier int

const (
	TierExact Tier = iota + 1
	TierPrefix
	TierSubstring
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// MatchCandidate is a record plus its rank against a query.
type MatchCandidate struct {
	Record   ProgramRecord
	Tier     Tier
	TieBreak int
}

// Request is a single lookup.
type Request struct {
	OriginalName string
	RawDate      string
	Schema       Schema
	// BaseURL is the public origin icon URLs are made absolute against.
	BaseURL string
}

// Document is the rendered response body.
type Document struct {
	Body    []byte
	Channel string
	Date    string
	Matched bool
	Cached  bool
}

// Repository looks up the best stored record for a cleaned name on a date.
type Repository interface {
	FindBest(ctx context.Context, date, channel string) (MatchCandidate, bool, error)
}

// ChannelNormalizer cleans a raw channel identifier.
type ChannelNormalizer interface {
	Normalize(raw string) string
}

// IconResolver maps a channel name to an icon URL. Paths starting with "/"
// are served by this process and get the public base URL prepended.
type IconResolver interface {
	Resolve(name string) (string, bool)
}

// Cache stores rendered documents.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Flush(ctx context.Context) error
}
