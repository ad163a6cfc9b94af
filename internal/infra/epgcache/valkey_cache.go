package epgcache

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

const scanBatch = 500

// ValkeyCache stores rendered documents in a Valkey compatible server.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs the cache. Keys are namespaced with prefix.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "epg"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get implements epg.Cache.
func (c *ValkeyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return body, true, nil
}

// Set implements epg.Cache.
func (c *ValkeyCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	builder := c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(body))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

// Flush removes every key under the prefix.
func (c *ValkeyCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		entry, err := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(c.prefix+":*").Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			if err := c.client.Do(ctx, c.client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return err
			}
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

func (c *ValkeyCache) key(k string) string {
	return c.prefix + ":" + k
}

var _ epg.Cache = (*ValkeyCache)(nil)
