package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quote-sync-service/internal/ports"
)

// storedValue is one key read from the key-value store.
type storedValue struct {
	value string
	found bool
	err   error
}

// loadKeys reads keys from kv concurrently. A failed read never cancels the
// others, so every key reports its own outcome. Results keep key order.
func loadKeys(ctx context.Context, kv ports.KeyValueStore, keys ...string) []storedValue {
	results := make([]storedValue, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		g.Go(func() error {
			v, found, err := kv.Load(ctx, key)
			results[i] = storedValue{value: v, found: found, err: err}

			return nil
		})
	}

	_ = g.Wait()

	return results
}
