package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// OrderKey is the cache key of an order.
func OrderKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

// ProductKey is the cache key of a product.
func ProductKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

// GetJSON loads key and decodes it into a new T.
func GetJSON[T any](ctx context.Context, store Store, key string) (*T, error) {
	if store == nil {
		return nil, ErrCacheMiss
	}
	raw, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, v any, ttl time.Duration) error {
	if store == nil || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, raw, ttl)
}
