package core

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Persisted keys
const (
	KeySessionUser        = "user"
	KeyRegisteredUsers    = "registeredUsers"
	KeyRegisteredStudents = "registeredStudents"
	KeyNotifications      = "notifications"
)

// KVStore is a synchronous string store. It is the only persistence mechanism of the stores.
type KVStore interface {
	// Get returns ErrKeyNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove does not fail when key is absent.
	Remove(ctx context.Context, key string) error
}

// LoadJSON decodes the value stored under key into dst.
// A malformed value returns an error wrapping ErrCorruptValue.
func LoadJSON(ctx context.Context, kv KVStore, key string, dst interface{}) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading %q", key)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, errors.Wrapf(ErrCorruptValue, "decoding %q: %v", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, kv KVStore, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", key)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return errors.Wrapf(err, "writing %q", key)
	}
	return nil
}

// LoadCollection loads the JSON collection stored under key.
// When the key is absent or its value is corrupted, an empty collection is persisted in its place;
// corruption is reported to logger instead of failing.
func LoadCollection[T any](ctx context.Context, kv KVStore, key string, logger Logger) ([]T, error) {
	var items []T
	found, err := LoadJSON(ctx, kv, key, &items)
	switch {
	case err != nil && errors.Is(err, ErrCorruptValue):
		logger.Warn("resetting corrupted collection", err, map[string]interface{}{"key": key})
	case err != nil:
		return nil, err
	case found && items != nil:
		return items, nil
	}
	items = []T{}
	if err := SaveJSON(ctx, kv, key, items); err != nil {
		return nil, err
	}
	return items, nil
}
