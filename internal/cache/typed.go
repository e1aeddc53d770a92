package cache

import (
	"context"
	"fmt"
)

// GetOrCreate is the typed form of Facade.GetOrCreateBytes. A nil result from load is cached
// as an explicit null, which later decodes to the zero value of T.
func GetOrCreate[T any](ctx context.Context, c Facade, key string, load func(context.Context) (T, error), opts Options) (T, error) {
	var zero T
	codec := c.Codec()

	raw, err := c.GetOrCreateBytes(ctx, key, func(ctx context.Context) ([]byte, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := codec.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache: encode %s: %w", key, err)
		}
		return encoded, nil
	}, opts)
	if err != nil {
		return zero, err
	}

	var out T
	if err := codec.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return out, nil
}

// Get returns the cached value for key. found is true for a cached null as well, in which case
// value is the zero value of T.
func Get[T any](ctx context.Context, c Facade, key string) (value T, found bool, err error) {
	raw, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	if err := c.Codec().Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return value, true, nil
}

// Set encodes value and stores it in every tier.
func Set[T any](ctx context.Context, c Facade, key string, value T, opts Options) error {
	encoded, err := c.Codec().Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.SetBytes(ctx, key, encoded, opts)
}

// GetOrCreateTagged is GetOrCreate for values whose tags depend on what was loaded, such as a
// list tagged with each of its members. tagsOf runs only when load produced the value.
func GetOrCreateTagged[T any](ctx context.Context, c Facade, key string, load func(context.Context) (T, error), tagsOf func(T) []string, opts Options) (T, error) {
	var loaded T
	opts.LoadedTags = func() []string { return tagsOf(loaded) }
	return GetOrCreate(ctx, c, key, func(ctx context.Context) (T, error) {
		value, err := load(ctx)
		if err == nil {
			loaded = value
		}
		return value, err
	}, opts)
}
