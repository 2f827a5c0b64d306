// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package downloader

import (
	"context"

	"github.com/ManuGH/hlscap/internal/encryption"
	"github.com/ManuGH/hlscap/internal/model"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// keyCache holds the most recently used decryption keys by key URL.
// Concurrent misses for the same URL share one fetch.
type keyCache struct {
	keys   *lru.Cache[model.RemoteResource, [encryption.BlockSize]byte]
	flight singleflight.Group
	get    Getter
}

func newKeyCache(get Getter, size int) (*keyCache, error) {
	keys, err := lru.New[model.RemoteResource, [encryption.BlockSize]byte](size)
	if err != nil {
		return nil, err
	}
	return &keyCache{keys: keys, get: get}, nil
}

func (c *keyCache) Key(ctx context.Context, res model.RemoteResource) ([encryption.BlockSize]byte, error) {
	if key, ok := c.keys.Get(res); ok {
		return key, nil
	}

	v, err, _ := c.flight.Do(res.String(), func() (any, error) {
		if k, ok := c.keys.Get(res); ok {
			return k, nil
		}
		resp, err := c.get.Get(ctx, res)
		if err != nil {
			return nil, err
		}
		k, err := encryption.KeyFromBody(resp.Body)
		if err != nil {
			return nil, err
		}
		c.keys.Add(res, k)
		return k, nil
	})
	if err != nil {
		return [encryption.BlockSize]byte{}, err
	}
	return v.([encryption.BlockSize]byte), nil
}
