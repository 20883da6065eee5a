// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"
)

// BoolCache is a small bounded LRU cache from string key to bool,
// used to memoize classification results keyed by bytecode. It is the
// load-bearing replacement for the inert lru_cache decorator in the
// Python original's disassembler: there, the decorator's return value
// was discarded, so the cache never actually took effect.
type BoolCache struct {
	lru *lru.Cache
}

// NewBoolCache creates a BoolCache holding at most size entries.
func NewBoolCache(size int) (*BoolCache, error) {
	if size <= 0 {
		return nil, errors.New("common: cache size must be positive")
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &BoolCache{lru: l}, nil
}

// Get returns the cached value for key, if present.
func (c *BoolCache) Get(key string) (value bool, ok bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

// Add inserts or updates the cached value for key.
func (c *BoolCache) Add(key string, value bool) {
	c.lru.Add(key, value)
}

// Len reports the number of entries currently cached.
func (c *BoolCache) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *BoolCache) Purge() { c.lru.Purge() }
