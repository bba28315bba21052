// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// cacheTTLs maps cacheable tools to their result time-to-live. Tools not
// listed here are never cached (echo is trivially cheap, summarize output
// depends on provider availability, build results must stay fresh).
var cacheTTLs = map[ToolID]time.Duration{
	ToolWebSearch:   1 * time.Hour,
	ToolWebPageText: 30 * time.Minute,
	ToolHTTPFetch:   5 * time.Minute,
}

// ResultCache stores tool results in Badger with per-tool TTLs.
//
// Description:
//
//	Keys are derived from the tool name and a canonical serialization of
//	the input map, so identical invocations hit the same entry regardless
//	of map iteration order. Values are the JSON-encoded result map.
//	Badger handles expiry internally via entry TTLs.
//
// Thread Safety: Safe for concurrent use; Badger transactions provide
// isolation.
type ResultCache struct {
	db *badger.DB
}

// NewResultCache wraps an open Badger handle as a tool result cache.
// The caller owns the handle's lifecycle.
func NewResultCache(db *badger.DB) *ResultCache {
	return &ResultCache{db: db}
}

// cacheKey builds a stable key from the tool and its input.
//
// The input map is serialized with sorted keys before hashing so that
// logically identical inputs always produce the same key.
func cacheKey(tool ToolID, input map[string]any) []byte {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v, _ := json.Marshal(input[k])
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.Write(v)
		sb.WriteByte(';')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return []byte(fmt.Sprintf("toolcache:%s:%s", tool, hex.EncodeToString(sum[:])))
}

// Get returns the cached result for a tool invocation, or (nil, false)
// on a miss. Non-cacheable tools always miss.
func (c *ResultCache) Get(tool ToolID, input map[string]any) (map[string]any, bool) {
	if _, cacheable := cacheTTLs[tool]; !cacheable {
		return nil, false
	}

	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(tool, input))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			// Corrupt or unreadable entries degrade to a miss.
			return nil, false
		}
		return nil, false
	}

	var result map[string]any
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false
	}
	return result, true
}

// Set stores a tool result with the tool's configured TTL. Results for
// non-cacheable tools are dropped silently.
func (c *ResultCache) Set(tool ToolID, input map[string]any, result map[string]any) error {
	ttl, cacheable := cacheTTLs[tool]
	if !cacheable {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(tool, input), payload).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}
