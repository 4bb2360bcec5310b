// Copyright (C) 2026 ReasonBridge (engineering@reasonbridge.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"time"
)

// NoopStore is a KVStore that stores nothing. Every Get is a miss and
// every write succeeds silently. Used when caching is disabled so the
// cache components keep their normal code path.
type NoopStore struct{}

var _ KVStore = (*NoopStore)(nil)

// NewNoopStore returns a store that never holds data.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrKeyNotFound
}

func (*NoopStore) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (*NoopStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (*NoopStore) Close() error {
	return nil
}
