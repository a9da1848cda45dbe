// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memstore provides an in-memory storage.Store. It backs the test
// suites and the "memory" backend used to rehearse a run without touching
// a real account.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"blobsweep/storage"
)

// DefaultTiers mirrors the Azure Blob tier set.
var DefaultTiers = []string{"Hot", "Cool", "Cold", "Archive"}

// Object is the stored state of one entry.
type Object struct {
	Size         int64
	Tier         string
	TierInferred bool
	Rehydrating  bool
}

// Store is an in-memory storage.Store.
type Store struct {
	name        string
	tiers       []string
	archiveTier string

	mu      sync.RWMutex
	objects map[string]*Object
	failOn  map[string]error
	calls   map[string]*int64
}

// Option configures a Store.
type Option func(*Store)

// WithTiers replaces the recognized tier set; the last entry is treated as
// the offline tier.
func WithTiers(tiers ...string) Option {
	return func(s *Store) {
		s.tiers = tiers
		s.archiveTier = tiers[len(tiers)-1]
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		name:        "memory",
		tiers:       DefaultTiers,
		archiveTier: "Archive",
		objects:     make(map[string]*Object),
		failOn:      make(map[string]error),
		calls:       make(map[string]*int64),
	}
	for _, op := range []string{"Exists", "Properties", "SetTier", "Delete", "List"} {
		s.calls[op] = new(int64)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put adds or replaces an object.
func (s *Store) Put(name string, obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := obj
	s.objects[name] = &o
}

// Get returns a copy of the named object.
func (s *Store) Get(name string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[name]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// FailOn makes every call touching name return err.
func (s *Store) FailOn(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[name] = err
}

// Calls returns how many times op ("Exists", "SetTier", ...) was invoked.
func (s *Store) Calls(op string) int64 {
	c, ok := s.calls[op]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

func (s *Store) Name() string { return s.name }

func (s *Store) Tiers() []string { return s.tiers }

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	atomic.AddInt64(s.calls["Exists"], 1)
	if err := s.check(ctx, "Exists", name); err != nil {
		return false, err
	}
	_, ok := s.Get(name)
	return ok, nil
}

func (s *Store) Properties(ctx context.Context, name string) (*storage.Properties, error) {
	atomic.AddInt64(s.calls["Properties"], 1)
	if err := s.check(ctx, "Properties", name); err != nil {
		return nil, err
	}
	o, ok := s.Get(name)
	if !ok {
		return nil, storage.NotFound(s.name, "Properties", name, nil)
	}
	return &storage.Properties{
		Tier:             o.Tier,
		TierInferred:     o.TierInferred,
		Archived:         o.Tier == s.archiveTier,
		RehydratePending: o.Rehydrating,
		Size:             o.Size,
	}, nil
}

// SetTier moves the object to tier. Leaving the offline tier starts a
// rehydration: the tier stays offline and Rehydrating is set, as Azure does.
func (s *Store) SetTier(ctx context.Context, name, tier string) error {
	atomic.AddInt64(s.calls["SetTier"], 1)
	if err := s.check(ctx, "SetTier", name); err != nil {
		return err
	}
	if err := storage.ValidateTier(s, tier); err != nil {
		return storage.NewStoreError(s.name, "SetTier", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[name]
	if !ok {
		return storage.NotFound(s.name, "SetTier", name, nil)
	}
	if o.Tier == s.archiveTier && tier != s.archiveTier {
		o.Rehydrating = true
	} else {
		o.Tier = tier
		o.Rehydrating = false
	}
	o.TierInferred = false
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	atomic.AddInt64(s.calls["Delete"], 1)
	if err := s.check(ctx, "Delete", name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return storage.NotFound(s.name, "Delete", name, nil)
	}
	delete(s.objects, name)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, pageSize int, fn func(page []storage.ObjectInfo) error) error {
	atomic.AddInt64(s.calls["List"], 1)
	if err := s.check(ctx, "List", prefix); err != nil {
		return err
	}
	if pageSize <= 0 {
		pageSize = 5000
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.objects))
	for n := range s.objects {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	infos := make([]storage.ObjectInfo, len(names))
	for i, n := range names {
		o := s.objects[n]
		infos[i] = storage.ObjectInfo{Name: n, Size: o.Size, Tier: o.Tier}
	}
	s.mu.RUnlock()

	for start := 0; start < len(infos); start += pageSize {
		end := min(start+pageSize, len(infos))
		if err := fn(infos[start:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) check(ctx context.Context, op, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	err, ok := s.failOn[name]
	s.mu.RUnlock()
	if ok {
		return storage.NewStoreError(s.name, op, name, err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
