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

package storage

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned (wrapped) when the named object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrRestorePending is returned (wrapped) by SetTier when the object cannot
// change tier until an earlier restore out of an offline tier finishes.
var ErrRestorePending = errors.New("restore in progress")

// Properties is the subset of object state the operations care about.
type Properties struct {
	Tier             string // empty when the account has no tiering (e.g. GPv1)
	TierInferred     bool   // tier comes from the account default, not set on the object
	Archived         bool   // object is in an offline tier
	RehydratePending bool   // a move out of the offline tier is in progress
	Restored         bool   // a readable copy of an offline object is available
	Size             int64
}

// ObjectInfo is one entry of a listing page.
type ObjectInfo struct {
	Name string
	Size int64
	Tier string
}

// Store is the remote object-store capability the operations run against.
// Implementations must be safe for concurrent use.
type Store interface {
	Name() string

	// Tiers lists the tier names SetTier accepts, case-sensitive.
	Tiers() []string

	Exists(ctx context.Context, name string) (bool, error)
	Properties(ctx context.Context, name string) (*Properties, error)
	SetTier(ctx context.Context, name, tier string) error
	Delete(ctx context.Context, name string) error

	// List walks objects whose name starts with prefix, one page at a time.
	// Returning an error from fn stops the walk and is returned as is.
	List(ctx context.Context, prefix string, pageSize int, fn func(page []ObjectInfo) error) error
}

// ValidateTier checks tier against the store's recognized set.
func ValidateTier(s Store, tier string) error {
	if slices.Contains(s.Tiers(), tier) {
		return nil
	}
	return errors.WithHintf(
		errors.Newf("invalid tier %q for %s", tier, s.Name()),
		"valid values are %v (case-sensitive)", s.Tiers())
}
