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

package ops

import (
	"context"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"

	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/storage"
)

// TierOptions controls a Tier operation.
type TierOptions struct {
	Target string

	// VerifyExistence issues an existence check before anything else and
	// reports absent objects as Missing.
	VerifyExistence bool

	// VerifyTier reads the current tier and skips objects already at
	// Target. A failed read is logged and the change is attempted anyway.
	VerifyTier bool

	// Force re-applies Target when the object's tier is only inferred from
	// the account default.
	Force bool

	DryRun bool
}

// Tier moves objects to a target access tier.
type Tier struct {
	store storage.Store
	opts  TierOptions
	log   *logger.Logger
}

// NewTier validates opts.Target against the store's tier set.
func NewTier(store storage.Store, opts TierOptions, log *logger.Logger) (*Tier, error) {
	if err := storage.ValidateTier(store, opts.Target); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("tier")
	}
	return &Tier{store: store, opts: opts, log: log}, nil
}

func (t *Tier) Apply(ctx context.Context, item string) (pipeline.Outcome, error) {
	target := t.opts.Target

	if t.opts.VerifyExistence {
		ok, err := t.store.Exists(ctx, item)
		if err != nil {
			return pipeline.Failed, errors.Wrapf(err, "checking existence of %s", item)
		}
		if !ok {
			t.log.Warn(fmt.Sprintf("%s does not exist", item), nil)
			return pipeline.Missing, nil
		}
	}

	var before *storage.Properties
	if t.opts.VerifyTier {
		props, err := t.store.Properties(ctx, item)
		switch {
		case storage.IsNotFound(err):
			t.log.Warn(fmt.Sprintf("%s does not exist", item), nil)
			return pipeline.Missing, nil
		case err != nil:
			t.log.WarnWithError(fmt.Sprintf("Error verifying access tier for %s", item), err, nil)
		case props.Tier == "":
			t.log.Warn(fmt.Sprintf("Error verifying access tier for %s", item), map[string]interface{}{
				"error": "no tier reported; the account may not support tiering",
			})
		case !slices.Contains(t.store.Tiers(), props.Tier):
			t.log.Warn(fmt.Sprintf("Unrecognized tier %s for %s", props.Tier, item), nil)
		default:
			before = props
			if props.Archived && props.RehydratePending {
				t.log.Info(fmt.Sprintf("Skipping %s, already rehydrating", item), nil)
				return pipeline.Skipped, nil
			}
			if props.Tier == target && !(t.opts.Force && props.TierInferred) {
				t.log.Info(fmt.Sprintf("Skipping %s, already at tier %s", item, target), nil)
				return pipeline.Skipped, nil
			}
		}
	}

	if t.opts.DryRun {
		t.log.Debug(fmt.Sprintf("Not setting %s to %s", item, target), nil)
		return pipeline.DryRun, nil
	}

	t.log.Debug(fmt.Sprintf("Setting %s to %s", item, target), nil)
	if err := t.store.SetTier(ctx, item, target); err != nil {
		switch {
		case storage.IsNotFound(err):
			t.log.Warn(fmt.Sprintf("%s does not exist", item), nil)
			return pipeline.Missing, nil
		case storage.IsRestorePending(err):
			t.log.Info(fmt.Sprintf("Skipping %s, already rehydrating", item), nil)
			return pipeline.Skipped, nil
		}
		return pipeline.Failed, errors.Wrapf(err, "setting %s to %s", item, target)
	}

	if before != nil && before.Archived && before.Tier != target {
		t.checkRehydration(ctx, item)
	}
	return pipeline.Done, nil
}

// checkRehydration confirms that a move out of the offline tier started.
func (t *Tier) checkRehydration(ctx context.Context, item string) {
	after, err := t.store.Properties(ctx, item)
	if err != nil {
		t.log.WarnWithError(fmt.Sprintf("Error checking rehydration of %s", item), err, nil)
		return
	}
	if after.Archived && after.Tier != t.opts.Target && !after.RehydratePending {
		t.log.Error(fmt.Sprintf("Blob %s not re-hydrating", item), nil)
	}
}
