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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/storage"
	"blobsweep/storage/memstore"
)

func newTier(t *testing.T, store *memstore.Store, opts TierOptions) (*Tier, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	op, err := NewTier(store, opts, logger.NewWithCore("tier", core))
	require.NoError(t, err)
	return op, logs
}

func TestNewTierRejectsUnknownTier(t *testing.T) {
	_, err := NewTier(memstore.New(), TierOptions{Target: "hot"}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tier "hot"`)
}

func TestTierSetsTarget(t *testing.T) {
	store := memstore.New()
	store.Put("a.jpg", memstore.Object{Tier: "Hot"})
	op, _ := newTier(t, store, TierOptions{Target: "Cool", VerifyTier: true})

	outcome, err := op.Apply(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Done, outcome)

	obj, _ := store.Get("a.jpg")
	assert.Equal(t, "Cool", obj.Tier)
}

func TestTierIsIdempotent(t *testing.T) {
	store := memstore.New()
	store.Put("a.jpg", memstore.Object{Tier: "Hot"})
	op, logs := newTier(t, store, TierOptions{Target: "Cool", VerifyTier: true})
	ctx := context.Background()

	outcome, err := op.Apply(ctx, "a.jpg")
	require.NoError(t, err)
	require.Equal(t, pipeline.Done, outcome)

	outcome, err = op.Apply(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Skipped, outcome)
	assert.Equal(t, int64(1), store.Calls("SetTier"))
	assert.Equal(t, 1, logs.FilterMessage("Skipping a.jpg, already at tier Cool").Len())
}

func TestTierForceOnlyAppliesToInferredTier(t *testing.T) {
	store := memstore.New()
	store.Put("inferred", memstore.Object{Tier: "Hot", TierInferred: true})
	store.Put("explicit", memstore.Object{Tier: "Hot"})
	op, _ := newTier(t, store, TierOptions{Target: "Hot", VerifyTier: true, Force: true})
	ctx := context.Background()

	outcome, err := op.Apply(ctx, "inferred")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Done, outcome)

	outcome, err = op.Apply(ctx, "explicit")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Skipped, outcome)

	assert.Equal(t, int64(1), store.Calls("SetTier"))
	obj, _ := store.Get("inferred")
	assert.False(t, obj.TierInferred)
}

func TestTierWithoutVerificationAlwaysSets(t *testing.T) {
	store := memstore.New()
	store.Put("a", memstore.Object{Tier: "Cool"})
	op, _ := newTier(t, store, TierOptions{Target: "Cool"})

	outcome, err := op.Apply(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Done, outcome)
	assert.Equal(t, int64(0), store.Calls("Properties"))
	assert.Equal(t, int64(1), store.Calls("SetTier"))
}

func TestTierMissing(t *testing.T) {
	ctx := context.Background()

	t.Run("verify existence", func(t *testing.T) {
		store := memstore.New()
		op, logs := newTier(t, store, TierOptions{Target: "Cool", VerifyExistence: true, VerifyTier: true})

		outcome, err := op.Apply(ctx, "ghost")
		require.NoError(t, err)
		assert.Equal(t, pipeline.Missing, outcome)
		assert.Equal(t, int64(0), store.Calls("Properties"))
		assert.Equal(t, 1, logs.FilterMessage("ghost does not exist").Len())
	})

	t.Run("set tier reports not found", func(t *testing.T) {
		store := memstore.New()
		op, _ := newTier(t, store, TierOptions{Target: "Cool"})

		outcome, err := op.Apply(ctx, "ghost")
		require.NoError(t, err)
		assert.Equal(t, pipeline.Missing, outcome)
	})
}

func TestTierVerificationErrorStillSets(t *testing.T) {
	store := memstore.New()
	store.Put("a", memstore.Object{})
	op, logs := newTier(t, store, TierOptions{Target: "Cool", VerifyTier: true})

	outcome, err := op.Apply(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Done, outcome)
	assert.Equal(t, 1, logs.FilterMessage("Error verifying access tier for a").Len())
}

func TestTierDryRun(t *testing.T) {
	store := memstore.New()
	store.Put("a", memstore.Object{Tier: "Hot"})
	op, _ := newTier(t, store, TierOptions{Target: "Cool", VerifyTier: true, DryRun: true})

	outcome, err := op.Apply(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, pipeline.DryRun, outcome)
	assert.Equal(t, int64(0), store.Calls("SetTier"))
}

func TestTierFailure(t *testing.T) {
	store := memstore.New()
	store.Put("a", memstore.Object{Tier: "Hot"})
	store.FailOn("a", errors.New("server busy"))
	op, _ := newTier(t, store, TierOptions{Target: "Cool"})

	outcome, err := op.Apply(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, pipeline.Failed, outcome)
	assert.Contains(t, err.Error(), "server busy")
}

func TestTierRehydration(t *testing.T) {
	store := memstore.New()
	store.Put("cold.tif", memstore.Object{Tier: "Archive"})
	op, logs := newTier(t, store, TierOptions{Target: "Hot", VerifyTier: true})
	ctx := context.Background()

	outcome, err := op.Apply(ctx, "cold.tif")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Done, outcome)
	assert.Zero(t, logs.FilterMessage("Blob cold.tif not re-hydrating").Len())

	obj, _ := store.Get("cold.tif")
	assert.True(t, obj.Rehydrating)

	outcome, err = op.Apply(ctx, "cold.tif")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Skipped, outcome, "a pending rehydration must not be re-issued")
	assert.Equal(t, int64(1), store.Calls("SetTier"))
}

func TestTierRestorePendingIsSkipped(t *testing.T) {
	store := memstore.New()
	store.Put("deep.tif", memstore.Object{Tier: "Archive"})
	store.FailOn("deep.tif", storage.ErrRestorePending)
	op, logs := newTier(t, store, TierOptions{Target: "Hot"})

	outcome, err := op.Apply(context.Background(), "deep.tif")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Skipped, outcome)
	assert.Equal(t, 1, logs.FilterMessage("Skipping deep.tif, already rehydrating").Len())
}
