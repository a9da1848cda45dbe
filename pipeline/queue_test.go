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

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(ctx, Block{Seq: i}))
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.HighWater())
	q.Close()

	for i := 0; i < 3; i++ {
		b, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, i, b.Seq)
		q.Done()
	}
	_, ok := q.Pop(ctx)
	assert.False(t, ok, "closed and drained queue must report false")
	require.NoError(t, q.Join(ctx))
}

func TestQueuePushBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Push(context.Background(), Block{Seq: 0}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, Block{Seq: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())
	assert.LessOrEqual(t, q.HighWater(), q.Cap())
}

func TestQueueJoinWaitsForDone(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2)
	require.NoError(t, q.Push(ctx, Block{Seq: 0}))

	joined := make(chan error, 1)
	go func() { joined <- q.Join(ctx) }()

	_, ok := q.Pop(ctx)
	require.True(t, ok)

	select {
	case <-joined:
		t.Fatal("Join returned before the popped block was marked done")
	case <-time.After(20 * time.Millisecond):
	}

	q.Done()
	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Join did not return after Done")
	}
}

func TestQueueJoinCancelled(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Push(context.Background(), Block{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Join(ctx), context.Canceled)
}

func TestQueueDrain(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(4)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(ctx, Block{Seq: i}))
	}
	q.Close()
	q.Close()

	assert.Equal(t, 3, q.Drain())
	require.NoError(t, q.Join(ctx))
}

func TestNewQueueMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewQueue(0).Cap())
	assert.Equal(t, 1, NewQueue(-5).Cap())
}
