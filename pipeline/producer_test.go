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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"blobsweep/shared/logger"
)

// collect runs p over input and returns every pushed Block.
func collect(t *testing.T, p *Producer, input string) ([]Block, int) {
	t.Helper()
	q := NewQueue(64)
	n, err := p.Run(context.Background(), strings.NewReader(input), q)
	require.NoError(t, err)

	var blocks []Block
	for {
		b, ok := q.Pop(context.Background())
		if !ok {
			break
		}
		blocks = append(blocks, b)
		q.Done()
	}
	return blocks, n
}

func sizes(blocks []Block) []int {
	out := make([]int, len(blocks))
	for i, b := range blocks {
		out[i] = len(b.Items)
	}
	return out
}

func TestProducerBlocks(t *testing.T) {
	blocks, n := collect(t, &Producer{BlockSize: 2}, "a\nb\nc\nd\ne\n")

	assert.Equal(t, 5, n)
	assert.Equal(t, []int{2, 2, 1}, sizes(blocks))
	assert.Equal(t, []string{"a", "b"}, blocks[0].Items)
	assert.Equal(t, []string{"e"}, blocks[2].Items)
	for i, b := range blocks {
		assert.Equal(t, i, b.Seq)
	}
	assert.Equal(t, 2, blocks[0].EndLine)
	assert.Equal(t, 5, blocks[2].EndLine)
}

func TestProducerEmptyFinalBlock(t *testing.T) {
	blocks, n := collect(t, &Producer{BlockSize: 2}, "a\nb\nc\nd\n")

	assert.Equal(t, 4, n)
	assert.Equal(t, []int{2, 2, 0}, sizes(blocks))
}

func TestProducerEmptyInput(t *testing.T) {
	blocks, n := collect(t, &Producer{BlockSize: 3}, "")

	assert.Equal(t, 0, n)
	assert.Equal(t, []int{0}, sizes(blocks))
}

func TestProducerTrimsAndDropsBlankLines(t *testing.T) {
	blocks, n := collect(t, &Producer{BlockSize: 10}, "  a  \n\n\t\nb\r\n   \nc")

	assert.Equal(t, 3, n)
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"a", "b", "c"}, blocks[0].Items)
}

func TestProducerSkipCountsRawLines(t *testing.T) {
	// The skipped region includes the blank line.
	blocks, n := collect(t, &Producer{BlockSize: 10, SkipLines: 3}, "a\n\nb\nc\nd\n")

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"c", "d"}, blocks[0].Items)
}

func TestProducerSkipPastEnd(t *testing.T) {
	blocks, n := collect(t, &Producer{BlockSize: 10, SkipLines: 100}, "a\nb\n")

	assert.Equal(t, 0, n)
	assert.Equal(t, []int{0}, sizes(blocks))
}

func TestProducerMaxItems(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := &Producer{BlockSize: 2, MaxItems: 3, Logger: logger.NewWithCore("test", core)}

	blocks, n := collect(t, p, "a\nb\nc\nd\ne\n")

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{2, 1}, sizes(blocks))
	assert.Equal(t, 3, blocks[1].EndLine, "resume line must point at the first unconsumed item")
	assert.Equal(t, 1, logs.FilterMessage("Hit debug path limit").Len())
}

func TestProducerProgressIncludesFinalBlock(t *testing.T) {
	progress := NewProgress(-1, 1000, nil)
	_, n := collect(t, &Producer{BlockSize: 2, Progress: progress}, "a\nb\nc\n")

	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), progress.Value())
}

func TestProducerLogsTermination(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := &Producer{BlockSize: 2, Logger: logger.NewWithCore("test", core)}

	collect(t, p, "a\nb\nc\n")

	assert.Equal(t, 1, logs.FilterMessage("Queuing 2 paths").Len())
	assert.Equal(t, 1, logs.FilterMessage("Queuing 1 paths at termination").Len())
	assert.Equal(t, 1, logs.FilterMessage("Finished file processing").Len())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestProducerReadErrorClosesQueue(t *testing.T) {
	q := NewQueue(4)
	_, err := (&Producer{BlockSize: 2}).Run(context.Background(), failingReader{}, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")

	_, ok := q.Pop(context.Background())
	assert.False(t, ok)
}

func TestProducerCancelled(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Producer{BlockSize: 1}).Run(ctx, strings.NewReader("a\nb\nc\n"), q)
	assert.ErrorIs(t, err, context.Canceled)
}
