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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"blobsweep/shared/logger"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Producer turns a newline-delimited list of items into Blocks.
type Producer struct {
	BlockSize int
	SkipLines int // raw input lines to skip, blank ones included
	MaxItems  int // stop after this many items; <= 0 disables

	// Progress, when set, is incremented by each Block's size right
	// before the Block is pushed.
	Progress *Progress
	Logger   *logger.Logger
}

// Run reads r to the end (or MaxItems), pushes full Blocks onto q and then
// one final, possibly empty, Block. It closes q when it returns, whatever
// the outcome, and reports the number of items queued.
func (p *Producer) Run(ctx context.Context, r io.Reader, q *Queue) (int, error) {
	defer q.Close()

	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}
	blockSize := p.BlockSize
	if blockSize < 1 {
		blockSize = DefaultBlockSize
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		queued  int
		seq     int
		line    int
		current = make([]string, 0, blockSize)
	)

	push := func(endLine int) error {
		b := Block{Seq: seq, Items: current, EndLine: endLine}
		if p.Progress != nil {
			p.Progress.Increment(len(b.Items))
		}
		if err := q.Push(ctx, b); err != nil {
			return err
		}
		queued += len(b.Items)
		seq++
		current = make([]string, 0, blockSize)
		return nil
	}

	for scanner.Scan() {
		i := line
		line++
		if i < p.SkipLines {
			continue
		}

		item := strings.TrimSpace(scanner.Text())
		if item == "" {
			continue
		}

		if p.MaxItems > 0 && queued+len(current) >= p.MaxItems {
			log.Info("Hit debug path limit", map[string]interface{}{"max_items": p.MaxItems})
			line = i
			break
		}

		current = append(current, item)
		if len(current) == blockSize {
			log.Debug(fmt.Sprintf("Queuing %d paths", len(current)), nil)
			if err := push(line); err != nil {
				return queued, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return queued, errors.Wrap(err, "reading input")
	}

	log.Info(fmt.Sprintf("Queuing %d paths at termination", len(current)), nil)
	if err := push(line); err != nil {
		return queued, err
	}

	log.Info("Finished file processing", map[string]interface{}{"items": queued, "blocks": seq})
	return queued, nil
}
