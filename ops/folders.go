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
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"blobsweep/shared/logger"
	"blobsweep/storage"
)

// FolderOptions controls ListFolders.
type FolderOptions struct {
	// Prefix is the folder the walk starts from; empty means the root.
	Prefix string

	// Depth counts folder levels below Prefix; 1 lists its direct children.
	Depth int

	PageSize  int
	PagePause time.Duration
}

// ListFolders returns the distinct folders exactly opts.Depth levels below
// opts.Prefix, sorted, each with a trailing "/". Folders only exist as name
// prefixes, so a folder is reported when at least one object lives below it.
// The output is meant as the prefix file of Enumerate.
func ListFolders(ctx context.Context, store storage.Store, opts FolderOptions, log *logger.Logger) ([]string, error) {
	if opts.Depth < 1 {
		return nil, errors.WithHint(errors.Newf("invalid depth %d", opts.Depth),
			"depth must be >= 1; a depth of 1 lists root-level folders")
	}
	if opts.Prefix != "" && !strings.HasSuffix(opts.Prefix, "/") {
		opts.Prefix += "/"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.New("folders")
	}

	var limiter *rate.Limiter
	if opts.PagePause > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.PagePause), 1)
	}

	start := time.Now()
	found := make(map[string]struct{})
	err := store.List(ctx, opts.Prefix, opts.PageSize, func(page []storage.ObjectInfo) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		for _, obj := range page {
			if folder, ok := folderAt(opts.Prefix, obj.Name, opts.Depth); ok {
				found[folder] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %q", opts.Prefix)
	}

	folders := slices.Sorted(maps.Keys(found))
	log.Info(fmt.Sprintf("Enumerated %d folders in %s", len(folders), time.Since(start).Round(time.Millisecond)), nil)
	return folders, nil
}

// folderAt returns the folder depth levels below prefix that contains name.
func folderAt(prefix, name string, depth int) (string, bool) {
	rel := strings.TrimPrefix(name, prefix)
	parts := strings.SplitN(rel, "/", depth+1)
	if len(parts) <= depth {
		return "", false
	}
	for _, p := range parts[:depth] {
		if p == "" {
			return "", false
		}
	}
	return prefix + strings.Join(parts[:depth], "/") + "/", true
}
