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

package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// FileStore keeps one small text file per key under a directory.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating checkpoint directory %s", dir)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, SafeKey(key)+".checkpoint")
}

func (s *FileStore) Load(_ context.Context, key string) (int, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "reading checkpoint %s", key)
	}
	line, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrapf(err, "parsing checkpoint %s", key)
	}
	return line, nil
}

// Save writes to a temporary file and renames it over the previous value.
func (s *FileStore) Save(_ context.Context, key string, line int) error {
	final := s.path(key)
	tmp := final + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(strconv.Itoa(line)+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "writing checkpoint %s", key)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		return errors.Wrapf(err, "committing checkpoint %s", key)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
