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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobsweep/checkpoint"
	"blobsweep/storage/memstore"
)

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestApp(t *testing.T, names ...string) *app {
	t.Helper()
	a := newApp(afero.NewMemMapFs())
	for i, n := range names {
		a.memory.Put(n, memstore.Object{Tier: "Hot", Size: int64(i)})
	}
	require.NoError(t, afero.WriteFile(a.fs, "/paths.txt", []byte(strings.Join(names, "\n")+"\n"), 0o644))
	return a
}

var memoryFlags = []string{"--backend", "memory", "--workers", "3", "--block-size", "2", "--pause", "0"}

func memoryArgs(extra ...string) []string {
	return append(append([]string{}, memoryFlags...), extra...)
}

func TestTierCommand(t *testing.T) {
	a := newTestApp(t, "a.jpg", "b.jpg", "c.jpg")
	a.memory.Put("b.jpg", memstore.Object{Tier: "Cool"})

	out, err := execute(t, a, append([]string{"tier"}, memoryArgs("/paths.txt", "Cool")...)...)
	require.NoError(t, err)

	for _, n := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		obj, ok := a.memory.Get(n)
		require.True(t, ok)
		assert.Equal(t, "Cool", obj.Tier, n)
	}
	assert.Contains(t, out, "done 2, skipped 1, missing 0, dry run 0, failed 0")
	assert.Contains(t, out, "Skipping b.jpg, already at tier Cool")
}

func TestTierCommandInvalidTier(t *testing.T) {
	a := newTestApp(t, "a.jpg")

	_, err := execute(t, a, append([]string{"tier"}, memoryArgs("/paths.txt", "cool")...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tier "cool"`)
	assert.Equal(t, int64(0), a.memory.Calls("SetTier"))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Hint: valid values are")
}

func TestMissingInputFile(t *testing.T) {
	a := newTestApp(t, "a.jpg")

	_, err := execute(t, a, append([]string{"delete"}, memoryArgs("/nope.txt")...)...)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, a.memory.Len())
}

func TestDeleteDryRun(t *testing.T) {
	a := newTestApp(t, "a", "b")

	out, err := execute(t, a, append([]string{"delete", "--dry-run"}, memoryArgs("/paths.txt")...)...)
	require.NoError(t, err)
	assert.Equal(t, 2, a.memory.Len())
	assert.Contains(t, out, "dry run 2")
}

func TestDeleteReportsFailures(t *testing.T) {
	a := newTestApp(t, "a", "b", "c", "d")
	a.memory.FailOn("c", errors.New("lease held"))

	out, err := execute(t, a, append([]string{"delete", "--failures-file", "/failed.txt"}, memoryArgs("/paths.txt")...)...)
	require.NoError(t, err, "item failures must not fail the command")

	assert.Equal(t, 1, a.memory.Len())
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "Failed items:")

	data, err := afero.ReadFile(a.fs, "/failed.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "c\t"))
	assert.Contains(t, string(data), "lease held")
}

func TestEnumerateCommand(t *testing.T) {
	a := newTestApp(t, "cam1/x.jpg", "cam1/y.jpg", "cam2/z.jpg")
	require.NoError(t, afero.WriteFile(a.fs, "/prefixes.txt", []byte("cam1/\ncam2/\n"), 0o644))

	_, err := execute(t, a, "enumerate", "--backend", "memory", "--sizes", "--tiers", "/prefixes.txt", "/out")
	require.NoError(t, err)

	data, err := afero.ReadFile(a.fs, "/out/cam1")
	require.NoError(t, err)
	assert.Equal(t, "cam1/x.jpg\t0\tHot\ncam1/y.jpg\t1\tHot\n", string(data))

	data, err = afero.ReadFile(a.fs, "/out/cam2")
	require.NoError(t, err)
	assert.Equal(t, "cam2/z.jpg\t2\tHot\n", string(data))
}

func TestPrefixesFeedsEnumerate(t *testing.T) {
	a := newTestApp(t, "site/cam1/x.jpg", "site/cam2/y.jpg", "site/notes.txt", "top.txt")

	out, err := execute(t, a, "prefixes", "--backend", "memory", "--page-pause", "0", "2", "/lists/folders.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 folders to /lists/folders.txt")

	data, err := afero.ReadFile(a.fs, "/lists/folders.txt")
	require.NoError(t, err)
	assert.Equal(t, "site/cam1/\nsite/cam2/\n", string(data))

	_, err = execute(t, a, "enumerate", "--backend", "memory", "/lists/folders.txt", "/out")
	require.NoError(t, err)
	data, err = afero.ReadFile(a.fs, "/out/sitecam2")
	require.NoError(t, err)
	assert.Equal(t, "site/cam2/y.jpg\n", string(data))
}

func TestPrefixesRejectsDepth(t *testing.T) {
	a := newTestApp(t, "a/b")

	_, err := execute(t, a, "prefixes", "--backend", "memory", "zero", "/f.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid depth "zero"`)

	_, err = execute(t, a, "prefixes", "--backend", "memory", "0", "/f.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid depth 0")
}

func TestResumeFromCheckpoint(t *testing.T) {
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("obj-%d", i)
	}
	a := newTestApp(t, names...)

	store, err := checkpoint.NewFileStore(a.fs, "/cp")
	require.NoError(t, err)
	key := checkpointKey(runJob{operation: "delete", input: "/paths.txt"})
	require.NoError(t, store.Save(context.Background(), key, 6))

	_, err = execute(t, a, append([]string{"delete", "--checkpoint-dir", "/cp", "--resume"}, memoryArgs("/paths.txt")...)...)
	require.NoError(t, err)

	assert.Equal(t, 6, a.memory.Len())
	_, kept := a.memory.Get("obj-5")
	assert.True(t, kept)

	line, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 10, line)
}

func TestConfigFile(t *testing.T) {
	a := newTestApp(t, "a", "b", "c")
	require.NoError(t, afero.WriteFile(a.fs, "/blobsweep.yaml", []byte(`
backend:
  type: memory
pipeline:
  workers: 2
  block_size: 1
  pause: 0s
`), 0o644))

	out, err := execute(t, a, "tier", "--config", "/blobsweep.yaml", "--dry-run", "/paths.txt", "Archive")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run 3")
	assert.Equal(t, int64(0), a.memory.Calls("SetTier"))
}

func TestResumeRequiresCheckpointStore(t *testing.T) {
	a := newTestApp(t, "a")

	_, err := execute(t, a, append([]string{"delete", "--resume"}, memoryArgs("/paths.txt")...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resume requested without a checkpoint store")
}

func TestPauseFlagKeepsSubMillisecondValues(t *testing.T) {
	a := newApp(afero.NewMemMapFs())
	sub, _, err := a.rootCmd().Find([]string{"delete"})
	require.NoError(t, err)
	require.NoError(t, sub.ParseFlags([]string{"--backend", "memory", "--pause", "500us"}))

	file, err := a.loadConfig(sub)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Microsecond, file.PipelineConfig().Pause)
}
