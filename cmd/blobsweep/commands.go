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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"blobsweep/ops"
	"blobsweep/pipeline"
	"blobsweep/shared/logger"
	"blobsweep/storage"
)

func (a *app) tierCmd() *cobra.Command {
	var opts ops.TierOptions

	cmd := &cobra.Command{
		Use:   "tier <input-file> <tier>",
		Short: "Change the access tier of every listed object",
		Long: `Change the access tier of every object listed in <input-file>.

Tier names are case-sensitive and depend on the backend (Azure: Hot, Cool,
Cold, Archive; S3: STANDARD, STANDARD_IA, GLACIER, ...; GCS: STANDARD,
NEARLINE, COLDLINE, ARCHIVE). Objects already at the target tier are
skipped unless --verify-tier=false.

Examples:
  blobsweep tier --account camtraps --container images --sas-token-file token.txt paths.txt Cool
  blobsweep tier --backend s3 --bucket archive-2019 --dry-run paths.txt GLACIER`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			opts.Target = args[1]

			tierStore, err := a.openStore(ctx, file.Backend)
			if err != nil {
				return err
			}
			err = storage.ValidateTier(tierStore, opts.Target)
			_ = storeOperation{store: tierStore}.Close()
			if err != nil {
				return err
			}

			log := logger.New("tier")
			_, err = a.run(ctx, cmd.OutOrStdout(), file, runJob{
				operation: "tier",
				input:     args[0],
				key:       opts.Target,
				cfg:       file.PipelineConfig(),
				factory: a.operationFactory(ctx, file.Backend, func(st storage.Store) (pipeline.Operation, error) {
					return ops.NewTier(st, opts, log)
				}),
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without changing it")
	cmd.Flags().BoolVar(&opts.VerifyExistence, "verify-existence", false, "check that each object exists first")
	cmd.Flags().BoolVar(&opts.VerifyTier, "verify-tier", true, "skip objects already at the target tier")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "re-apply the tier when it is only inferred from the account default")

	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var opts ops.DeleteOptions

	cmd := &cobra.Command{
		Use:   "delete <input-file>",
		Short: "Delete every listed object",
		Long: `Delete every object listed in <input-file>.

Objects that no longer exist are reported as missing, not as failures.

Examples:
  blobsweep delete --sas-url "https://camtraps.blob.core.windows.net/images?sv=..." stale.txt
  blobsweep delete --backend gcs --bucket scratch --dry-run stale.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			log := logger.New("delete")
			_, err = a.run(ctx, cmd.OutOrStdout(), file, runJob{
				operation: "delete",
				input:     args[0],
				cfg:       file.PipelineConfig(),
				factory: a.operationFactory(ctx, file.Backend, func(st storage.Store) (pipeline.Operation, error) {
					return ops.NewDelete(st, opts, log), nil
				}),
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be deleted without deleting it")
	cmd.Flags().BoolVar(&opts.VerifyExistence, "verify-existence", false, "check that each object exists first")

	return cmd
}

// enumeratePrintEvery is the progress interval for listed names.
const enumeratePrintEvery = 10000

func (a *app) enumerateCmd() *cobra.Command {
	var (
		opts     ops.EnumerateOptions
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "enumerate <prefix-file> <output-dir>",
		Short: "List every object under each listed prefix",
		Long: `List every object under each prefix in <prefix-file>, writing one file per
prefix to <output-dir>. Each line holds an object name, optionally followed
by a tab and its size and a tab and its tier.

Prefixes are processed one per block unless --block-size is given. Listing
pages of one prefix are spaced by --page-pause; keep it above zero to stay
clear of account-level throttling.

Examples:
  blobsweep enumerate --sas-url "https://camtraps.blob.core.windows.net/images?sv=..." folders.txt out/
  blobsweep enumerate --backend s3 --bucket archive-2019 --sizes --tiers folders.txt out/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cfg := file.PipelineConfig()
			if !cmd.Flags().Changed("block-size") && a.configPath == "" {
				cfg.BlockSize = 1
			}

			log := logger.New("enumerate")
			opts.OutputDir = args[1]
			opts.Fs = a.fs
			opts.PageSize = pageSize
			opts.Progress = pipeline.NewProgress(-1, enumeratePrintEvery, log)

			_, err = a.run(ctx, cmd.OutOrStdout(), file, runJob{
				operation: "enumerate",
				input:     args[0],
				key:       opts.OutputDir,
				cfg:       cfg,
				factory: a.operationFactory(ctx, file.Backend, func(st storage.Store) (pipeline.Operation, error) {
					return ops.NewEnumerate(st, opts, log)
				}),
			})
			if err == nil {
				log.Info("Enumeration complete", map[string]interface{}{"objects": opts.Progress.Value()})
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.Sizes, "sizes", false, "append each object's size")
	cmd.Flags().BoolVar(&opts.Tiers, "tiers", false, "append each object's access tier")
	cmd.Flags().IntVar(&pageSize, "page-size", ops.DefaultPageSize, "listing page size")
	cmd.Flags().DurationVar(&opts.PagePause, "page-pause", ops.DefaultPagePause, "minimum delay between listing pages of one prefix")
	cmd.Flags().IntVar(&opts.MaxPerPrefix, "max-per-prefix", 0, "stop each prefix after this many objects (debugging)")

	return cmd
}

func (a *app) prefixesCmd() *cobra.Command {
	var opts ops.FolderOptions

	cmd := &cobra.Command{
		Use:   "prefixes <depth> <output-file>",
		Short: "List the folders at one depth, as input for enumerate",
		Long: `List the folders exactly <depth> levels below --prefix (the container root
by default) and write them to <output-file>, one per line. A depth of 1
lists root-level folders. The file is meant as the <prefix-file> of
enumerate.

Examples:
  blobsweep prefixes --sas-url "https://camtraps.blob.core.windows.net/images?sv=..." 2 folders.txt
  blobsweep enumerate --sas-url "https://camtraps.blob.core.windows.net/images?sv=..." folders.txt out/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.WithHint(errors.Newf("invalid depth %q", args[0]), "depth must be an integer >= 1")
			}
			opts.Depth = depth

			file, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := a.openStore(ctx, file.Backend)
			if err != nil {
				return errors.Wrapf(err, "opening %s store", file.Backend.Type)
			}
			defer func() { _ = storeOperation{store: st}.Close() }()

			folders, err := ops.ListFolders(ctx, st, opts, logger.New("prefixes"))
			if err != nil {
				return err
			}

			out := args[1]
			if err := a.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return errors.Wrapf(err, "creating directory for %s", out)
			}
			var b strings.Builder
			for _, f := range folders {
				b.WriteString(f)
				b.WriteByte('\n')
			}
			if err := afero.WriteFile(a.fs, out, []byte(b.String()), 0o644); err != nil {
				return errors.Wrapf(err, "writing %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d folders to %s\n", len(folders), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "folder to start from")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", ops.DefaultPageSize, "listing page size")
	cmd.Flags().DurationVar(&opts.PagePause, "page-pause", ops.DefaultPagePause, "minimum delay between listing pages")

	return cmd
}
