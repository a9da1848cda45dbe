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
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"blobsweep/config"
	"blobsweep/shared/logger"
	"blobsweep/storage/memstore"
)

// app carries the state shared by every subcommand.
type app struct {
	fs afero.Fs

	// memory backs --backend memory; every worker sees the same objects.
	memory *memstore.Store

	configPath string
	flags      flagValues
}

// flagValues holds the persistent flags. They only override the config
// file when set explicitly.
type flagValues struct {
	backend          string
	account          string
	container        string
	sasURL           string
	sasTokenFile     string
	connectionString string
	accountKey       string
	defaultCreds     bool
	bucket           string
	region           string
	endpoint         string
	credentialsFile  string

	workers        int
	shared         bool
	blockSize      int
	queueSize      int
	skip           int
	maxItems       int
	printEvery     int64
	total          int64
	pause          time.Duration
	countCompleted bool

	verbose  bool
	jsonLogs bool

	checkpointDir   string
	checkpointRedis string
	resume          bool
	failuresFile    string
	metricsAddr     string
}

func newApp(fs afero.Fs) *app {
	return &app{fs: fs, memory: memstore.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blobsweep",
		Short: "Bulk object-storage operations driven by a list of paths",
		Long: `blobsweep reads a newline-delimited list of object paths and applies one
operation to each of them in parallel: change the access tier, delete, or
enumerate everything under a prefix. The prefixes command prepares the
prefix list for enumerate.

Individual failures are logged and summarized at the end of the run; they
do not make the command fail.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := &a.flags
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")

	pf.StringVar(&f.backend, "backend", config.BackendAzure, "object store: azure, s3, gcs or memory")
	pf.StringVar(&f.account, "account", "", "Azure storage account name")
	pf.StringVar(&f.container, "container", "", "Azure container name")
	pf.StringVar(&f.sasURL, "sas-url", "", "Azure container URL including a SAS token")
	pf.StringVar(&f.sasTokenFile, "sas-token-file", "", "file whose second line holds an Azure SAS token")
	pf.StringVar(&f.connectionString, "connection-string", "", "Azure storage connection string")
	pf.StringVar(&f.accountKey, "account-key", "", "Azure storage account key")
	pf.BoolVar(&f.defaultCreds, "default-credentials", false, "use the Azure default credential chain")
	pf.StringVar(&f.bucket, "bucket", "", "S3 or GCS bucket")
	pf.StringVar(&f.region, "region", "", "S3 region")
	pf.StringVar(&f.endpoint, "endpoint", "", "S3 or GCS endpoint override")
	pf.StringVar(&f.credentialsFile, "credentials-file", "", "GCS service account key file")

	pf.IntVar(&f.workers, "workers", 0, "number of workers (default 100)")
	pf.BoolVar(&f.shared, "shared", false, "share one client across workers instead of one per worker")
	pf.IntVar(&f.blockSize, "block-size", 0, "items per queued block (default 500)")
	pf.IntVar(&f.queueSize, "queue-size", 0, "queue capacity in blocks (default workers*4)")
	pf.IntVar(&f.skip, "skip", 0, "input lines to skip")
	pf.IntVar(&f.maxItems, "max-items", 0, "stop after this many items (debugging)")
	pf.Int64Var(&f.printEvery, "print-every", 0, "items between progress lines (default 5000)")
	pf.Int64Var(&f.total, "total", 0, "expected item count shown in progress lines")
	pf.DurationVar(&f.pause, "pause", 0, "minimum delay between requests of one worker (default 1ms)")
	pf.BoolVar(&f.countCompleted, "count-completed", false, "count progress when items finish instead of when they are queued")

	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log every request")
	pf.BoolVar(&f.jsonLogs, "json-logs", false, "write JSON log entries")

	pf.StringVar(&f.checkpointDir, "checkpoint-dir", "", "directory for resume checkpoints")
	pf.StringVar(&f.checkpointRedis, "checkpoint-redis", "", "Redis address for resume checkpoints")
	pf.BoolVar(&f.resume, "resume", false, "continue from the last checkpoint")
	pf.StringVar(&f.failuresFile, "failures-file", "", "write failed items to this file")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")

	root.AddCommand(a.tierCmd())
	root.AddCommand(a.deleteCmd())
	root.AddCommand(a.enumerateCmd())
	root.AddCommand(a.prefixesCmd())
	return root
}

// loadConfig reads --config when given and applies explicitly set flags.
func (a *app) loadConfig(cmd *cobra.Command) (*config.File, error) {
	file := config.Default()
	if a.configPath != "" {
		var err error
		if file, err = config.Load(a.fs, a.configPath); err != nil {
			return nil, err
		}
	}

	f := a.flags
	set := cmd.Flags().Changed
	str := func(name string, dst *string, v string) {
		if set(name) {
			*dst = v
		}
	}

	b := &file.Backend
	str("backend", &b.Type, f.backend)
	str("account", &b.Azure.Account, f.account)
	str("container", &b.Azure.Container, f.container)
	str("sas-url", &b.Azure.SASURL, f.sasURL)
	str("sas-token-file", &b.Azure.SASTokenFile, f.sasTokenFile)
	str("connection-string", &b.Azure.ConnectionString, f.connectionString)
	str("account-key", &b.Azure.AccountKey, f.accountKey)
	if set("default-credentials") {
		b.Azure.DefaultCredentials = f.defaultCreds
	}
	str("bucket", &b.S3.Bucket, f.bucket)
	str("bucket", &b.GCS.Bucket, f.bucket)
	str("region", &b.S3.Region, f.region)
	str("endpoint", &b.S3.Endpoint, f.endpoint)
	str("endpoint", &b.GCS.Endpoint, f.endpoint)
	str("credentials-file", &b.GCS.CredentialsFile, f.credentialsFile)

	p := &file.Pipeline
	if set("workers") {
		p.Workers = f.workers
	}
	if set("shared") {
		p.Mode = "isolated"
		if f.shared {
			p.Mode = "shared"
		}
	}
	if set("block-size") {
		p.BlockSize = f.blockSize
	}
	if set("queue-size") {
		p.QueueSize = f.queueSize
	}
	if set("skip") {
		p.Skip = f.skip
	}
	if set("max-items") {
		p.MaxItems = f.maxItems
	}
	if set("print-every") {
		p.PrintEvery = f.printEvery
	}
	if set("total") {
		p.Total = f.total
	}
	if set("pause") {
		pause := f.pause
		p.Pause = &pause
	}
	if set("count-completed") {
		p.CountCompleted = f.countCompleted
	}

	if set("verbose") {
		file.Logging.Verbose = f.verbose
	}
	if set("json-logs") {
		file.Logging.JSON = f.jsonLogs
	}

	c := &file.Checkpoint
	str("checkpoint-dir", &c.Dir, f.checkpointDir)
	str("checkpoint-redis", &c.RedisAddr, f.checkpointRedis)
	if set("resume") {
		c.Resume = f.resume
	}
	str("metrics-addr", &file.Metrics.Addr, f.metricsAddr)

	if err := file.Validate(); err != nil {
		return nil, err
	}

	logger.Configure(logger.Options{
		JSON:    file.Logging.JSON,
		Verbose: file.Logging.Verbose,
		Output:  cmd.OutOrStdout(),
	})
	return file, nil
}
