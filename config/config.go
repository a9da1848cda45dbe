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

package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"blobsweep/pipeline"
	"blobsweep/storage/azureblob"
	"blobsweep/storage/gcs"
	"blobsweep/storage/s3"
)

// Backend names.
const (
	BackendAzure  = "azure"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// File represents the root structure of a configuration file
type File struct {
	Version    string           `yaml:"version"`
	Backend    BackendConfig    `yaml:"backend"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Checkpoint CheckpointConfig `yaml:"checkpoint,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
}

// BackendConfig selects and configures the remote object store.
type BackendConfig struct {
	Type  string      `yaml:"type"`
	Azure AzureConfig `yaml:"azure,omitempty"`
	S3    S3Config    `yaml:"s3,omitempty"`
	GCS   GCSConfig   `yaml:"gcs,omitempty"`
}

type AzureConfig struct {
	Account            string `yaml:"account,omitempty"`
	Container          string `yaml:"container,omitempty"`
	ServiceURL         string `yaml:"service_url,omitempty"`
	SASURL             string `yaml:"sas_url,omitempty"`
	SASToken           string `yaml:"sas_token,omitempty"`
	SASTokenFile       string `yaml:"sas_token_file,omitempty"`
	ConnectionString   string `yaml:"connection_string,omitempty"`
	AccountKey         string `yaml:"account_key,omitempty"`
	DefaultCredentials bool   `yaml:"default_credentials,omitempty"`
	MaxRetries         int    `yaml:"max_retries,omitempty"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	Anonymous       bool   `yaml:"anonymous,omitempty"`
}

// PipelineConfig mirrors pipeline.Config. Pause takes a Go duration string
// such as "1ms" or "500us".
type PipelineConfig struct {
	Workers        int            `yaml:"workers,omitempty"`
	Mode           string         `yaml:"mode,omitempty"`
	BlockSize      int            `yaml:"block_size,omitempty"`
	QueueSize      int            `yaml:"queue_size,omitempty"`
	Skip           int            `yaml:"skip,omitempty"`
	MaxItems       int            `yaml:"max_items,omitempty"`
	PrintEvery     int64          `yaml:"print_every,omitempty"`
	Total          int64          `yaml:"total,omitempty"`
	Pause          *time.Duration `yaml:"pause,omitempty"`
	CountCompleted bool           `yaml:"count_completed,omitempty"`
}

// CheckpointConfig selects where resume lines are stored. Redis wins when
// both are set.
type CheckpointConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	TTLHours      int    `yaml:"ttl_hours,omitempty"`
	Resume        bool   `yaml:"resume,omitempty"`
}

type LoggingConfig struct {
	JSON    bool `yaml:"json,omitempty"`
	Verbose bool `yaml:"verbose,omitempty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	d := pipeline.DefaultConfig()
	pause := d.Pause
	return &File{
		Version: "1",
		Backend: BackendConfig{Type: BackendAzure},
		Pipeline: PipelineConfig{
			Workers:    d.Workers,
			Mode:       string(d.Mode),
			BlockSize:  d.BlockSize,
			PrintEvery: d.PrintEvery,
			Total:      d.Total,
			Pause:      &pause,
		},
	}
}

// Load reads path from fs, expands environment references and fills
// unset values from Default.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	f := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	f.applyDefaults()

	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return f, nil
}

// applyDefaults restores defaults for keys a file set to zero values.
func (f *File) applyDefaults() {
	d := Default()
	if f.Version == "" {
		f.Version = d.Version
	}
	if f.Backend.Type == "" {
		f.Backend.Type = d.Backend.Type
	}
	p := &f.Pipeline
	if p.Workers == 0 {
		p.Workers = d.Pipeline.Workers
	}
	if p.Mode == "" {
		p.Mode = d.Pipeline.Mode
	}
	if p.BlockSize == 0 {
		p.BlockSize = d.Pipeline.BlockSize
	}
	if p.PrintEvery == 0 {
		p.PrintEvery = d.Pipeline.PrintEvery
	}
	if p.Total == 0 {
		p.Total = d.Pipeline.Total
	}
	if p.Pause == nil {
		p.Pause = d.Pipeline.Pause
	}
}

// Validate checks the backend and pipeline sections.
func (f *File) Validate() error {
	switch f.Backend.Type {
	case BackendAzure:
		a := f.Backend.Azure
		if a.SASURL == "" && a.ConnectionString == "" && a.Account == "" {
			return errors.WithHint(errors.New("azure backend needs an account"),
				"set backend.azure.account, backend.azure.sas_url or backend.azure.connection_string")
		}
		if a.SASURL == "" && a.Container == "" {
			return errors.New("azure backend needs a container")
		}
	case BackendS3:
		if f.Backend.S3.Bucket == "" {
			return errors.New("s3 backend needs a bucket")
		}
	case BackendGCS:
		if f.Backend.GCS.Bucket == "" {
			return errors.New("gcs backend needs a bucket")
		}
	case BackendMemory:
	default:
		return errors.WithHintf(errors.Newf("unknown backend %q", f.Backend.Type),
			"valid backends are %s, %s, %s and %s", BackendAzure, BackendS3, BackendGCS, BackendMemory)
	}

	if f.Pipeline.Pause != nil && *f.Pipeline.Pause < 0 {
		return errors.New("pipeline.pause cannot be negative")
	}
	if f.Checkpoint.Resume && f.Checkpoint.Dir == "" && f.Checkpoint.RedisAddr == "" {
		return errors.WithHint(errors.New("resume requested without a checkpoint store"),
			"set checkpoint.dir or checkpoint.redis_addr")
	}
	return f.PipelineConfig().Validate()
}

// PipelineConfig converts the pipeline section.
func (f *File) PipelineConfig() pipeline.Config {
	p := f.Pipeline
	cfg := pipeline.Config{
		Workers:        p.Workers,
		Mode:           pipeline.Mode(p.Mode),
		BlockSize:      p.BlockSize,
		QueueCapacity:  p.QueueSize,
		SkipLines:      p.Skip,
		MaxItems:       p.MaxItems,
		PrintEvery:     p.PrintEvery,
		Total:          p.Total,
		CountCompleted: p.CountCompleted,
		Resume:         f.Checkpoint.Resume,
	}
	if p.Pause != nil {
		cfg.Pause = *p.Pause
	}
	return cfg
}

func (a AzureConfig) StoreConfig() azureblob.Config {
	return azureblob.Config{
		AccountName:          a.Account,
		Container:            a.Container,
		ServiceURL:           a.ServiceURL,
		ContainerSASURL:      a.SASURL,
		SASToken:             a.SASToken,
		SASTokenFile:         a.SASTokenFile,
		ConnectionString:     a.ConnectionString,
		AccountKey:           a.AccountKey,
		UseDefaultCredential: a.DefaultCredentials,
		MaxRetries:           a.MaxRetries,
	}
}

func (c S3Config) StoreConfig() s3.Config {
	return s3.Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		ForcePathStyle:  c.ForcePathStyle,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
}

func (c GCSConfig) StoreConfig() gcs.Config {
	return gcs.Config{
		Bucket:          c.Bucket,
		CredentialsFile: c.CredentialsFile,
		Endpoint:        c.Endpoint,
		Anonymous:       c.Anonymous,
	}
}

// TTL returns the checkpoint expiry; 0 keeps checkpoints forever.
func (c CheckpointConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR}, ${VAR:-default} and $VAR references.
// Undefined variables without a default expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		def := ""
		if idx := strings.Index(name, ":-"); idx != -1 {
			def = name[idx+2:]
			name = name[:idx]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return def
	})
}
