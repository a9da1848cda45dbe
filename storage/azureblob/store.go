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

// Package azureblob provides the Azure Blob Storage backend for blobsweep.
// It implements storage.Store for a single container, authenticating with a
// container SAS URL, a SAS token, a connection string, an account key or
// Azure AD (DefaultAzureCredential).
package azureblob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/cockroachdb/errors"

	"blobsweep/storage"
)

const storeName = "azureblob"

// Tiers are case-sensitive; the service expects this case.
var Tiers = []string{
	string(blob.AccessTierHot),
	string(blob.AccessTierCool),
	string(blob.AccessTierCold),
	string(blob.AccessTierArchive),
}

// Config selects the container and the authentication method. The first
// non-empty credential in field order wins.
type Config struct {
	AccountName string
	Container   string
	// ServiceURL overrides https://<account>.blob.core.windows.net (Azurite).
	ServiceURL string

	ContainerSASURL      string // full container URL including the SAS query
	SASToken             string // "?sv=..." appended to the container URL
	SASTokenFile         string // second line holds a read/write SAS token
	ConnectionString     string
	AccountKey           string
	UseDefaultCredential bool

	// MaxRetries overrides the SDK retry count; 0 keeps the default and a
	// negative value disables retries.
	MaxRetries int
}

// Store is the Azure Blob implementation of storage.Store
type Store struct {
	client    *container.Client
	account   string
	container string
}

// New creates a container client from cfg. No request is issued.
func New(cfg Config) (*Store, error) {
	var (
		cc   *container.Client
		err  error
		opts = cfg.clientOptions()
	)

	if cfg.SASTokenFile != "" && cfg.SASToken == "" {
		cfg.SASToken, err = ReadSASTokenFile(cfg.SASTokenFile)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case cfg.ContainerSASURL != "":
		cc, err = container.NewClientWithNoCredential(cfg.ContainerSASURL, opts)
		if err == nil {
			parts, perr := azblob.ParseURL(cfg.ContainerSASURL)
			if perr != nil {
				return nil, storage.NewStoreError(storeName, "Connect", "", perr)
			}
			cfg.Container = parts.ContainerName
			if cfg.AccountName == "" {
				cfg.AccountName = strings.SplitN(parts.Host, ".", 2)[0]
			}
		}
	case cfg.SASToken != "":
		if !strings.HasPrefix(cfg.SASToken, "?") {
			cfg.SASToken = "?" + cfg.SASToken
		}
		cc, err = container.NewClientWithNoCredential(cfg.containerURL()+cfg.SASToken, opts)
	case cfg.ConnectionString != "":
		cc, err = container.NewClientFromConnectionString(cfg.ConnectionString, cfg.Container, opts)
	case cfg.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, storage.NewStoreError(storeName, "Connect", "", errors.Wrap(err, "failed to create shared key credential"))
		}
		cc, err = container.NewClientWithSharedKeyCredential(cfg.containerURL(), cred, opts)
	case cfg.UseDefaultCredential:
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, storage.NewStoreError(storeName, "Connect", "", errors.Wrap(err, "failed to create Azure credential"))
		}
		cc, err = container.NewClient(cfg.containerURL(), cred, opts)
	default:
		return nil, storage.NewStoreError(storeName, "Connect", "",
			errors.WithHint(errors.New("no authentication method provided"),
				"pass --sas-url, --sas-token-file, --connection-string, --account-key or --default-credentials"))
	}
	if err != nil {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.Wrap(err, "failed to create container client"))
	}
	if cfg.Container == "" {
		return nil, storage.NewStoreError(storeName, "Connect", "", errors.New("container name is required"))
	}

	return &Store{client: cc, account: cfg.AccountName, container: cfg.Container}, nil
}

func (c Config) clientOptions() *container.ClientOptions {
	if c.MaxRetries == 0 {
		return nil
	}
	return &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: int32(c.MaxRetries)},
		},
	}
}

func (c Config) containerURL() string {
	base := c.ServiceURL
	if base == "" {
		base = fmt.Sprintf("https://%s.blob.core.windows.net", c.AccountName)
	}
	return strings.TrimSuffix(base, "/") + "/" + c.Container
}

// ReadSASTokenFile returns the read/write token stored on the second line
// of a credentials file. The first line holds a read-only token.
func ReadSASTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading SAS token file %s", path)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return "", errors.Newf("SAS token file %s has no read/write token on line 2", path)
	}
	token := strings.TrimSpace(lines[1])
	if !strings.HasPrefix(token, "?") {
		return "", errors.Newf("SAS token in %s must start with '?'", path)
	}
	return token, nil
}

func (s *Store) Name() string { return storeName }

func (s *Store) Tiers() []string { return Tiers }

// Container returns the container this store operates on.
func (s *Store) Container() string { return s.container }

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.NewBlobClient(name).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, nil
	}
	return false, storage.NewStoreError(storeName, "Exists", name, err)
}

func (s *Store) Properties(ctx context.Context, name string) (*storage.Properties, error) {
	resp, err := s.client.NewBlobClient(name).GetProperties(ctx, nil)
	if err != nil {
		return nil, wrap("Properties", name, err)
	}

	props := &storage.Properties{}
	if resp.AccessTier != nil {
		props.Tier = *resp.AccessTier
	}
	if resp.AccessTierInferred != nil {
		props.TierInferred = *resp.AccessTierInferred
	}
	if resp.ContentLength != nil {
		props.Size = *resp.ContentLength
	}
	props.Archived = props.Tier == string(blob.AccessTierArchive)
	if resp.ArchiveStatus != nil {
		props.RehydratePending = strings.Contains(*resp.ArchiveStatus, "rehydrate-pending")
	}
	return props, nil
}

func (s *Store) SetTier(ctx context.Context, name, tier string) error {
	_, err := s.client.NewBlobClient(name).SetTier(ctx, blob.AccessTier(tier), nil)
	if err != nil {
		return wrap("SetTier", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.NewBlobClient(name).Delete(ctx, nil)
	if err != nil {
		return wrap("Delete", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, pageSize int, fn func(page []storage.ObjectInfo) error) error {
	opts := &container.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}
	if pageSize > 0 {
		n := int32(pageSize)
		opts.MaxResults = &n
	}

	pager := s.client.NewListBlobsFlatPager(opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return wrap("List", prefix, err)
		}

		page := make([]storage.ObjectInfo, 0, len(resp.Segment.BlobItems))
		for _, item := range resp.Segment.BlobItems {
			page = append(page, objectInfo(item))
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func objectInfo(item *container.BlobItem) storage.ObjectInfo {
	info := storage.ObjectInfo{}
	if item.Name != nil {
		info.Name = *item.Name
	}
	if item.Properties != nil {
		if item.Properties.ContentLength != nil {
			info.Size = *item.Properties.ContentLength
		}
		// nil typically means a GPv1 account with no tiering support
		if item.Properties.AccessTier != nil {
			info.Tier = string(*item.Properties.AccessTier)
		}
	}
	return info
}

func wrap(op, name string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return storage.NotFound(storeName, op, name, err)
	case bloberror.HasCode(err, bloberror.BlobBeingRehydrated):
		return storage.RestorePending(storeName, op, name, err)
	}
	return storage.NewStoreError(storeName, op, name, err)
}

// Verify Store implements storage.Store
var _ storage.Store = (*Store)(nil)
