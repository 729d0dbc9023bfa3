// Package storage provides destination object store operations with an Azure Blob Storage
// implementation. Buckets map onto blob containers and object paths onto blob names.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// Object is one entry returned by ListPrefix. Containers are the virtual
// folders formed by the "/" delimiter.
type Object struct {
	Name        string
	IsContainer bool
}

// System is the destination object store.
type System interface {
	// Exists reports whether an object exists. A missing object is not an error.
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// Put streams data to an object with the specified content type.
	Put(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error
	// PutFile uploads a local file to an object with the specified content type.
	PutFile(ctx context.Context, bucket, key, localPath, contentType string) error
	// Get downloads an object into localDest. Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, bucket, key, localDest string) error
	// ListPrefix returns the objects and virtual folders directly under prefix.
	ListPrefix(ctx context.Context, bucket, prefix string) ([]Object, error)
	// BucketExists reports whether a bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)
	// CreateBucket creates a bucket. Creating an existing bucket is not an error.
	CreateBucket(ctx context.Context, bucket string) error
	// ListBuckets returns the names of all buckets starting with prefix.
	ListBuckets(ctx context.Context, prefix string) ([]string, error)
}

type azure struct {
	client   *azblob.Client
	pageSize int32
	logger   *slog.Logger
}

// New creates a storage system from the given configuration.
// It builds the Azure client but does not contact the service.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:   client,
		pageSize: cfg.MaxListSize,
		logger:   logger.With("system", "storage"),
	}, nil
}

func newClient(cfg *Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	if cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("shared key credential: %w", err)
		}
		return azblob.NewClientWithSharedKeyCredential(cfg.AccountURL, cred, nil)
	}

	var cred azcore.TokenCredential
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return azblob.NewClient(cfg.AccountURL, cred, nil)
}

func (a *azure) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	_, err := a.blobClient(bucket, key).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check object existence %s:%s: %w", bucket, key, err)
	}

	return true, nil
}

func (a *azure) Put(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(contentType),
		},
	}

	if _, err := a.client.UploadStream(ctx, bucket, key, reader, opts); err != nil {
		return fmt.Errorf("upload object %s:%s: %w", bucket, key, err)
	}

	a.logger.Debug("object uploaded", "bucket", bucket, "key", key, "content_type", contentType)
	return nil
}

func (a *azure) PutFile(ctx context.Context, bucket, key, localPath, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	opts := &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr(contentType),
		},
	}

	if _, err := a.client.UploadFile(ctx, bucket, key, f, opts); err != nil {
		return fmt.Errorf("upload file %s to %s:%s: %w", localPath, bucket, key, err)
	}

	a.logger.Debug("file uploaded", "bucket", bucket, "key", key, "content_type", contentType)
	return nil
}

func (a *azure) Get(ctx context.Context, bucket, key, localDest string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	f, err := os.Create(localDest)
	if err != nil {
		return fmt.Errorf("create %s: %w", localDest, err)
	}

	_, err = a.client.DownloadFile(ctx, bucket, key, f, nil)
	f.Close()
	if err != nil {
		os.Remove(localDest)
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("download object %s:%s: %w", bucket, key, err)
	}

	return nil
}

func (a *azure) ListPrefix(ctx context.Context, bucket, prefix string) ([]Object, error) {
	pager := a.client.
		ServiceClient().
		NewContainerClient(bucket).
		NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
			Prefix:     to.Ptr(prefix),
			MaxResults: to.Ptr(a.pageSize),
		})

	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("list %s:%s: %w", bucket, prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, p := range page.Segment.BlobPrefixes {
			if p.Name != nil {
				objects = append(objects, Object{Name: *p.Name, IsContainer: true})
			}
		}
		for _, b := range page.Segment.BlobItems {
			if b.Name != nil {
				objects = append(objects, Object{Name: *b.Name})
			}
		}
	}

	return objects, nil
}

func (a *azure) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := a.client.ServiceClient().NewContainerClient(bucket).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	return true, nil
}

func (a *azure) CreateBucket(ctx context.Context, bucket string) error {
	_, err := a.client.CreateContainer(ctx, bucket, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	a.logger.Info("bucket ready", "bucket", bucket)
	return nil
}

func (a *azure) ListBuckets(ctx context.Context, prefix string) ([]string, error) {
	pager := a.client.NewListContainersPager(&azblob.ListContainersOptions{
		Prefix:     to.Ptr(prefix),
		MaxResults: to.Ptr(a.pageSize),
	})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list buckets %s: %w", prefix, err)
		}
		for _, c := range page.ContainerItems {
			if c.Name != nil {
				names = append(names, *c.Name)
			}
		}
	}

	return names, nil
}

func (a *azure) blobClient(bucket, key string) *blob.Client {
	return a.client.
		ServiceClient().
		NewContainerClient(bucket).
		NewBlobClient(key)
}

func isNotFound(err error) bool {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// ValidateKey rejects an empty object path and one with a ".." segment.
// Dots inside a segment, as in sanitized upload names, are allowed.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if slices.Contains(strings.Split(key, "/"), "..") {
		return ErrInvalidKey
	}
	return nil
}
