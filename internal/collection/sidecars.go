package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/JaimeStill/camxfer/pkg/source"
)

// Sidecar document keys.
const (
	keyID               = "idProperty"
	keyBucketProperty   = "bucketProperty"
	keyBucket           = "bucket"
	keyLegacyUploadPath = "uploadIRODSPath"
	keyUploadPath       = "uploadPath"
)

type document map[string]any

func newCollectionDocument(id, bucket string) document {
	return document{
		keyBucketProperty:      bucket,
		"nameProperty":         "",
		"organizationProperty": "",
		"contactInfoProperty":  "",
		"descriptionProperty":  fmt.Sprintf("Collection ID#\n%s\n", id),
		keyID:                  id,
	}
}

// ensureBucket creates the collection bucket when absent.
func (s *Service) ensureBucket(ctx context.Context, bucket string) error {
	ok, err := s.store.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if ok {
		s.logger.Info("using bucket", "bucket", bucket)
		return nil
	}

	if err := s.store.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	s.logger.Info("bucket created", "bucket", bucket)
	return nil
}

// bootstrap writes the collection and permissions documents unless they are
// already on the destination.
func (s *Service) bootstrap(ctx context.Context, srcBase, id, bucket, scratch string) error {
	key := path.Join(Base(id), CollectionFile)
	err := s.sidecar(ctx, bucket, key, path.Join(srcBase, CollectionFile), scratch,
		func(doc document) document {
			if doc == nil {
				return newCollectionDocument(id, bucket)
			}
			doc[keyID] = id
			if _, ok := doc[keyBucketProperty]; !ok {
				doc[keyBucketProperty] = bucket
			}
			return doc
		})
	if err != nil {
		return err
	}

	key = path.Join(Base(id), PermissionsFile)
	return s.sidecar(ctx, bucket, key, path.Join(srcBase, PermissionsFile), scratch,
		func(doc document) document {
			if doc == nil {
				return document{}
			}
			return doc
		})
}

// uploadMeta copies the upload's metadata document, pointing it at the
// destination upload folder. A missing source document is logged and skipped.
func (s *Service) uploadMeta(ctx context.Context, bucket, srcBase, destBase, scratch string) error {
	return s.sidecar(ctx, bucket, path.Join(destBase, UploadMetaFile), path.Join(srcBase, UploadMetaFile), scratch,
		func(doc document) document {
			if doc == nil {
				s.logger.Warn("upload metadata not found", "source", path.Join(srcBase, UploadMetaFile))
				return nil
			}
			if _, ok := doc[keyBucket]; !ok {
				doc[keyBucket] = bucket
			}
			if _, ok := doc[keyLegacyUploadPath]; ok {
				delete(doc, keyLegacyUploadPath)
				doc[keyUploadPath] = destBase
			}
			return doc
		})
}

// sidecar writes the JSON document at key unless it exists. The source
// document at srcPath is passed to build, or nil when the source has none;
// build returning nil skips the write.
func (s *Service) sidecar(ctx context.Context, bucket, key, srcPath, scratch string, build func(document) document) error {
	exists, err := s.store.Exists(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		s.logger.Info("sidecar already exists, skipping", "bucket", bucket, "key", key)
		return nil
	}

	doc, err := s.fetchDocument(ctx, srcPath, scratch)
	if err != nil {
		return err
	}

	doc = build(doc)
	if doc == nil {
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Put(ctx, bucket, key, bytes.NewReader(data), JSONContentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Debug("sidecar written", "bucket", bucket, "key", key)
	return nil
}

func (s *Service) fetchDocument(ctx context.Context, p, scratch string) (document, error) {
	local, err := s.src.Fetch(ctx, p, scratch)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	defer os.Remove(local)

	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}
