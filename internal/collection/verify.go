package collection

import (
	"context"
	"fmt"
	"os"

	"github.com/JaimeStill/camxfer/internal/verify"
)

// Verify checks every upload folder of collection id, or of every collection
// bucket when id is empty, and returns the findings. Nothing is modified.
func (s *Service) Verify(ctx context.Context, id string) ([]verify.Finding, error) {
	if s.verifier == nil {
		return nil, ErrNoVerifier
	}

	ids, err := s.collections(ctx, id)
	if err != nil {
		return nil, err
	}

	scratch, err := s.scratch("camxfer_verify_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	var findings []verify.Finding
	for _, cid := range ids {
		bucket := s.buckets.Bucket(cid)

		folders, err := s.uploadFolders(ctx, bucket, cid)
		if err != nil {
			return findings, err
		}

		for _, folder := range folders {
			found, err := s.verifyUpload(ctx, bucket, folder, scratch)
			if err != nil {
				return findings, fmt.Errorf("verify %s: %w", folder, err)
			}
			findings = append(findings, found...)
		}
	}

	s.logger.Info("verification complete", "collections", len(ids), "findings", len(findings))
	return findings, nil
}

func (s *Service) verifyUpload(ctx context.Context, bucket, destBase, scratch string) ([]verify.Finding, error) {
	dir, err := os.MkdirTemp(scratch, "upload_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	l, err := s.openLedger(ctx, bucket, destBase, dir)
	if err != nil {
		return nil, err
	}
	return s.verifier.Upload(ctx, bucket, destBase, l, dir)
}
