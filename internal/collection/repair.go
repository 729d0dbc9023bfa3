package collection

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/camxfer/internal/repair"
)

// RepairReport summarizes a repair pass.
type RepairReport struct {
	Collections int
	Uploads     int
	Modified    int
	Failed      []string
}

// Repair applies rules to the ledger of every upload folder of collection
// id, or of every collection bucket when id is empty. Ledgers are written
// back only when a rule changed them.
func (s *Service) Repair(ctx context.Context, id string, rules []repair.Rule) (RepairReport, error) {
	var rep RepairReport

	ids, err := s.collections(ctx, id)
	if err != nil {
		return rep, err
	}

	scratch, err := s.scratch("camxfer_repair_")
	if err != nil {
		return rep, err
	}
	defer os.RemoveAll(scratch)

	for _, cid := range ids {
		rep.Collections++
		bucket := s.buckets.Bucket(cid)

		folders, err := s.uploadFolders(ctx, bucket, cid)
		if err != nil {
			if id != "" {
				return rep, err
			}
			rep.Failed = append(rep.Failed, cid)
			s.logger.Error("collection repair failed", "collection", cid, "error", err)
			continue
		}

		for _, folder := range folders {
			rep.Uploads++
			modified, err := s.repairUpload(ctx, bucket, folder, scratch, rules)
			if err != nil {
				rep.Failed = append(rep.Failed, folder)
				s.logger.Error("upload repair failed", "bucket", bucket, "upload", folder, "error", err)
				continue
			}
			if modified {
				rep.Modified++
			}
		}
	}

	s.logger.Info("repair complete",
		"collections", rep.Collections,
		"uploads", rep.Uploads,
		"modified", rep.Modified,
		"failed", len(rep.Failed))
	return rep, nil
}

// collections resolves the collection ids a pass runs over.
func (s *Service) collections(ctx context.Context, id string) ([]string, error) {
	if id != "" {
		if err := s.requireBucket(ctx, s.buckets.Bucket(id)); err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	buckets, err := s.store.ListBuckets(ctx, s.buckets.BucketPrefix)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	ids := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if cid := strings.TrimPrefix(b, s.buckets.BucketPrefix); cid != "" {
			ids = append(ids, cid)
		}
	}
	return ids, nil
}

func (s *Service) repairUpload(ctx context.Context, bucket, destBase, scratch string, rules []repair.Rule) (bool, error) {
	dir, err := os.MkdirTemp(scratch, "upload_")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(dir)

	l, err := s.openLedger(ctx, bucket, destBase, dir)
	if err != nil {
		return false, err
	}

	repair.ApplyAll(l, rules)
	return s.storeLedger(ctx, bucket, destBase, dir, l)
}
