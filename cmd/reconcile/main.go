package main

// Sweep the object store for orphaned blobs: structured-convention objects
// with no matching metadata record. Failed metadata inserts leave these
// behind; the upload path never cleans them up.
//
//   go run ./cmd/reconcile            # report only
//   go run ./cmd/reconcile -delete    # delete orphans

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"loandesk-backend/internal/documents"
	"loandesk-backend/internal/shared/config"
	"loandesk-backend/internal/shared/storage/db"
	sharedmongo "loandesk-backend/internal/shared/storage/mongo"
	"loandesk-backend/internal/shared/storage/object"
	localstore "loandesk-backend/internal/shared/storage/object/local"
	s3store "loandesk-backend/internal/shared/storage/object/s3"
)

const structuredPrefix = "documents/"

func main() {
	deleteOrphans := flag.Bool("delete", false, "delete orphaned blobs instead of only reporting them")
	minAge := flag.Duration("min-age", time.Hour, "skip blobs newer than this; an in-flight upload may not have recorded yet")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Printf("object store: %v", err)
		os.Exit(1)
	}

	repo, closeFn, err := buildRepo(ctx, cfg)
	if err != nil {
		log.Printf("metadata store: %v", err)
		os.Exit(1)
	}
	defer closeFn()

	orphans, scanned, err := sweep(ctx, store, repo, *minAge)
	if err != nil {
		log.Printf("sweep: %v", err)
		os.Exit(1)
	}

	fmt.Printf("scanned %d blob(s), found %d orphan(s)\n", scanned, len(orphans))
	for _, key := range orphans {
		if !*deleteOrphans {
			fmt.Printf("orphan: %s\n", key)
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			log.Printf("delete %s: %v", key, err)
			continue
		}
		fmt.Printf("deleted: %s\n", key)
	}
}

// sweep lists every structured-convention blob and checks it against the
// metadata store by storage key.
func sweep(ctx context.Context, store object.Store, repo documents.Repo, minAge time.Duration) ([]string, int, error) {
	objects, err := store.List(ctx, structuredPrefix)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", structuredPrefix, err)
	}

	cutoff := time.Now().Add(-minAge)
	var orphans []string
	for _, obj := range objects {
		if obj.SizeBytes == 0 {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		_, err := repo.FindByStorageKey(ctx, obj.Key)
		if errors.Is(err, documents.ErrNotFound) {
			orphans = append(orphans, obj.Key)
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("lookup %s: %w", obj.Key, err)
		}
	}
	return orphans, len(objects), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRepo(ctx context.Context, cfg config.Config) (documents.Repo, func(), error) {
	switch cfg.MetadataStore {
	case "mongo":
		database, closeFn, err := sharedmongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return documents.NewMongoRepo(database), func() { _ = closeFn(context.Background()) }, nil
	case "postgres":
		opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, nil, err
		}
		return &documents.PGRepo{DB: sqlDB}, func() { _ = sqlDB.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("reconcile requires MONGO_URI or DATABASE_URL")
	}
}
