package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"choicesherpa/api/internal/blob"
	"choicesherpa/api/internal/cache"
	"choicesherpa/api/internal/config"
	"choicesherpa/api/internal/repo"
	"choicesherpa/api/internal/search"
	"choicesherpa/api/internal/store"
	"choicesherpa/api/internal/syncer"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store init failed: %v", err)
	}

	opts := []repo.Option{}
	if cfg.RecordHistory {
		opts = append(opts, repo.WithHistory())
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		contentCache, err := cache.NewContentCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer contentCache.Close()
		log.Printf("content cache enabled")
		opts = append(opts, repo.WithCache(contentCache))
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	opts = append(opts, repo.WithIndex(searchService))

	documents := repo.New(dataStore, blobs, opts...)

	if meiliClient != nil {
		go searchService.ReindexAllFromPG(ctx)
	}

	// The file watcher only makes sense for local storage. S3 deployments
	// rely on the periodic integrity check instead.
	if cfg.BlobBackend == "fs" {
		s := syncer.New(cfg.DocsDir, documents,
			syncer.WithDebounce(cfg.SyncDebounce),
			syncer.WithRescanInterval(cfg.RescanInterval))
		go func() {
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				log.Fatalf("syncer failed: %v", err)
			}
		}()
		log.Printf("watching %s for external edits", cfg.DocsDir)
	}

	go maintenanceLoop(ctx, documents, cfg.SweepInterval)

	log.Printf("sherpad running, backend=%s", cfg.BlobBackend)
	<-ctx.Done()
	log.Printf("shutting down")
}

func openBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.BlobBackend == "s3" {
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	if err := os.MkdirAll(cfg.DocsDir, 0o755); err != nil {
		return nil, err
	}
	var opts []blob.FileStoreOption
	if cfg.AuditTrail {
		opts = append(opts, blob.WithAudit())
	}
	return blob.NewFileStore(cfg.DocsDir, opts...)
}

// maintenanceLoop sweeps orphaned blobs and reports documents whose files
// drifted from their recorded checksum.
func maintenanceLoop(ctx context.Context, documents *repo.Repository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := documents.SweepOrphans(ctx)
			if err != nil {
				log.Printf("orphan sweep failed: %v", err)
			} else if len(removed) > 0 {
				log.Printf("orphan sweep removed %d blobs", len(removed))
			}
			reports, err := documents.VerifyAll(ctx)
			if err != nil {
				log.Printf("integrity check failed: %v", err)
				continue
			}
			for _, report := range reports {
				if report.Status != repo.IntegrityInSync {
					log.Printf("integrity: %s is %s (%s)", report.DocumentID, report.Status, report.Path)
				}
			}
		}
	}
}
