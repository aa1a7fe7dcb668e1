package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anon-file-drop/internal/server"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "invalid_configuration", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Quota accounting
	var persist server.QuotaPersistence
	switch cfg.QuotaBackend {
	case "bolt":
		persist, err = server.OpenBoltQuotaPersistence(cfg.QuotaDBPath)
	default:
		persist, err = server.NewFileQuotaPersistence(cfg.QuotaDBPath)
	}
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "quota_persistence_failed", err)
		os.Exit(1)
	}
	quota := server.NewQuotaStore(persist)

	// Blob storage
	var blobs server.BlobStore
	switch cfg.StorageBackend {
	case "s3":
		blobs, err = server.NewMinioBlobStore(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	default:
		blobs, err = server.NewDirBlobStore(cfg.Folder)
	}
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "blob_store_failed", err)
		os.Exit(1)
	}

	index := server.NewFileIndex(blobs, cfg.SecretKey)
	activity := server.NewActivityTracker()

	srv := server.New(cfg, quota, index, activity)

	// Retention sweep runs until the context is cancelled at shutdown.
	go server.StartSweeper(ctx, server.SweeperConfig{
		Interval:          cfg.SweepInterval,
		InactivityMinutes: cfg.InactivityMinutes,
		Activity:          activity,
		Index:             index,
	})

	// Start the HTTP server in a background goroutine so we can listen for
	// OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s storage=%s quota=%s",
			"starting", cfg.Addr, cfg.StorageBackend, cfg.QuotaBackend)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}
