// Command keepsake-web serves the Keepsake capture API and websocket feed.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keepsake-app/keepsake/internal/backup"
	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/importer"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/preview"
	"github.com/keepsake-app/keepsake/internal/server"
	"github.com/keepsake-app/keepsake/internal/services"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/internal/storage/jsonfile"
	"github.com/keepsake-app/keepsake/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	var store storage.Store
	switch cfg.Storage.Engine {
	case "jsonfile":
		store, err = jsonfile.Open(cfg.DocumentPath())
	default:
		store, err = sqlite.Open(cfg.DatabasePath())
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	var fetcher services.MetadataFetcher
	if cfg.Preview.Enabled {
		f, err := preview.NewFetcher(preview.Config{
			Timeout:           cfg.Preview.Timeout,
			RequestsPerSecond: cfg.Preview.RequestsPerSecond,
		})
		if err != nil {
			log.Fatalf("Failed to initialize link preview fetcher: %v", err)
		}
		fetcher = f
	}

	writer := notify.NewEventWriter(cfg.Storage.DataPath)
	service := services.NewCaptureService(store, fetcher, nil, writer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var imp *importer.Importer
	if cfg.Features.EnableImport {
		imp = importer.New(store)
	}

	addr, wsHub, err := server.Start(ctx, cfg, service, imp)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Keepsake running at http://%s", addr)

	// Relay capture events written by this or other processes to
	// connected websocket clients.
	var watcher *notify.EventWatcher
	if cfg.Features.EnableWebsocket {
		watcher = notify.NewEventWatcher(cfg.Storage.DataPath, func(event notify.Event) {
			wsHub.BroadcastCapture(event.Type, event.MemoryID)
		})
		if err := watcher.Start(); err != nil {
			log.Printf("Event watcher unavailable: %v", err)
			watcher = nil
		}
	}

	var backupSvc *backup.Service
	if cfg.Backup.Enabled && cfg.Storage.Engine == "sqlite" {
		backupSvc, err = backup.NewService(backup.Config{
			DBPath:   cfg.DatabasePath(),
			Dir:      cfg.Backup.Path,
			Interval: cfg.BackupInterval(),
			Verify:   cfg.Backup.Verify,
			Retention: backup.Policy{
				Hourly:  cfg.Backup.RetentionHourly,
				Daily:   cfg.Backup.RetentionDaily,
				Weekly:  cfg.Backup.RetentionWeekly,
				Monthly: cfg.Backup.RetentionMonthly,
			},
		})
		if err != nil {
			log.Fatalf("Failed to initialize backup service: %v", err)
		}
		// Start blocks on the ticker loop, so run it in the background.
		go func() {
			if err := backupSvc.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("Backup service error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	if watcher != nil {
		watcher.Stop()
	}
	if backupSvc != nil {
		if err := backupSvc.Stop(); err != nil {
			log.Printf("Error stopping backup service: %v", err)
		}
	}

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
