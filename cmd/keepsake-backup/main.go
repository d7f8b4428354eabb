// Command keepsake-backup takes, lists, prunes, and restores database snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keepsake-app/keepsake/internal/backup"
	"github.com/keepsake-app/keepsake/internal/config"
)

var (
	dbPath    = flag.String("db", "", "Path to database file (overrides config)")
	backupDir = flag.String("backup-dir", "", "Snapshot directory path (overrides config)")
	interval  = flag.Duration("interval", 0, "Snapshot interval (overrides config)")
	verify    = flag.Bool("verify", true, "Verify snapshots after creation")
	oneshot   = flag.Bool("oneshot", false, "Take a single snapshot and exit")
	restore   = flag.String("restore", "", "Restore database from snapshot file and exit")
	listCmd   = flag.Bool("list", false, "List available snapshots and exit")
	pruneCmd  = flag.Bool("prune", false, "Apply retention policy and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbPathFinal := cfg.DatabasePath()
	if *dbPath != "" {
		dbPathFinal = *dbPath
	}

	backupDirFinal := cfg.Backup.Path
	if *backupDir != "" {
		backupDirFinal = *backupDir
	}

	intervalFinal := cfg.BackupInterval()
	if *interval > 0 {
		intervalFinal = *interval
	}

	service, err := backup.NewService(backup.Config{
		DBPath:   dbPathFinal,
		Dir:      backupDirFinal,
		Interval: intervalFinal,
		Verify:   *verify,
		Retention: backup.Policy{
			Hourly:  cfg.Backup.RetentionHourly,
			Daily:   cfg.Backup.RetentionDaily,
			Weekly:  cfg.Backup.RetentionWeekly,
			Monthly: cfg.Backup.RetentionMonthly,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create backup service: %v", err)
	}

	ctx := context.Background()

	switch {
	case *restore != "":
		handleRestore(service, *restore)
	case *listCmd:
		handleList(service)
	case *pruneCmd:
		handlePrune(service)
	case *oneshot:
		handleOneshot(ctx, service)
	default:
		runService(service)
	}
}

func handleRestore(service *backup.Service, snapshotPath string) {
	log.Printf("Restoring database from snapshot: %s", snapshotPath)

	if err := service.Restore(snapshotPath); err != nil {
		log.Fatalf("Restore failed: %v", err)
	}

	log.Println("Database restored successfully")
}

func handleList(service *backup.Service) {
	snapshots, err := service.List()
	if err != nil {
		log.Fatalf("Failed to list snapshots: %v", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return
	}

	for _, snap := range snapshots {
		fmt.Printf("%s  %8.2f MB  %s\n",
			snap.Timestamp.Format(time.RFC3339),
			float64(snap.Size)/(1024*1024),
			snap.Path)
	}

	used, err := service.DiskUsage()
	if err == nil {
		fmt.Printf("\nTotal: %d snapshots, %.2f MB\n",
			len(snapshots), float64(used)/(1024*1024))
	}
}

func handlePrune(service *backup.Service) {
	if err := service.Prune(); err != nil {
		log.Fatalf("Prune failed: %v", err)
	}
	log.Println("Retention policy applied")
}

func handleOneshot(ctx context.Context, service *backup.Service) {
	result, err := service.SnapshotNow(ctx)
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}

	log.Printf("Snapshot created: %s (%.2f MB in %s, verified=%v)",
		result.Path, float64(result.Size)/(1024*1024),
		result.Duration.Round(time.Millisecond), result.Verified)
}

func runService(service *backup.Service) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start blocks on the ticker loop, so run it in the background.
	go func() {
		if err := service.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Backup service error: %v", err)
		}
	}()

	log.Println("Backup service running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Stopping backup service...")
	if err := service.Stop(); err != nil {
		log.Printf("Error stopping backup service: %v", err)
	}
}
