// Package backup keeps local point-in-time copies of the Keepsake database.
// With no sync layer this is the app's only durability story: snapshots are
// taken with VACUUM INTO, verified with an integrity check, and pruned under
// a tiered retention policy.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Policy defines how many snapshots to keep at each age tier.
// Snapshots are categorized by age: hourly under 24h, daily under 7 days,
// weekly under 30 days, monthly under a year. Older snapshots are always
// removed.
type Policy struct {
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
}

// DefaultPolicy keeps 24 hourly, 7 daily, 4 weekly, and 12 monthly snapshots.
func DefaultPolicy() Policy {
	return Policy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}
}

// Config holds backup service configuration.
type Config struct {
	// DBPath is the SQLite database file to back up.
	DBPath string

	// Dir is where snapshots are stored.
	Dir string

	// Interval between automated snapshots. Default 1 hour.
	Interval time.Duration

	// Retention controls pruning. Zero fields take the defaults.
	Retention Policy

	// Verify runs an integrity check on each new snapshot. Default on
	// via NewService.
	Verify bool
}

// Snapshot describes one backup file on disk.
type Snapshot struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Result summarizes a completed snapshot operation.
type Result struct {
	Path     string
	Size     int64
	Duration time.Duration
	Verified bool
}

// Service takes and prunes database snapshots, optionally on a timer.
type Service struct {
	dbPath    string
	dir       string
	interval  time.Duration
	retention Policy
	verify    bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewService validates config and prepares the snapshot directory.
func NewService(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	defaults := DefaultPolicy()
	if cfg.Retention.Hourly == 0 {
		cfg.Retention.Hourly = defaults.Hourly
	}
	if cfg.Retention.Daily == 0 {
		cfg.Retention.Daily = defaults.Daily
	}
	if cfg.Retention.Weekly == 0 {
		cfg.Retention.Weekly = defaults.Weekly
	}
	if cfg.Retention.Monthly == 0 {
		cfg.Retention.Monthly = defaults.Monthly
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot directory: %w", err)
	}

	return &Service{
		dbPath:    cfg.DBPath,
		dir:       cfg.Dir,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		verify:    cfg.Verify,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start runs snapshots at the configured interval until the context is
// cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup: service already running")
	}
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("backup: started, interval=%v dir=%s", s.interval, s.dir)

	for {
		select {
		case <-ctx.Done():
			log.Println("backup: stopping, context cancelled")
			return ctx.Err()
		case <-s.stopCh:
			log.Println("backup: stopping")
			return nil
		case <-ticker.C:
			result, err := s.SnapshotNow(ctx)
			if err != nil {
				log.Printf("backup: scheduled snapshot failed: %v", err)
				continue
			}
			log.Printf("backup: snapshot %s, %d bytes in %v, verified=%v",
				filepath.Base(result.Path), result.Size, result.Duration, result.Verified)
		}
	}
}

// Stop ends the interval loop.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("backup: service is not running")
	}
	close(s.stopCh)
	s.running = false
	return nil
}

// SnapshotNow takes one snapshot immediately, verifies it when configured,
// and applies the retention policy.
func (s *Service) SnapshotNow(ctx context.Context) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, fmt.Errorf("backup: database not found: %w", err)
	}

	// Microseconds in the name keep rapid snapshots distinct.
	name := fmt.Sprintf("keepsake-%s.db", time.Now().Format("20060102-150405.000000"))
	path := filepath.Join(s.dir, name)

	if err := snapshotSQLite(s.dbPath, path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	result := &Result{
		Path:     path,
		Size:     info.Size(),
		Duration: time.Since(start),
	}

	if s.verify {
		if err := verifySnapshot(path); err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("backup: snapshot failed verification: %w", err)
		}
		result.Verified = true
	}

	if err := applyRetention(s.dir, s.retention); err != nil {
		log.Printf("backup: retention pruning: %v", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// List returns all snapshots, newest first.
func (s *Service) List() ([]Snapshot, error) {
	return listSnapshots(s.dir)
}

// Restore replaces the live database file with the named snapshot.
// The database must not be open while restoring.
func (s *Service) Restore(snapshotPath string) error {
	return restoreSQLite(snapshotPath, s.dbPath)
}

// Prune applies the retention policy without taking a snapshot.
func (s *Service) Prune() error {
	return applyRetention(s.dir, s.retention)
}

// DiskUsage totals the bytes held by all snapshots.
func (s *Service) DiskUsage() (int64, error) {
	return diskUsage(s.dir)
}
