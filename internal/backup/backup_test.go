package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keepsake-app/keepsake/internal/storage/sqlite"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// newTestDatabase creates a real database file with one memory in it.
func newTestDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keepsake.db")

	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	_, err = store.Add(context.Background(), &types.Memory{
		Content:     "backup me",
		ContentType: types.ContentText,
	})
	if err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}
	return path
}

func TestSnapshotAndVerify(t *testing.T) {
	dbPath := newTestDatabase(t)
	dir := t.TempDir()

	svc, err := NewService(Config{DBPath: dbPath, Dir: dir, Verify: true})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.SnapshotNow(context.Background())
	if err != nil {
		t.Fatalf("SnapshotNow: %v", err)
	}
	if !result.Verified {
		t.Error("snapshot not verified")
	}
	if result.Size == 0 {
		t.Error("snapshot is empty")
	}

	snapshots, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1", len(snapshots))
	}
	if snapshots[0].Path != result.Path {
		t.Errorf("listed path = %s, want %s", snapshots[0].Path, result.Path)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	dbPath := newTestDatabase(t)
	dir := t.TempDir()

	svc, err := NewService(Config{DBPath: dbPath, Dir: dir, Verify: true})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.SnapshotNow(context.Background())
	if err != nil {
		t.Fatalf("SnapshotNow: %v", err)
	}

	// Corrupt the live database, then restore the snapshot over it.
	if err := os.WriteFile(dbPath, []byte("not a database"), 0o600); err != nil {
		t.Fatalf("corrupt database: %v", err)
	}
	if err := svc.Restore(result.Path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open restored database: %v", err)
	}
	defer store.Close()

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("restored count = %d, want 1", count)
	}
}

func TestSnapshotMissingDatabase(t *testing.T) {
	svc, err := NewService(Config{
		DBPath: filepath.Join(t.TempDir(), "absent.db"),
		Dir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := svc.SnapshotNow(context.Background()); err == nil {
		t.Error("expected error for missing database")
	}
}

// writeAgedSnapshot fabricates a snapshot file whose mod time is age ago.
func writeAgedSnapshot(t *testing.T, dir string, n int, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("keepsake-aged-%d.db", n))
	if err := os.WriteFile(path, []byte("snapshot"), 0o600); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
}

func TestRetentionTiersAndCaps(t *testing.T) {
	dir := t.TempDir()

	// 3 hourly-tier snapshots, 2 daily-tier, 1 ancient.
	writeAgedSnapshot(t, dir, 1, 1*time.Hour)
	writeAgedSnapshot(t, dir, 2, 2*time.Hour)
	writeAgedSnapshot(t, dir, 3, 3*time.Hour)
	writeAgedSnapshot(t, dir, 4, 2*24*time.Hour)
	writeAgedSnapshot(t, dir, 5, 3*24*time.Hour)
	writeAgedSnapshot(t, dir, 6, 400*24*time.Hour)

	policy := Policy{Hourly: 2, Daily: 1, Weekly: 4, Monthly: 12}
	if err := applyRetention(dir, policy); err != nil {
		t.Fatalf("applyRetention: %v", err)
	}

	remaining, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("listSnapshots: %v", err)
	}

	// 2 hourly survive, 1 daily survives, the ancient one is gone.
	if len(remaining) != 3 {
		t.Fatalf("len(remaining) = %d, want 3", len(remaining))
	}
	for _, snap := range remaining {
		age := time.Since(snap.Timestamp)
		if age > 365*24*time.Hour {
			t.Errorf("ancient snapshot survived: %s", snap.Path)
		}
	}
}

func TestRetentionKeepsNewestInTier(t *testing.T) {
	dir := t.TempDir()

	writeAgedSnapshot(t, dir, 1, 1*time.Hour)
	writeAgedSnapshot(t, dir, 2, 5*time.Hour)
	writeAgedSnapshot(t, dir, 3, 10*time.Hour)

	if err := applyRetention(dir, Policy{Hourly: 1, Daily: 7, Weekly: 4, Monthly: 12}); err != nil {
		t.Fatalf("applyRetention: %v", err)
	}

	remaining, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("listSnapshots: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("len(remaining) = %d, want 1", len(remaining))
	}
	if filepath.Base(remaining[0].Path) != "keepsake-aged-1.db" {
		t.Errorf("survivor = %s, want the newest", remaining[0].Path)
	}
}

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	writeAgedSnapshot(t, dir, 1, time.Hour)
	writeAgedSnapshot(t, dir, 2, time.Hour)

	total, err := diskUsage(dir)
	if err != nil {
		t.Fatalf("diskUsage: %v", err)
	}
	if want := int64(2 * len("snapshot")); total != want {
		t.Errorf("diskUsage = %d, want %d", total, want)
	}
}

func TestStartBlocksUntilStop(t *testing.T) {
	dbPath := newTestDatabase(t)

	svc, err := NewService(Config{
		DBPath:   dbPath,
		Dir:      t.TempDir(),
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// Start runs the ticker loop in the calling goroutine, so callers
	// must launch it in the background and stop it from outside.
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("Start returned before Stop: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error after Stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
