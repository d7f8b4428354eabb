package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// listSnapshots lists all .db files in dir with their metadata, newest first.
func listSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot directory: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // skip files we can't stat
		}
		snapshots = append(snapshots, Snapshot{
			Path:      filepath.Join(dir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// applyRetention removes snapshots beyond the per-tier keep counts.
// Tiers by age: hourly under 24h, daily under 7d, weekly under 30d,
// monthly under 365d. Anything older than a year is always removed.
func applyRetention(dir string, policy Policy) error {
	snapshots, err := listSnapshots(dir)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	now := time.Now()
	var toDelete []string

	var hourly, daily, weekly, monthly []Snapshot
	for _, snap := range snapshots {
		age := now.Sub(snap.Timestamp)
		switch {
		case age < 24*time.Hour:
			hourly = append(hourly, snap)
		case age < 7*24*time.Hour:
			daily = append(daily, snap)
		case age < 30*24*time.Hour:
			weekly = append(weekly, snap)
		case age < 365*24*time.Hour:
			monthly = append(monthly, snap)
		default:
			toDelete = append(toDelete, snap.Path)
		}
	}

	for _, tier := range []struct {
		snaps []Snapshot
		keep  int
	}{
		{hourly, policy.Hourly},
		{daily, policy.Daily},
		{weekly, policy.Weekly},
		{monthly, policy.Monthly},
	} {
		if len(tier.snaps) > tier.keep {
			for _, snap := range tier.snaps[tier.keep:] {
				toDelete = append(toDelete, snap.Path)
			}
		}
	}

	var lastErr error
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			// keep pruning the rest
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("backup: failed to delete some snapshots: %w", lastErr)
	}
	return nil
}

// diskUsage totals the bytes used by all snapshots in dir.
func diskUsage(dir string) (int64, error) {
	snapshots, err := listSnapshots(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, snap := range snapshots {
		total += snap.Size
	}
	return total, nil
}
