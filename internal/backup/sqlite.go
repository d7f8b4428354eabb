package backup

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite"
)

// snapshotSQLite creates a consistent copy of a SQLite database using
// VACUUM INTO, which yields a point-in-time snapshot even under WAL mode.
func snapshotSQLite(sourcePath, destPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return fmt.Errorf("backup: open source database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("backup: ping source database: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", destPath, err)
	}
	return nil
}

// verifySnapshot opens a snapshot read-only and runs the integrity check.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}

// restoreSQLite copies a verified snapshot over the target database file.
// The target database must not be in use.
func restoreSQLite(snapshotPath, targetPath string) error {
	if err := verifySnapshot(snapshotPath); err != nil {
		return err
	}

	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("backup: create target file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: sync target file: %w", err)
	}

	return verifySnapshot(targetPath)
}
