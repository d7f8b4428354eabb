// Command keepsake-setup initializes a local Keepsake installation.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/internal/storage/jsonfile"
	"github.com/keepsake-app/keepsake/internal/storage/sqlite"
)

func main() {
	printBanner()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Printf("Storage engine: %s\n", cfg.Storage.Engine)
	fmt.Printf("Data directory: %s\n", cfg.Storage.DataPath)
	fmt.Println()

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	fmt.Println("✓ Data directory created")

	var store storage.Store
	var storePath string
	switch cfg.Storage.Engine {
	case "jsonfile":
		storePath = cfg.DocumentPath()
		store, err = jsonfile.Open(storePath)
	default:
		storePath = cfg.DatabasePath()
		store, err = sqlite.Open(storePath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	fmt.Printf("✓ Store initialized at %s\n", storePath)

	// Materializes the default preferences record on first run.
	prefs, err := store.GetPreferences(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize preferences: %v", err)
	}
	fmt.Printf("✓ Preferences ready (display name: %s, theme: %s)\n",
		prefs.DisplayName, prefs.ThemeMode)

	count, err := store.Count(context.Background())
	if err != nil {
		log.Fatalf("Failed to query store: %v", err)
	}
	fmt.Printf("✓ Store reachable (%d memories)\n", count)

	if cfg.Backup.Enabled {
		backupDir, _ := filepath.Abs(cfg.Backup.Path)
		if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
			log.Fatalf("Failed to create backup directory: %v", err)
		}
		fmt.Printf("✓ Backup directory created at %s\n", backupDir)
	}

	fmt.Println()
	fmt.Println("Setup complete. Start the server with:")
	fmt.Println("  keepsake-web")
	fmt.Printf("Then open http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
}

func printBanner() {
	fmt.Print(`
 _  __                          _
| |/ /___  ___ _ __  ___  __ _ | | _____
| ' // _ \/ _ \ '_ \/ __|/ _` + "`" + ` || |/ / _ \
| . \  __/  __/ |_) \__ \ (_| ||   <  __/
|_|\_\___|\___| .__/|___/\__,_||_|\_\___|
              |_|

Your days, remembered locally
`)
}
