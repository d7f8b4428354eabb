package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7575 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Storage.Engine != "sqlite" {
		t.Errorf("storage engine = %q, want sqlite", cfg.Storage.Engine)
	}
	if !cfg.Preview.Enabled || cfg.Preview.Timeout != 5*time.Second {
		t.Errorf("preview defaults = %+v", cfg.Preview)
	}
	if cfg.Backup.Enabled {
		t.Error("backup loop enabled by default")
	}
	if cfg.BackupInterval() != 24*time.Hour {
		t.Errorf("BackupInterval = %v", cfg.BackupInterval())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KEEPSAKE_PORT", "8080")
	t.Setenv("KEEPSAKE_STORAGE_ENGINE", "jsonfile")
	t.Setenv("KEEPSAKE_BACKUP_ENABLED", "yes")
	t.Setenv("KEEPSAKE_PREVIEW_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Engine != "jsonfile" {
		t.Errorf("engine = %q, want jsonfile", cfg.Storage.Engine)
	}
	if !cfg.Backup.Enabled {
		t.Error("backup not enabled by KEEPSAKE_BACKUP_ENABLED=yes")
	}
	if cfg.Preview.Timeout != 2*time.Second {
		t.Errorf("preview timeout = %v, want 2s", cfg.Preview.Timeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown engine", map[string]string{"KEEPSAKE_STORAGE_ENGINE": "postgres"}},
		{"unknown security mode", map[string]string{"KEEPSAKE_SECURITY_MODE": "paranoid"}},
		{"production without token", map[string]string{"KEEPSAKE_SECURITY_MODE": "production"}},
		{"bad backup interval", map[string]string{"KEEPSAKE_BACKUP_INTERVAL": "fortnightly"}},
		{"bad port", map[string]string{"KEEPSAKE_PORT": "99999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestProductionModeWithToken(t *testing.T) {
	t.Setenv("KEEPSAKE_SECURITY_MODE", "production")
	t.Setenv("KEEPSAKE_API_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.Mode != "production" || cfg.Security.APIToken != "secret" {
		t.Errorf("security = %+v", cfg.Security)
	}
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv("KEEPSAKE_DATA_PATH", "/var/lib/keepsake")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath() != "/var/lib/keepsake/keepsake.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
	if cfg.DocumentPath() != "/var/lib/keepsake/keepsake.json" {
		t.Errorf("DocumentPath = %q", cfg.DocumentPath())
	}
}
