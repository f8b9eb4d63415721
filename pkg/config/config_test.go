package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BasePath != "/admin" {
		t.Errorf("expected base_path=/admin, got %s", cfg.Server.BasePath)
	}
	if cfg.Queue.LoginFailureCooldown != 30*time.Second {
		t.Errorf("expected login_failure_cooldown=30s, got %s", cfg.Queue.LoginFailureCooldown)
	}
	if cfg.Queue.RejectionCooldown != 60*time.Second {
		t.Errorf("expected rejection_cooldown=60s, got %s", cfg.Queue.RejectionCooldown)
	}
	if cfg.Storage.Driver != DriverFile {
		t.Errorf("expected driver=file, got %s", cfg.Storage.Driver)
	}
}

func TestLoad_RequiresPath(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when no config path is given")
	}
	if !strings.Contains(err.Error(), EnvVar) {
		t.Errorf("error should name %s, got %q", EnvVar, err.Error())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rota.yaml")
	content := `
server:
  listen: 0.0.0.0:9000
queue:
  rejection_cooldown: 2m
login:
  url: https://provider.example/login
  token_field: data.user.token
  headers:
    X-Client: rota
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvVar, configPath)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("expected listen=0.0.0.0:9000, got %s", cfg.Server.Listen)
	}
	if cfg.Queue.RejectionCooldown != 2*time.Minute {
		t.Errorf("expected rejection_cooldown=2m, got %s", cfg.Queue.RejectionCooldown)
	}
	// untouched values keep their defaults
	if cfg.Queue.LoginFailureCooldown != 30*time.Second {
		t.Errorf("expected login_failure_cooldown=30s, got %s", cfg.Queue.LoginFailureCooldown)
	}
	if cfg.Login.TokenField != "data.user.token" {
		t.Errorf("expected token_field=data.user.token, got %s", cfg.Login.TokenField)
	}
	if cfg.Login.Headers["X-Client"] != "rota" {
		t.Errorf("expected header X-Client=rota, got %v", cfg.Login.Headers)
	}
}

func TestParse_ExpandsVariables(t *testing.T) {
	t.Setenv("ROTA_TEST_DSN", "postgres://u:p@db/rota")

	cfg, err := Parse([]byte(`
login:
  url: https://provider.example/login
storage:
  driver: postgres
  dsn: ${ROTA_TEST_DSN}
server:
  admin_key_hash: ${ROTA_TEST_UNSET:-fallback}
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Storage.DSN != "postgres://u:p@db/rota" {
		t.Errorf("expected expanded dsn, got %s", cfg.Storage.DSN)
	}
	if cfg.Server.AdminKeyHash != "fallback" {
		t.Errorf("expected default value, got %s", cfg.Server.AdminKeyHash)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing login url",
			content: "storage:\n  driver: file\n",
			wantErr: "login.url",
		},
		{
			name:    "unknown driver",
			content: "login:\n  url: http://x\nstorage:\n  driver: redis\n",
			wantErr: "storage.driver",
		},
		{
			name:    "postgres without dsn",
			content: "login:\n  url: http://x\nstorage:\n  driver: postgres\n",
			wantErr: "storage.dsn",
		},
		{
			name:    "negative cooldown",
			content: "login:\n  url: http://x\nqueue:\n  rejection_cooldown: -1s\n",
			wantErr: "cooldowns",
		},
		{
			name:    "bad log format",
			content: "login:\n  url: http://x\nlog:\n  format: xml\n",
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
