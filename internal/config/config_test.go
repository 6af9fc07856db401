package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("creating temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
access_token: "sq-token"
environment: production
currency: GBP
request_timeout: 5s
sync_interval: 10m
admin_listen: "127.0.0.1:8642"
membership_category: Memberships
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessToken != "sq-token" {
		t.Errorf("AccessToken = %q", cfg.AccessToken)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.Currency != "GBP" {
		t.Errorf("Currency = %q, want GBP", cfg.Currency)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.AdminListen != "127.0.0.1:8642" {
		t.Errorf("AdminListen = %q", cfg.AdminListen)
	}
	if cfg.MembershipCategory != "Memberships" {
		t.Errorf("MembershipCategory = %q", cfg.MembershipCategory)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
access_token: "sq-token"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "sandbox" {
		t.Errorf("Environment = %q, want sandbox default", cfg.Environment)
	}
	if cfg.Currency != "USD" {
		t.Errorf("Currency = %q, want USD default", cfg.Currency)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s default", cfg.RequestTimeout)
	}
	if cfg.SyncInterval != 15*time.Minute {
		t.Errorf("SyncInterval = %v, want 15m default", cfg.SyncInterval)
	}
}

func TestLoad_EnvTokenOverridesFile(t *testing.T) {
	t.Setenv("SQUARE_ACCESS_TOKEN", "env-token")
	path := writeConfig(t, `
access_token: "file-token"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AccessToken != "env-token" {
		t.Errorf("AccessToken = %q, want env override", cfg.AccessToken)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("SQUARE_ACCESS_TOKEN", "")
	path := writeConfig(t, `
environment: sandbox
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "access_token") {
		t.Fatalf("error = %v, want access_token complaint", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			"bad environment",
			"access_token: t\nenvironment: staging\n",
			"environment",
		},
		{
			"bad currency",
			"access_token: t\ncurrency: POUNDS\n",
			"currency",
		},
		{
			"timeout too long",
			"access_token: t\nrequest_timeout: 5m\n",
			"request_timeout",
		},
		{
			"interval too short",
			"access_token: t\nsync_interval: 5s\n",
			"sync_interval",
		},
		{
			"telemetry without endpoint",
			"access_token: t\ntelemetry:\n  insecure: true\n",
			"otlp_endpoint",
		},
		{
			"unknown key",
			"access_token: t\naccess_tokn: oops\n",
			"parsing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
