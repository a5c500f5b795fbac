package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GameData.Epoch != DefaultEpoch {
		t.Fatalf("Epoch = %q, want %q", cfg.GameData.Epoch, DefaultEpoch)
	}
	if cfg.GameData.MalformedPolicy != "drop" {
		t.Fatalf("MalformedPolicy = %q, want drop", cfg.GameData.MalformedPolicy)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !cfg.IsFirstRun() {
		t.Fatal("default config should report first run")
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"game_data": {
			"acc_username": "soldier",
			"proto_epoch": "20220406",
			"svr_login_address": "play.example.net:6900"
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GameData.Username != "soldier" {
		t.Fatalf("Username = %q", cfg.GameData.Username)
	}
	if cfg.GameData.Epoch != "20220406" {
		t.Fatalf("Epoch = %q", cfg.GameData.Epoch)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ApplicationData.Journal.RetentionDays != 7 {
		t.Fatalf("RetentionDays = %d, want default 7", cfg.ApplicationData.Journal.RetentionDays)
	}
	if cfg.IsFirstRun() {
		t.Fatal("config with a username should not report first run")
	}
}

func TestUpdateGameField(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.UpdateGameField("realm_index", 2); err != nil {
		t.Fatalf("UpdateGameField: %v", err)
	}
	if cfg.GetGameData().RealmIndex != 2 {
		t.Fatalf("RealmIndex = %d, want 2", cfg.GetGameData().RealmIndex)
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GameData.Username = "soldier"
	cfg.GameData.Password = "hunter2"

	result := Validate(cfg)
	if !result.IsValid() {
		t.Fatalf("default config invalid: %+v", result.Errors)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing username", func(c *Config) { c.GameData.Username = "" }},
		{"bad address", func(c *Config) { c.GameData.LoginAddress = "no-port" }},
		{"unknown epoch", func(c *Config) { c.GameData.Epoch = "19990101" }},
		{"unknown policy", func(c *Config) { c.GameData.MalformedPolicy = "explode" }},
		{"negative realm", func(c *Config) { c.GameData.RealmIndex = -1 }},
		{"journal without path", func(c *Config) { c.ApplicationData.Journal.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.GameData.Username = "soldier"
			cfg.GameData.Password = "hunter2"
			tc.mutate(cfg)
			if Validate(cfg).IsValid() {
				t.Fatal("validation passed for bad config")
			}
		})
	}
}
