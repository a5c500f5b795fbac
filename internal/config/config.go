// Package config handles configuration loading, validation, and
// persistence for the ragnet gateway.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultAPIPort    = 5000
	DefaultLoginPort  = 6900

	DefaultEpoch = "20120307"
)

// Config is the root configuration structure for ragnet.
type Config struct {
	mu   sync.RWMutex
	path string

	GameData        GameData        `json:"game_data"`
	ApplicationData ApplicationData `json:"application_data"`
}

// GameData configures the game-server session: where to connect, who
// to log in as, and which packet revision to speak.
type GameData struct {
	// Account
	Username string `json:"acc_username"`
	Password string `json:"acc_password"`

	// Login server
	LoginAddress string `json:"svr_login_address"`

	// Protocol revision, e.g. "20120307" or "20220406". Fixed for the
	// whole session.
	Epoch string `json:"proto_epoch"`

	// Client identity sent in the login packet
	ClientVersion uint32 `json:"client_version"`
	ClientType    uint8  `json:"client_type"`

	// Selection once connected
	RealmIndex int   `json:"realm_index"`
	CharSlot   uint8 `json:"char_slot"`

	// Session behavior
	KeepaliveSec    int    `json:"keepalive_interval_sec"`
	MalformedPolicy string `json:"malformed_frame_policy"` // "drop" or "disconnect"
}

// ApplicationData contains gateway application configuration.
type ApplicationData struct {
	API      APIConfig     `json:"api"`
	MQTT     MQTTConfig    `json:"mqtt"`
	Journal  JournalConfig `json:"journal"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
	Topic     string `json:"topic"`
}

// JournalConfig holds event journal settings.
type JournalConfig struct {
	Enabled       bool   `json:"enabled"`
	Path          string `json:"path"`
	RetentionDays int    `json:"retention_days"`
	PruneTime     string `json:"prune_time"` // "HH:MM", local time
}

// SecurityConfig holds security-related settings for the API surface.
type SecurityConfig struct {
	TLSEnabled     bool     `json:"tls_enabled"`
	TLSCertFile    string   `json:"tls_cert_file"`
	TLSKeyFile     string   `json:"tls_key_file"`
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GameData: GameData{
			LoginAddress:    fmt.Sprintf("127.0.0.1:%d", DefaultLoginPort),
			Epoch:           DefaultEpoch,
			ClientVersion:   55,
			ClientType:      0,
			RealmIndex:      0,
			CharSlot:        0,
			KeepaliveSec:    12,
			MalformedPolicy: "drop",
		},
		ApplicationData: ApplicationData{
			API: APIConfig{
				Enabled: true,
				Port:    DefaultAPIPort,
			},
			MQTT: MQTTConfig{
				Enabled:   false,
				Port:      8883,
				UseTLS:    true,
				Topic:     "ragnet/events",
			},
			Journal: JournalConfig{
				Enabled:       true,
				Path:          filepath.Join("data", "journal.db"),
				RetentionDays: 7,
				PruneTime:     "04:00",
			},
			Security: SecurityConfig{
				RateLimitRPS: 100,
			},
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxSizeMB:  10,
				MaxBackups: 5,
			},
		},
	}
}

// Load reads configuration from a JSON file.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save to persist any new default fields added in code updates,
	// so config.json always reflects the complete set of options.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetGameData returns a copy of the game session configuration.
func (c *Config) GetGameData() GameData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GameData
}

// SetGameData updates the game session configuration.
func (c *Config) SetGameData(data GameData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GameData = data
}

// GetApplicationData returns a copy of the application configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// SetApplicationData updates the application configuration.
func (c *Config) SetApplicationData(data ApplicationData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplicationData = data
}

// UpdateGameField updates a specific field in game data by its JSON
// key.
func (c *Config) UpdateGameField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.GameData)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	m[key] = value

	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.GameData); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}

	return nil
}

// UpdateAppField updates a specific field in application data by its
// JSON key.
func (c *Config) UpdateAppField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.ApplicationData)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	m[key] = value

	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.ApplicationData); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}

	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// IsFirstRun returns true if the configuration needs initial setup.
func (c *Config) IsFirstRun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GameData.Username == ""
}
