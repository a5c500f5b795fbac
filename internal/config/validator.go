package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// knownEpochs lists the packet revisions the gateway can speak.
var knownEpochs = map[string]bool{
	"20120307": true,
	"20220406": true,
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateGameData(&cfg.GameData, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateGameData(data *GameData, result *ValidationResult) {
	if strings.TrimSpace(data.Username) == "" {
		result.AddError("game_data.acc_username", "account username is required")
	}

	if strings.TrimSpace(data.Password) == "" {
		result.AddError("game_data.acc_password", "account password is required")
	}

	if strings.TrimSpace(data.LoginAddress) == "" {
		result.AddError("game_data.svr_login_address", "login server address is required")
	} else if _, _, err := net.SplitHostPort(data.LoginAddress); err != nil {
		result.AddError("game_data.svr_login_address",
			fmt.Sprintf("invalid address %q: expected host:port", data.LoginAddress))
	}

	if !knownEpochs[data.Epoch] {
		result.AddError("game_data.proto_epoch",
			fmt.Sprintf("unknown protocol epoch %q", data.Epoch))
	}

	switch data.MalformedPolicy {
	case "", "drop", "disconnect":
	default:
		result.AddError("game_data.malformed_frame_policy",
			fmt.Sprintf("unknown policy %q: expected drop or disconnect", data.MalformedPolicy))
	}

	if data.RealmIndex < 0 {
		result.AddError("game_data.realm_index", "realm index cannot be negative")
	}

	if data.KeepaliveSec < 1 {
		result.AddWarning("game_data.keepalive_interval_sec",
			"keepalive under 1 second, using default")
	} else if data.KeepaliveSec > 60 {
		result.AddWarning("game_data.keepalive_interval_sec",
			"keepalive over 60 seconds may get the session dropped as idle")
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	if data.API.Enabled {
		validatePort(data.API.Port, "application_data.api.port", result)
	}

	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application_data.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application_data.mqtt.port", "invalid MQTT port")
		}
	}

	if data.Journal.Enabled {
		if strings.TrimSpace(data.Journal.Path) == "" {
			result.AddError("application_data.journal.path", "journal path is required when enabled")
		}
		if data.Journal.RetentionDays < 1 {
			result.AddError("application_data.journal.retention_days",
				"retention days must be at least 1")
		}
	}

	if data.Security.TLSEnabled {
		if strings.TrimSpace(data.Security.TLSCertFile) == "" {
			result.AddError("application_data.security.tls_cert_file",
				"TLS certificate file is required when TLS is enabled")
		}
		if strings.TrimSpace(data.Security.TLSKeyFile) == "" {
			result.AddError("application_data.security.tls_key_file",
				"TLS key file is required when TLS is enabled")
		}
	}

	if data.Security.RateLimitRPS < 1 {
		result.AddWarning("application_data.security.rate_limit_rps",
			"rate limit is disabled (0 RPS), this may expose the API to abuse")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
