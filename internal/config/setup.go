package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunSetupWizard guides the user through first-time configuration.
func RunSetupWizard(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║          ragnet - First Run Setup            ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Println("║  Welcome! Let's configure your gateway.      ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("── Account ──")

	cfg.GameData.Username = promptString(reader, "Account username", cfg.GameData.Username)
	cfg.GameData.Password = promptPassword(reader, "Account password")

	fmt.Println()
	fmt.Println("── Login Server ──")

	cfg.GameData.LoginAddress = promptString(reader, "Login server address (host:port)", cfg.GameData.LoginAddress)
	cfg.GameData.Epoch = promptString(reader, "Protocol epoch (20120307 or 20220406)", cfg.GameData.Epoch)
	cfg.GameData.ClientVersion = uint32(promptInt(reader, "Client version", int(cfg.GameData.ClientVersion)))

	fmt.Println()
	fmt.Println("── Selection ──")

	cfg.GameData.RealmIndex = promptInt(reader, "Realm index", cfg.GameData.RealmIndex)
	cfg.GameData.CharSlot = uint8(promptInt(reader, "Character slot", int(cfg.GameData.CharSlot)))

	fmt.Println()
	fmt.Println("── Session ──")

	cfg.GameData.MalformedPolicy = promptString(reader,
		"Malformed frame policy (drop/disconnect)", cfg.GameData.MalformedPolicy)

	fmt.Println()
	fmt.Println("── REST API ──")

	cfg.ApplicationData.API.Enabled = promptBool(reader, "Enable REST API", cfg.ApplicationData.API.Enabled)
	if cfg.ApplicationData.API.Enabled {
		cfg.ApplicationData.API.Port = promptInt(reader, "API port", cfg.ApplicationData.API.Port)
	}

	fmt.Println()
	fmt.Println("── MQTT Telemetry ──")

	cfg.ApplicationData.MQTT.Enabled = promptBool(reader, "Enable MQTT telemetry", cfg.ApplicationData.MQTT.Enabled)
	if cfg.ApplicationData.MQTT.Enabled {
		cfg.ApplicationData.MQTT.BrokerURL = promptString(reader, "MQTT broker URL", cfg.ApplicationData.MQTT.BrokerURL)
	}

	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Println("\n⚠ Configuration has errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - [%s] %s\n", e.Field, e.Message)
		}
		retry := promptString(reader, "Would you like to try again? (yes/no)", "yes")
		if strings.ToLower(retry) == "yes" {
			return RunSetupWizard(cfg)
		}
		return fmt.Errorf("configuration validation failed")
	}

	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved successfully!")
	fmt.Println("  ragnet will now start with your configuration.")
	fmt.Println()

	return nil
}

func promptString(reader *bufio.Reader, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptPassword(reader *bufio.Reader, prompt string) string {
	fmt.Printf("  %s: ", prompt)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptInt(reader *bufio.Reader, prompt string, defaultVal int) int {
	fmt.Printf("  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Printf("    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Printf("  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}

	return input == "yes" || input == "y" || input == "true" || input == "1"
}
