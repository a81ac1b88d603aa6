package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override file values. Secrets usually live
// here rather than in the config file.
const (
	EnvBotToken        = "TELEGRAM_BOT_TOKEN"
	EnvUserID          = "TELEGRAM_USER_ID"
	EnvBackendHost     = "TRILIUM_HOST"
	EnvBackendUser     = "TRILIUM_USER"
	EnvBackendPassword = "TRILIUM_PASSWORD"
	EnvBackendToken    = "TRILIUM_TOKEN"
)

// ApplyEnv overwrites cfg fields with non-empty variables from getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil || getenv == nil {
		return nil
	}
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	str(EnvBotToken, &cfg.Telegram.Token)
	str(EnvBackendHost, &cfg.Backend.BaseURL)
	str(EnvBackendUser, &cfg.Backend.Username)
	str(EnvBackendPassword, &cfg.Backend.Password)
	str(EnvBackendToken, &cfg.Backend.Token)

	if v := strings.TrimSpace(getenv(EnvUserID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid user id %q: %w", EnvUserID, v, err)
		}
		cfg.Telegram.OwnerUserID = id
	}
	return nil
}
