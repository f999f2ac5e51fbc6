package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks everything that can be checked without the network:
// credentials, the chat id format, durations and the storage block.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := CheckCredentials(cfg); err != nil {
		return err
	}
	if _, err := ChatID(cfg); err != nil {
		return err
	}
	if _, err := ParseDurationField("practicum.timeout", cfg.Practicum.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.timeout", cfg.Telegram.Timeout); err != nil {
		return err
	}
	if cfg.Telegram.ThreadID < 0 {
		return errors.New("telegram.thread_id must be >= 0")
	}
	if cfg.Telegram.RatePerSec < 0 {
		return errors.New("telegram.rate_per_sec must be >= 0")
	}
	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(st.Path) == "" {
				return fmt.Errorf("storage.path is required for driver %q", st.Driver)
			}
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", st.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// ChatID parses telegram.chat_id as a numeric Telegram chat id.
func ChatID(cfg *Config) (int64, error) {
	raw := strings.TrimSpace(cfg.Telegram.ChatID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id: invalid chat id %q", raw)
	}
	if id == 0 {
		return 0, errors.New("telegram.chat_id must not be 0")
	}
	return id, nil
}
