package config

import "github.com/rs/zerolog"

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `json:"level"`
}

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LogConfig) Validate() error {
	_, err := zerolog.ParseLevel(c.Level)
	return err
}
