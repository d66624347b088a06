package config

import "fmt"

// SentryConfig enables error reporting for failed runs. An empty DSN keeps
// monitoring disabled.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// Validate checks the sample rate.
func (s SentryConfig) Validate() error {
	if s.TracesSampleRate < 0 || s.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %v outside [0,1]", s.TracesSampleRate)
	}
	return nil
}
