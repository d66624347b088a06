package metrics

import "github.com/kilianp07/bessim/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen is the address of the Prometheus /metrics endpoint, e.g. ":9100".
	// Empty disables the endpoint.
	Listen string `json:"listen"`
}
