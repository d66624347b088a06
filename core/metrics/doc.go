// Package metrics defines the sinks that receive simulation, revenue and
// sizing events. Sinks are created from configuration through a factory
// registry; NewMetricsSink returns a MultiSink automatically when several
// sinks are configured. Optional capabilities are expressed as separate
// recorder interfaces and discovered by type assertion.
package metrics
