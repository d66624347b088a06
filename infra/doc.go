// Package infra groups the adapters behind the core interfaces: the zerolog
// logger, metrics sinks, the MQTT client, Sentry monitoring and the CSV
// series reader. Core packages never import infra.
package infra
