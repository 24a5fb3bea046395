// Package infra holds the adapters around the coordination core: graph file
// loading, event log stores, metrics exporters, the MQTT command bridge,
// logging backends and error monitoring. Adapters import core packages,
// never the other way round.
package infra
