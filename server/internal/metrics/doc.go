// Package metrics holds the server's Prometheus instrumentation. All
// collectors register against an injected registry so tests and multiple
// servers in one process do not collide on the global one.
package metrics
