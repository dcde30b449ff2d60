// Package devtools exposes a strand runtime's diagnostic surface over HTTP:
// graph snapshots, a recorded write history for time-travel tooling, runtime
// counters, Prometheus metrics, and a websocket stream of live graph updates.
//
// Everything in this package is read-only with respect to the reactive graph.
// Snapshots are taken through Runtime.Dispatch, so a devtools server can run
// alongside a runtime owned by another goroutine.
package devtools
