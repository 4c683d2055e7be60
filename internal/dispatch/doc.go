// Package dispatch fans independent ingestion work items out over a
// goroutine pool. Every worker owns its own client, splitter, and
// indexer, so no remote session or mutable pipeline state is shared.
package dispatch
