// Package domain contains the core entities of the ingestion engine:
// chunks, document metadata, indexed rows, sync state, and run counters.
// Domain types carry no behaviour beyond validation and defaulting.
package domain
