// Package memory provides in-memory implementations of the document
// store and sync state store. Used by tests and dry runs.
package memory
