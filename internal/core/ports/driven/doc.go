// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the document store, the embedding
// service, text extraction, and the two remote source APIs.
package driven
