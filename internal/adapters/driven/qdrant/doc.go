// Package qdrant implements the document store and sync state store
// over a Qdrant instance. Chunk rows live in the documents collection;
// sync watermarks live in a one-point-per-source sync_state collection.
package qdrant
