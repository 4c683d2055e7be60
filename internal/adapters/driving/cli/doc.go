// Package cli wires the cobra command surface: sync, reprocess, init,
// and version.
package cli
