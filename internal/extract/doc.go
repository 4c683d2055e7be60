// Package extract converts raw document bytes into plain text. It
// handles plaintext and HTML payloads directly and extracts the
// supported members of zip archives within configurable ceilings.
package extract
