// Package mailbox implements the date-watermark sync engine for the
// IMAP mailbox source. Each run re-scans every configured folder from
// the last successful sync time; a per-message duplicate guard keeps
// the re-scan cheap and idempotent.
package mailbox
