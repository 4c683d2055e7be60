// Package filestore implements the cursor-based sync engine for the
// remote file store source. A run resumes from the persisted cursor
// (or bootstraps with a full recursive listing), walks every change
// page, and persists the new cursor only after the full pass.
package filestore
