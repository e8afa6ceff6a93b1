// Package types defines the shared data model for the workspace backend.
//
// It contains the window record and its typed payloads, the notebook wire
// format (nbformat 4), workspace metadata records, and the autosave event
// taxonomy. Domain packages depend on these types; they never depend on
// each other's internals.
package types
