// Package window maintains the in-memory registry of window records.
//
// The registry tracks two independent facts per id: whether a record
// exists, and whether the window is currently open. Records can outlive
// their windows (closed but not purged) until Cleanup runs. Ids are
// allocated monotonically and never reused for the registry's lifetime.
//
// Mutations referencing an unknown id are silent no-ops: the registry
// logs a diagnostic and returns false, but never errors. Callers that
// need certainty re-read state.
package window
