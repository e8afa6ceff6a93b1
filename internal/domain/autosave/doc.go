// Package autosave turns interaction events into debounced workspace
// saves fanned out to one or more destinations.
//
// Events enter a FIFO queue and are drained by a single goroutine; each
// processed event exports the current workspace once and writes the
// bytes to every enabled destination. Focus-gained events are never
// saved, focus-lost and movement-stopped saves sit behind config
// switches, and a bounded history of per-destination results is kept
// for observability. Failures are recorded, never retried.
package autosave
