// Package main is the entry point for the holodesk backend server.
//
// The server persists spatial workspaces: window records with typed
// data payloads, exported to and restored from Jupyter-compatible
// notebook documents, with a debounced autosave pipeline fanning
// snapshots out to local and remote destinations.
//
// The server provides:
//   - REST API for window and workspace management
//   - Notebook export/import endpoints
//   - WebSocket streaming of save results
//   - Prometheus metrics and rate limiting
//
// Configuration comes from environment variables, optionally overlaid
// with a TOML file via -config.
package main
