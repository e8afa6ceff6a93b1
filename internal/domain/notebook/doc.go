// Package notebook serializes window records to and from nbformat-4
// documents.
//
// Export is deterministic: the same registry contents always produce the
// same cells in the same order, with the same generated source text.
// Import is the best-effort inverse: structural fields round-trip through
// cell metadata, while payloads are recovered from generated code text by
// ordered regex matchers (first match wins). A cell that defeats the
// matchers imports as a window with raw content and no payload; that is
// not an error.
//
// Only two failures are fatal to a whole document: bytes that are not
// JSON, and JSON without a cells array. Everything else is per-cell.
package notebook
