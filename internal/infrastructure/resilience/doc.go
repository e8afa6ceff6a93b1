// Package resilience provides a three-state circuit breaker (closed,
// open, half-open). The remote autosave destination routes its uploads
// through a breaker so a dead notebook server degrades to fast local
// failures instead of stalling the drain loop on timeouts.
package resilience
