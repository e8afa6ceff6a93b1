// Package logging provides structured logging using uber/zap.
//
// Two modes: production (JSON output) and development (colored console).
// Domain packages receive a *Logger by injection; none construct their own.
package logging
