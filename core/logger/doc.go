// Package logger provides slog attribute helpers shared across the gateway.
//
// Helpers return an empty Attr for nil or zero input, so call sites never need
// explicit nil checks:
//
//	log.Warn("display info persist failed", logger.Component("session"), logger.Error(err))
package logger
