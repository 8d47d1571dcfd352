// Package logging provides structured logging for the facility service.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// Configuration lives in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	compilerLog := logger.Component("compiler")
//	compilerLog.Info("manifest compiled", "site_id", siteID, "date", date)
//
// Never log secrets, tokens, or broker passwords.
package logging
