// Package logger provides structured logging for the redis manager
// using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Loggers created with WithContext pick up the
// OpenTelemetry trace and span ids of the active span so bus traffic can be
// correlated across services.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("bus")
//	log.Info("subscribed", logger.Fields(logger.FieldChannel, "redis-manager"))
package logger
