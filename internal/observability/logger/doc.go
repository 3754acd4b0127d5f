// Package logger provides a singleton zap logger with context-based scoping.
//
// Initialize once in main:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// In handlers and services, pull the request-scoped logger from the context:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Callback"))
//	log.Info("connection stored", logger.Platform("linkedin"))
//
// Middlewares inject a scoped logger (request_id, method, path) via ToContext;
// From falls back to the singleton when no scoped logger is present.
package logger
