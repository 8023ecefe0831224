// Package errors provides the structured error type shared by the event bus
// and its Redis backends. Every error carries a machine-readable code and a
// retryable flag so callers can decide whether to resend a request.
package errors
