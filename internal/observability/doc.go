// Package observability carries request-scoped logging fields.
//
// The request ID (set by chi's RequestID middleware or explicitly) and the
// chat session ID travel in the request context; Logger derives a zap
// logger annotated with both.
package observability
