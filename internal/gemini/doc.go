// Package gemini is the HTTP client for the Google Generative Language
// API. It provides text completion (generateContent) and embedding
// generation (embedContent) over the REST surface.
//
// Two call surfaces are exposed:
//
//   - Generate and Embed return typed errors (ErrNotConfigured,
//     ErrTransport, ErrMalformedResponse, *StatusError) for callers
//     that need to branch on the failure kind.
//   - Complete never fails: it maps every error kind to a fixed,
//     user-safe fallback sentence and logs the root cause. This is the
//     surface the chat pipeline uses, so a dependency outage can never
//     leak a stack trace or a raw API body to the end user.
//
// Transient failures (429, 5xx, connection errors, timeouts) are
// retried with bounded exponential backoff; every attempt passes
// through a shared rate limiter.
package gemini
