// Package rag implements the retrieval-augmented generation pipeline
// behind the medical assistant.
//
// One chat turn flows through four stages:
//
//	embed query → nearest-neighbor lookup → prompt composition → LLM completion
//
// The entry points are System.Answer for a chat turn and System.Greet
// for the session-resumption greeting. Both uphold the same outward
// contract: they always return user-presentable text and never
// propagate an error or a panic to the caller. Dependency failures
// degrade to fixed fallback sentences while the root cause is logged.
//
// A System value owns the shared handles (LLM client, embedder, vector
// index). The vector index is opened lazily on first use behind a
// mutex, so concurrent first callers initialize it exactly once, and a
// failed open is retried on the next request rather than poisoning the
// process.
package rag
