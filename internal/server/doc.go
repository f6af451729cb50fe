// Package server exposes a loaded runtime over HTTP.
//
// Routes:
//
//	GET  /health           counters, policy and state file presence
//	GET  /ai/meta          core buffer sizes
//	GET  /ai/render/{id}   record counts and source preview of one artifact
//	POST /ai/db/exec       {"opId": N, "args": [...]} dry-run dispatch
//
// Every response is JSON. Failures are {"ok":0,"err":"<reason>"} with a
// short, stable reason string; accepted dispatches are
// {"ok":1,"result":{...}}.
//
// Requests pass admission first: an open circuit answers 503
// "circuit-open", an exhausted token bucket answers 429 "rate-limit", and
// each admitted request ticks the drift monitor.
package server
