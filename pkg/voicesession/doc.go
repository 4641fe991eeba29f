// Package voicesession tracks active realtime voice sessions in memory:
// per-session turn and tool-call counters, accumulated cost quantities
// (audio minutes, tokens), trace forwarding to an optional sink, and an
// idle-timeout sweep that ends sessions whose client never said goodbye.
//
// This is a telemetry side channel. Nothing in it returns an error to the
// caller for a live-session code path: unknown session ids no-op, sink
// failures are logged and swallowed, and end-of-session always produces a
// summary for the sessions it knows about.
package voicesession
