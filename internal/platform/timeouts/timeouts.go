// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between boundaries and makes the
// durations discoverable.
package timeouts

import "time"

// SyncPageFetch caps a single leaderboard page request against an external
// leveling platform. A slow source surfaces a transport error instead of
// stalling the whole import.
const SyncPageFetch = 10 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// HistoryFlush caps one tracker snapshot pass over recently active members.
const HistoryFlush = 30 * time.Second

// DigestBroadcast caps one digest pass over every community with updates
// enabled.
const DigestBroadcast = 60 * time.Second
