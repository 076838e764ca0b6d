// Package stream holds the per-session delivery primitives: a non-blocking drop-oldest
// Queue feeding a transport, and the Registry of sessions owned by the orchestrator.
package stream
