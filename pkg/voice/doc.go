// Package voice orchestrates a realtime, tool-augmented voice session
// against the agent's HTTP API: credential exchange, connection
// lifecycle, transcript accumulation, and tool dispatch.
package voice
