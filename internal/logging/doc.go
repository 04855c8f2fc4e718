// Package logging configures structured slog output for amanscout.
//
// Logs are JSON lines written to ~/.amanscout/logs/amanscout.log with size based
// rotation. CLI runs tee to stderr; the MCP server never writes to stdout or stderr
// because stdout carries the JSON-RPC stream.
package logging
