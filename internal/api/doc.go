// Package api implements the read-only HTTP API over the DBC catalog.
//
// This package provides:
//   - Snapshot listing and lookup
//   - Node, message and signal reads from a chosen snapshot
//   - Live counters of the CAN decoding bridge, when one is running
//   - Middleware stack (request ID, logging, recovery)
//
// Every catalog read accepts ?snapshot=<id>. Without it the latest snapshot
// of the configured database is served. Message ids are decimal or 0x-hex;
// raw DBC ids with bit 31 set resolve to the normalised extended message.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
