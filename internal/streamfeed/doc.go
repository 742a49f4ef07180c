// Package streamfeed provides the WebSocket client behind the "events"
// service.
//
// Dial establishes the connection and starts two goroutines:
//   - a read loop that delivers every frame to Messages with a local
//     receive timestamp
//   - a heartbeat loop that pings the server and watches for staleness
//
// Connection problems surface on Errors rather than as panics or
// blocked reads, so the owning connection manager can react. Messages
// is closed when the read loop exits; consumers can range over it.
package streamfeed
