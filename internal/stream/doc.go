// Package stream implements the push channel: a single WebSocket
// connection to the backend's /ws endpoint carrying {"type","data"}
// envelopes. Topic handlers register through Subscribe and run in
// registration order on the read-loop goroutine. Reconnects after a
// drop are governed by a RetryPolicy; at most one reconnect is ever
// pending.
package stream
