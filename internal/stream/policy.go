package stream

import "time"

// DefaultReconnectDelay is the wait between a drop and the next dial.
const DefaultReconnectDelay = 2 * time.Second

// RetryPolicy decides how long to wait before reconnect attempt n
// (1-based). The client asks once per scheduled retry; a policy that
// wants backoff can key off the attempt number.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same duration before every attempt.
type FixedDelay struct {
	Delay time.Duration
}

// NextDelay returns the fixed delay regardless of attempt count.
func (p FixedDelay) NextDelay(int) time.Duration {
	return p.Delay
}
