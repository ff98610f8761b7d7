package core

// SessionID identifies one live connection for its whole lifetime.
type SessionID string

// Conn abstracts a connection's outbound write path.
// Owned by the transport adapter; the adapter must Close() it.
// TrySend must never block: it enqueues or fails.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the router.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}
