package core

// Frame is a raw serialized signaling payload. The relay never inspects
// its contents beyond the outer envelope.
type Frame []byte

// SignalConnection abstracts the per-peer messaging transport.
// Owned by the adapter; the adapter must Close() it. Close is idempotent.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
