package model

// Record is one commit log entry: the mutating command that was applied,
// with the sequence number assigned when it was durably appended.
// Sequence numbers establish the total order used during replay.
type Record struct {
	Sequence uint64
	Cmd      *Value
}
