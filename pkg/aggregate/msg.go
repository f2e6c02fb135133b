package aggregate

import "time"

// Msg is a serialized event ready to be appended to a stream.
type Msg struct {
	ID   ID
	Kind string
	Body []byte
}

type Version struct {
	Sequence  uint64
	Timestamp time.Time
}

// StoredMsg is a message as read back from a stream.
type StoredMsg struct {
	Msg
	Version
	AggregateID ID
}
