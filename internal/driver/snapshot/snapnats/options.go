package snapnats

import "github.com/nats-io/nats.go/jetstream"

type StoreType jetstream.StorageType

const (
	Disk StoreType = iota
	Memory
)

type SnapshotStoreConfig struct {
	StoreType StoreType
}
