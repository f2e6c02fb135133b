// Package snapnats keeps aggregate snapshots in a JetStream key-value bucket.
package snapnats

import (
	"context"
	"errors"
	"fmt"

	"github.com/alekseev-bro/warcore/pkg/aggregate"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketName is the KV bucket for snapshots of the aggregate type named name.
func BucketName(name string) string {
	return "snapshot-" + name
}

type snapshotStore struct {
	bucket string
	kv     jetstream.KeyValue
}

// NewSnapshotStore creates or updates the KV bucket holding snapshots for one aggregate type.
// Only the latest snapshot of each aggregate is kept.
func NewSnapshotStore(ctx context.Context, js jetstream.JetStream, name string, cfg SnapshotStoreConfig) (*snapshotStore, error) {
	bucket := BucketName(name)
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
		Storage: jetstream.StorageType(cfg.StoreType),
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot bucket %s: %w", bucket, err)
	}
	return &snapshotStore{bucket: bucket, kv: kv}, nil
}

func (s *snapshotStore) Save(ctx context.Context, key []byte, value []byte) error {
	if _, err := s.kv.Put(ctx, string(key), value); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *snapshotStore) Load(ctx context.Context, key []byte) ([]byte, error) {
	entry, err := s.kv.Get(ctx, string(key))
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, aggregate.ErrNoSnapshot
	case err != nil:
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}
	return entry.Value(), nil
}
