package natsstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alekseev-bro/warcore/internal/driver/snapshot/snapnats"
	"github.com/alekseev-bro/warcore/pkg/game"
	"github.com/alekseev-bro/warcore/pkg/natsstore"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

func TestNames(t *testing.T) {
	games, units := natsstore.StreamName[game.Game](), natsstore.StreamName[unit.Unit]()
	assert.Regexp(t, `^aggregate-Game-[A-Za-z0-9_-]{8}$`, games)
	assert.Regexp(t, `^aggregate-Unit-[A-Za-z0-9_-]{8}$`, units)
	assert.NotContains(t, games, ".")

	assert.Equal(t, "snapshot-Unit", snapnats.BucketName("Unit"))
}
