package unit

import "github.com/alekseev-bro/warcore/pkg/aggregate"

// Event kind names as written to the event log.
const (
	KindUnitCreated   = "UnitCreated"
	KindUnitMoved     = "UnitMoved"
	KindUnitAttacked  = "UnitAttacked"
	KindUnitDestroyed = "UnitDestroyed"
	KindUnitDamaged   = "UnitDamaged"
)

// StoreOptions registers the unit events with an aggregate store.
func StoreOptions() []aggregate.StoreOption[Unit] {
	return []aggregate.StoreOption[Unit]{
		aggregate.WithEvent[UnitCreated, Unit](KindUnitCreated),
		aggregate.WithEvent[UnitMoved, Unit](KindUnitMoved),
		aggregate.WithEvent[UnitAttacked, Unit](KindUnitAttacked),
		aggregate.WithEvent[UnitDestroyed, Unit](KindUnitDestroyed),
		aggregate.WithEvent[UnitDamaged, Unit](KindUnitDamaged),
	}
}
