// Package occupancy keeps a per-game index of the cells held by live units.
//
// Unit commands validate occupancy against a caller supplied snapshot, so two
// writers racing into one cell are not stopped by the unit aggregate itself.
// The projection is the place where such collisions become visible.
package occupancy

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
	"github.com/alekseev-bro/warcore/pkg/domain"
	"github.com/alekseev-bro/warcore/pkg/eventbus"
	"github.com/alekseev-bro/warcore/pkg/unit"
)

const aggregateKind = "unit"

// Conflict records two live units found on the same cell.
type Conflict struct {
	GameID   domain.GameID
	Position domain.Position
	Holder   domain.UnitID
	Intruder domain.UnitID
}

type cell struct {
	game domain.GameID
	pos  domain.Position
}

type Projection struct {
	mu        sync.RWMutex
	units     map[domain.UnitID]cell
	conflicts []Conflict
}

func New() *Projection {
	return &Projection{units: make(map[domain.UnitID]cell)}
}

// Subscribe feeds the projection from the unit topic of bus.
func (p *Projection) Subscribe(ctx context.Context, bus *eventbus.Bus) error {
	return bus.Subscribe(ctx, eventbus.Topic(aggregateKind), p.HandleDelivery)
}

// HandleDelivery applies a unit event received from the bus.
func (p *Projection) HandleDelivery(ctx context.Context, d eventbus.Delivery) error {
	var ev aggregate.Evolver[unit.Unit]
	switch d.Kind {
	case unit.KindUnitCreated:
		ev = new(unit.UnitCreated)
	case unit.KindUnitMoved:
		ev = new(unit.UnitMoved)
	case unit.KindUnitDestroyed:
		ev = new(unit.UnitDestroyed)
	default:
		return nil
	}
	if err := d.Decode(ev); err != nil {
		return fmt.Errorf("occupancy %s: %w", d.Kind, err)
	}
	p.Apply(ev)
	return nil
}

// HandleEvents applies a unit event delivered by an aggregate store subscription.
func (p *Projection) HandleEvents(ctx context.Context, event *aggregate.Event[unit.Unit]) error {
	p.Apply(event.Body)
	return nil
}

// Apply updates the index with one unit event. Unrelated events are ignored.
func (p *Projection) Apply(ev aggregate.Evolver[unit.Unit]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case *unit.UnitCreated:
		if e.CurrentHealth == 0 {
			return
		}
		p.place(e.UnitID, cell{game: e.GameID, pos: domain.Pos(e.X, e.Y)})
	case *unit.UnitMoved:
		c, ok := p.units[e.UnitID]
		if !ok {
			slog.Warn("occupancy: move of unknown unit", "unit_id", e.UnitID.String())
			return
		}
		c.pos = e.To()
		p.place(e.UnitID, c)
	case *unit.UnitDestroyed:
		delete(p.units, e.UnitID)
	}
}

func (p *Projection) place(id domain.UnitID, c cell) {
	for other, oc := range p.units {
		if other != id && oc == c {
			conflict := Conflict{GameID: c.game, Position: c.pos, Holder: other, Intruder: id}
			p.conflicts = append(p.conflicts, conflict)
			slog.Warn("occupancy conflict", "game_id", c.game.String(), "position", c.pos.String(),
				"holder", other.String(), "intruder", id.String())
			break
		}
	}
	p.units[id] = c
}

// Occupied returns the cells held by live units of a game, sorted by (x, y).
func (p *Projection) Occupied(gameID domain.GameID) []domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []domain.Position
	for _, c := range p.units {
		if c.game == gameID {
			out = append(out, c.pos)
		}
	}
	slices.SortFunc(out, func(a, b domain.Position) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y))
	})
	return out
}

// UnitAt returns the live unit holding pos, if any.
func (p *Projection) UnitAt(gameID domain.GameID, pos domain.Position) (domain.UnitID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for id, c := range p.units {
		if c.game == gameID && c.pos == pos {
			return id, true
		}
	}
	return domain.UnitID{}, false
}

func (p *Projection) Conflicts() []Conflict {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.conflicts)
}
