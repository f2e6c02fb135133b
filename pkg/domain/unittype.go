package domain

import (
	"fmt"
	"strings"
)

type UnitType uint8

const (
	Warrior UnitType = iota + 1
	Settler
	Archer
	Cavalry
	Scout
	SiegeEngine
)

// UnitTypes lists every unit type in declaration order.
var UnitTypes = []UnitType{Warrior, Settler, Archer, Cavalry, Scout, SiegeEngine}

type UnitStats struct {
	Name          string
	AttackPower   int
	DefensePower  int
	MaxHealth     int
	MovementRange int
}

var unitStats = map[UnitType]UnitStats{
	Warrior:     {Name: "Warrior", AttackPower: 15, DefensePower: 12, MaxHealth: 100, MovementRange: 2},
	Settler:     {Name: "Settler", AttackPower: 0, DefensePower: 2, MaxHealth: 50, MovementRange: 2},
	Archer:      {Name: "Archer", AttackPower: 12, DefensePower: 8, MaxHealth: 75, MovementRange: 2},
	Cavalry:     {Name: "Cavalry", AttackPower: 18, DefensePower: 10, MaxHealth: 120, MovementRange: 4},
	Scout:       {Name: "Scout", AttackPower: 8, DefensePower: 6, MaxHealth: 60, MovementRange: 5},
	SiegeEngine: {Name: "SiegeEngine", AttackPower: 25, DefensePower: 5, MaxHealth: 80, MovementRange: 1},
}

func (t UnitType) Stats() (UnitStats, bool) {
	s, ok := unitStats[t]
	return s, ok
}

func (t UnitType) Valid() bool {
	_, ok := unitStats[t]
	return ok
}

func (t UnitType) AttackPower() int   { return unitStats[t].AttackPower }
func (t UnitType) DefensePower() int  { return unitStats[t].DefensePower }
func (t UnitType) MaxHealth() int     { return unitStats[t].MaxHealth }
func (t UnitType) MovementRange() int { return unitStats[t].MovementRange }

func (t UnitType) String() string {
	if s, ok := unitStats[t]; ok {
		return s.Name
	}
	return fmt.Sprintf("UnitType(%d)", uint8(t))
}

// ParseUnitType maps a unit type name to its value, ignoring case.
func ParseUnitType(name string) (UnitType, error) {
	for _, t := range UnitTypes {
		if strings.EqualFold(unitStats[t].Name, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown unit type %q", name)
}

func (t UnitType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown unit type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *UnitType) UnmarshalText(b []byte) error {
	v, err := ParseUnitType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
