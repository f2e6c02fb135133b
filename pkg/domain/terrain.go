package domain

import (
	"fmt"
	"strings"
)

type Terrain uint8

const (
	Plains Terrain = iota
	Forest
	Hills
	Desert
	Mountains
	Water
)

var terrainNames = map[Terrain]string{
	Plains:    "Plains",
	Forest:    "Forest",
	Hills:     "Hills",
	Desert:    "Desert",
	Mountains: "Mountains",
	Water:     "Water",
}

// Passable reports whether land units may stand on the terrain.
func (t Terrain) Passable() bool {
	switch t {
	case Plains, Forest, Hills, Desert:
		return true
	default:
		return false
	}
}

func (t Terrain) String() string {
	if n, ok := terrainNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Terrain(%d)", uint8(t))
}

func ParseTerrain(name string) (Terrain, error) {
	for t, n := range terrainNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", name)
}
