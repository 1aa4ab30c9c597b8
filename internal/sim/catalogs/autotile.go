package catalogs

import (
	"fmt"
	"strings"
)

// AutoTileType selects one orientation variant inside an auto-tile family.
// The ordinal is persisted in scene files, so constants may only be appended.
type AutoTileType int32

const (
	AutoInner AutoTileType = iota
	AutoCornerTopLeft
	AutoCornerTopRight
	AutoCornerBottomLeft
	AutoCornerBottomRight
	AutoEdgeTop
	AutoEdgeBottom
	AutoEdgeLeft
	AutoEdgeRight
	AutoPadTopLeft
	AutoPadTopRight
	AutoPadBottomLeft
	AutoPadBottomRight
	AutoStart

	autoTileTypeCount
)

var autoTileTypeNames = [...]string{
	AutoInner:             "INNER",
	AutoCornerTopLeft:     "CORNER_TOP_LEFT",
	AutoCornerTopRight:    "CORNER_TOP_RIGHT",
	AutoCornerBottomLeft:  "CORNER_BOTTOM_LEFT",
	AutoCornerBottomRight: "CORNER_BOTTOM_RIGHT",
	AutoEdgeTop:           "EDGE_TOP",
	AutoEdgeBottom:        "EDGE_BOTTOM",
	AutoEdgeLeft:          "EDGE_LEFT",
	AutoEdgeRight:         "EDGE_RIGHT",
	AutoPadTopLeft:        "PAD_TOP_LEFT",
	AutoPadTopRight:       "PAD_TOP_RIGHT",
	AutoPadBottomLeft:     "PAD_BOTTOM_LEFT",
	AutoPadBottomRight:    "PAD_BOTTOM_RIGHT",
	AutoStart:             "START",
}

// AutoTileTypes returns every variant in ordinal order.
func AutoTileTypes() []AutoTileType {
	out := make([]AutoTileType, 0, autoTileTypeCount)
	for t := AutoTileType(0); t < autoTileTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// AutoTileTypeFromOrdinal validates a persisted ordinal.
func AutoTileTypeFromOrdinal(ord int32) (AutoTileType, bool) {
	if ord < 0 || ord >= int32(autoTileTypeCount) {
		return 0, false
	}
	return AutoTileType(ord), true
}

// ParseAutoTileType accepts the upper-case names used in tileset files.
func ParseAutoTileType(s string) (AutoTileType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range autoTileTypeNames {
		if name == s {
			return AutoTileType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown auto tile type %q", s)
}

func (t AutoTileType) Valid() bool { return t >= 0 && t < autoTileTypeCount }

func (t AutoTileType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("AutoTileType(%d)", int32(t))
	}
	return autoTileTypeNames[t]
}

// AutoTile is one concrete variant of a family. Tiles hold a pointer to it.
type AutoTile struct {
	Family *AutoTiles
	Type   AutoTileType
	Region int // atlas region index
}

// FamilyName is the name persisted alongside the variant ordinal.
func (a *AutoTile) FamilyName() string {
	if a == nil || a.Family == nil {
		return ""
	}
	return a.Family.Name
}

// AutoTiles is a named family of auto-tile variants.
type AutoTiles struct {
	Name       string
	BaseRegion int

	variants map[AutoTileType]*AutoTile
}

// NewAutoTiles builds a family. With no variants listed, every type is present.
func NewAutoTiles(name string, baseRegion int, variants ...AutoTileType) *AutoTiles {
	if len(variants) == 0 {
		variants = AutoTileTypes()
	}
	f := &AutoTiles{
		Name:       name,
		BaseRegion: baseRegion,
		variants:   make(map[AutoTileType]*AutoTile, len(variants)),
	}
	for _, t := range variants {
		if !t.Valid() {
			continue
		}
		f.variants[t] = &AutoTile{Family: f, Type: t, Region: baseRegion + int(t)}
	}
	return f
}

// AutoTile returns the family's variant t.
func (f *AutoTiles) AutoTile(t AutoTileType) (*AutoTile, error) {
	if a, ok := f.variants[t]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("auto tile family %q has no %s variant: %w", f.Name, t, errUnresolved)
}

// First returns the lowest-ordinal variant, or nil for an empty family.
func (f *AutoTiles) First() *AutoTile {
	for _, t := range AutoTileTypes() {
		if a, ok := f.variants[t]; ok {
			return a
		}
	}
	return nil
}
