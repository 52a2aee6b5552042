package features

import (
	"math"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/types"
)

// lanePaths approximates each lane as a polyline in map coordinates.
// Jungle has no lane, so deviation is undefined for it.
var lanePaths = map[types.Role][]model.Position{ //nolint:gochecknoglobals // read-only lookup table
	types.RoleTop:     {{X: 1200, Y: 4000}, {X: 1200, Y: 13600}, {X: 10800, Y: 13600}},
	types.RoleMiddle:  {{X: 2500, Y: 2500}, {X: 12300, Y: 12300}},
	types.RoleBottom:  {{X: 4000, Y: 1200}, {X: 13600, Y: 1200}, {X: 13600, Y: 10800}},
	types.RoleUtility: {{X: 4000, Y: 1200}, {X: 13600, Y: 1200}, {X: 13600, Y: 10800}},
}

// LaneDeviation returns the distance from p to the lane of role.
func LaneDeviation(role types.Role, p model.Position) (float64, bool) {
	path, ok := lanePaths[role]
	if !ok {
		return 0, false
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		if d := segmentDistance(p, path[i-1], path[i]); d < best {
			best = d
		}
	}
	return best, true
}

func segmentDistance(p, a, b model.Position) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
