package datastructure

import (
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

// ReferenceTrack. immutable course polyline with the cumulative distance (meter) of every waypoint.
type ReferenceTrack struct {
	points     []TrackPoint
	cumulative []float64
}

// NewReferenceTrack builds the cumulative distance table in one pass.
func NewReferenceTrack(points []TrackPoint) (*ReferenceTrack, error) {
	if len(points) < 2 {
		return nil, util.WrapErrorf(nil, util.ErrLoad, "course needs at least 2 points, got %d", len(points))
	}

	pts := make([]TrackPoint, len(points))
	cumulative := make([]float64, len(points))
	total := 0.0
	for i, p := range points {
		if !util.ValidCoordinate(p.Lat, p.Lon) {
			return nil, util.WrapErrorf(nil, util.ErrLoad, "course point %d has invalid coordinate (%v, %v)", i, p.Lat, p.Lon)
		}
		if i > 0 {
			total += geo.DistanceMeters(points[i-1].Coordinate(), p.Coordinate())
		}
		pts[i] = p
		cumulative[i] = total
	}

	return &ReferenceTrack{
		points:     pts,
		cumulative: cumulative,
	}, nil
}

func (rt *ReferenceTrack) Len() int {
	return len(rt.points)
}

func (rt *ReferenceTrack) Point(i int) TrackPoint {
	return rt.points[i]
}

// Cumulative. distance in meter from the first waypoint to waypoint i along the track
func (rt *ReferenceTrack) Cumulative(i int) float64 {
	return rt.cumulative[i]
}

func (rt *ReferenceTrack) Length() float64 {
	return rt.cumulative[len(rt.cumulative)-1]
}

func (rt *ReferenceTrack) Points() []TrackPoint {
	out := make([]TrackPoint, len(rt.points))
	copy(out, rt.points)
	return out
}
