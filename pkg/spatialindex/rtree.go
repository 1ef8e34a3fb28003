package spatialindex

import (
	"github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// WaypointIndex. r-tree over the waypoints of a reference track, the leaf data is the waypoint index.
type WaypointIndex struct {
	tr    *rtree.RTreeG[int]
	track *datastructure.ReferenceTrack
}

func NewWaypointIndex() *WaypointIndex {
	var tr rtree.RTreeG[int]
	return &WaypointIndex{
		tr: &tr,
	}
}

// Build. index every waypoint of track as a point entry
func (wi *WaypointIndex) Build(track *datastructure.ReferenceTrack, log *zap.Logger) {
	var tr rtree.RTreeG[int]
	for i := 0; i < track.Len(); i++ {
		p := track.Point(i)
		tr.Insert([2]float64{p.Lon, p.Lat}, [2]float64{p.Lon, p.Lat}, i)
	}
	wi.tr = &tr
	wi.track = track
	log.Debug("waypoint r-tree built", zap.Int("waypoints", track.Len()))
}

// SearchWithinRadius returns the indices of all waypoints within radius (meter) of (qLat, qLon),
// together with their distance, unordered.
func (wi *WaypointIndex) SearchWithinRadius(qLat, qLon, radius float64) []Neighbor {
	if wi.track == nil {
		return nil
	}
	q := geo.NewCoordinate(qLat, qLon)

	results := make([]Neighbor, 0, 8)
	// boxes split at the antimeridian never overlap, so no waypoint is reported twice
	for _, box := range geo.BoundingBoxesAround(qLat, qLon, radius) {
		wi.tr.Search(box.Min, box.Max,
			func(min, max [2]float64, idx int) bool {
				d := geo.DistanceMeters(q, wi.track.Point(idx).Coordinate())
				if d < radius {
					results = append(results, Neighbor{Index: idx, Dist: d})
				}
				return true
			})
	}
	return results
}

func (wi *WaypointIndex) Len() int {
	return wi.tr.Len()
}

type Neighbor struct {
	Index int
	Dist  float64 // meter
}
