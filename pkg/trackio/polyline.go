package trackio

import (
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

// EncodeHistoryPolyline. records in time order (oldest first) as an encoded polyline
func EncodeHistoryPolyline(records []da.Record) string {
	path := make([]geo.Coordinate, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		path = append(path, geo.NewCoordinate(records[i].Lat, records[i].Lon))
	}
	return geo.PolylineFromCoords(path)
}

func EncodeTrackPolyline(track *da.ReferenceTrack) string {
	path := make([]geo.Coordinate, 0, track.Len())
	for _, p := range track.Points() {
		path = append(path, p.Coordinate())
	}
	return geo.PolylineFromCoords(path)
}

// DecodeCoursePolyline. course points without elevation
func DecodeCoursePolyline(encoded string) ([]da.TrackPoint, error) {
	coords, err := geo.CoordsFromPolyline(encoded)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrLoad, "decode course polyline")
	}
	if len(coords) < 2 {
		return nil, util.WrapErrorf(nil, util.ErrLoad, "course polyline needs at least 2 points, got %d", len(coords))
	}
	points := make([]da.TrackPoint, 0, len(coords))
	for _, c := range coords {
		points = append(points, da.NewTrackPoint(c.Lat, c.Lon, 0))
	}
	return points, nil
}
