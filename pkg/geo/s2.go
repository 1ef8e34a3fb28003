package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

// ProjectPointToLineCoord. closest point to snap on the great circle segment (pointA, pointB)
func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {
	pointAS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointA.Lat, pointA.Lon))
	pointBS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointB.Lat, pointB.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	if pointAS2.ApproxEqual(pointBS2) {
		return pointA
	}
	projection := s2.Project(snapS2, pointAS2, pointBS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointLinePerpendicularDistance. distance in meter from snap to segment (pointA, pointB)
func PointLinePerpendicularDistance(pointA Coordinate, pointB Coordinate,
	snap Coordinate) float64 {
	projectionPoint := ProjectPointToLineCoord(pointA, pointB, snap)

	dist := CalculateHaversineDistance(snap.GetLat(), snap.GetLon(), projectionPoint.GetLat(), projectionPoint.GetLon())

	return convertKilometerToMeter(dist)
}

// BoundingBoxAround. lower-left and upper-right corners ([lon, lat]) of a box containing every point
// within radius meter of (lat, lon). the longitudes may leave [-180, 180], see BoundingBoxesAround.
func BoundingBoxAround(lat, lon, radius float64) ([2]float64, [2]float64) {
	dr := convertMeterToKilometer(radius) / earthRadiusKM
	dLat := radToDeg(dr)

	dLon := 180.0
	if sinLon := math.Sin(dr) / math.Cos(util.DegreeToRadians(lat)); sinLon < 1 {
		dLon = radToDeg(math.Asin(sinLon))
	}
	return [2]float64{lon - dLon, lat - dLat}, [2]float64{lon + dLon, lat + dLat}
}

// Box. lower-left and upper-right corners, [lon, lat]
type Box struct {
	Min [2]float64
	Max [2]float64
}

// BoundingBoxesAround is BoundingBoxAround split at the antimeridian into boxes inside [-180, 180].
func BoundingBoxesAround(lat, lon, radius float64) []Box {
	lower, upper := BoundingBoxAround(lat, lon, radius)
	switch {
	case upper[0]-lower[0] >= 360:
		return []Box{{Min: [2]float64{-180, lower[1]}, Max: [2]float64{180, upper[1]}}}
	case lower[0] < -180:
		return []Box{
			{Min: [2]float64{-180, lower[1]}, Max: upper},
			{Min: [2]float64{lower[0] + 360, lower[1]}, Max: [2]float64{180, upper[1]}},
		}
	case upper[0] > 180:
		return []Box{
			{Min: lower, Max: [2]float64{180, upper[1]}},
			{Min: [2]float64{-180, lower[1]}, Max: [2]float64{upper[0] - 360, upper[1]}},
		}
	}
	return []Box{{Min: lower, Max: upper}}
}
