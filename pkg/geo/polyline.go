package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// PolylineFromCoords. google encoded polyline (precision 5)
func PolylineFromCoords(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, c := range path {
		coords = append(coords, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

func CoordsFromPolyline(encoded string) ([]Coordinate, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("polyline has %d trailing bytes", len(rest))
	}
	out := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		out = append(out, NewCoordinate(c[0], c[1]))
	}
	return out, nil
}
