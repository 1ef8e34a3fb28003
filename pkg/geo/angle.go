package geo

import (
	"math"

	"github.com/lintang-b-s/bikestats/pkg/util"
)

// Bearing. initial heading in degree [0, 360), clockwise from north, of the great circle from a to b.
// 0 when a and b coincide.
func Bearing(a, b Coordinate) float64 {
	phiA := util.DegreeToRadians(a.Lat)
	phiB := util.DegreeToRadians(b.Lat)
	dLambda := util.DegreeToRadians(b.Lon - a.Lon)

	east := math.Sin(dLambda) * math.Cos(phiB)
	north := math.Cos(phiA)*math.Sin(phiB) - math.Sin(phiA)*math.Cos(phiB)*math.Cos(dLambda)
	if east == 0 && north == 0 {
		return 0
	}
	return math.Mod(util.RadiansToDegree(math.Atan2(east, north))+360, 360)
}
