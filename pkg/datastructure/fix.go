package datastructure

import (
	"time"

	"github.com/lintang-b-s/bikestats/pkg/geo"
)

// Fix. one position sample reported by the location sensor. immutable.
type Fix struct {
	lat      float64
	lon      float64
	altitude float64
	accuracy float64 // horizontal accuracy radius in meter
	speed    float64 // meter/second, valid only if hasSpeed
	hasSpeed bool
	time     int64 // unix millis
}

func NewFix(lat, lon, altitude, accuracy float64, timeMillis int64) Fix {
	return Fix{
		lat:      lat,
		lon:      lon,
		altitude: altitude,
		accuracy: accuracy,
		time:     timeMillis,
	}
}

// WithSpeed returns a copy of the fix carrying the sensor reported speed (meter/second).
func (f Fix) WithSpeed(speed float64) Fix {
	f.speed = speed
	f.hasSpeed = true
	return f
}

func (f Fix) Lat() float64 {
	return f.lat
}

func (f Fix) Lon() float64 {
	return f.lon
}

func (f Fix) Altitude() float64 {
	return f.altitude
}

func (f Fix) Accuracy() float64 {
	return f.accuracy
}

// Speed returns the reported speed and whether the sensor reported one.
func (f Fix) Speed() (float64, bool) {
	return f.speed, f.hasSpeed
}

func (f Fix) TimeMillis() int64 {
	return f.time
}

func (f Fix) Time() time.Time {
	return time.UnixMilli(f.time)
}

func (f Fix) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(f.lat, f.lon)
}

// DistanceTo. great circle distance in meter, altitude is ignored
func (f Fix) DistanceTo(other Fix) float64 {
	return geo.DistanceMeters(f.Coordinate(), other.Coordinate())
}

// Record. flat form of a fix used for persistence: time,longitude,latitude,altitude,accuracy
type Record struct {
	TimeMillis int64   `json:"time"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Altitude   float64 `json:"altitude"`
	Accuracy   float64 `json:"accuracy"`
}

func (f Fix) ToRecord() Record {
	return Record{
		TimeMillis: f.time,
		Lon:        f.lon,
		Lat:        f.lat,
		Altitude:   f.altitude,
		Accuracy:   f.accuracy,
	}
}

func (r Record) ToFix() Fix {
	return NewFix(r.Lat, r.Lon, r.Altitude, r.Accuracy, r.TimeMillis)
}

// TrackPoint. one point of a reference course
type TrackPoint struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Elevation float64 `json:"elevation"`
}

func NewTrackPoint(lat, lon, elevation float64) TrackPoint {
	return TrackPoint{Lat: lat, Lon: lon, Elevation: elevation}
}

func (tp TrackPoint) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(tp.Lat, tp.Lon)
}
