package location

import (
	"math"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

// Processor. live statistics over a stream of fixes. implementations are not safe for concurrent use,
// every call must come from the same serialized sequence.
type Processor interface {
	AddFix(fix da.Fix)
	// AverageSpeed over the last meters of travel in meter/second, 0 if there is not enough data.
	AverageSpeed(meters int) float64
	CurrentSpeed() float64
	MaxSpeed() float64
	TotalDistance() float64
	Clear()
	LoadHistory(records []da.Record) error
	ExportHistory() []da.Record
	Rejections() map[RejectReason]int
	Name() string
}

var (
	_ Processor = (*LiveProcessor)(nil)
	_ Processor = (*CourseProcessor)(nil)
)

type RejectReason uint8

const (
	InvalidFix RejectReason = iota
	AccuracyTooLow
	TimeReversed
	BelowNoiseFloor
	NoCourse
	numRejectReasons
)

func (r RejectReason) String() string {
	switch r {
	case InvalidFix:
		return "invalid_fix"
	case AccuracyTooLow:
		return "accuracy_too_low"
	case TimeReversed:
		return "time_reversed"
	case BelowNoiseFloor:
		return "below_noise_floor"
	case NoCourse:
		return "no_course"
	default:
		return "unknown"
	}
}

type rejectionCounter [numRejectReasons]int

func (rc *rejectionCounter) inc(r RejectReason) {
	rc[r]++
}

func (rc *rejectionCounter) snapshot() map[RejectReason]int {
	out := make(map[RejectReason]int, numRejectReasons)
	for r, n := range rc {
		if n > 0 {
			out[RejectReason(r)] = n
		}
	}
	return out
}

func (rc *rejectionCounter) reset() {
	*rc = rejectionCounter{}
}

// Stats. point in time view of a processor
type Stats struct {
	Name          string  `json:"name"`
	CurrentSpeed  float64 `json:"current_speed"`
	MaxSpeed      float64 `json:"max_speed"`
	TotalDistance float64 `json:"total_distance"`
	AverageSpeed  float64 `json:"average_speed"`
	WindowMeters  int     `json:"window_meters"`
}

func Snapshot(p Processor, windowMeters int) Stats {
	return Stats{
		Name:          p.Name(),
		CurrentSpeed:  p.CurrentSpeed(),
		MaxSpeed:      p.MaxSpeed(),
		TotalDistance: p.TotalDistance(),
		AverageSpeed:  p.AverageSpeed(windowMeters),
		WindowMeters:  windowMeters,
	}
}

func validFix(fix da.Fix) bool {
	acc := fix.Accuracy()
	if math.IsNaN(acc) || math.IsInf(acc, 0) || acc < 0 {
		return false
	}
	if speed, ok := fix.Speed(); ok && (math.IsNaN(speed) || math.IsInf(speed, 0)) {
		return false
	}
	return util.ValidCoordinate(fix.Lat(), fix.Lon())
}

func validRecord(r da.Record) bool {
	if math.IsNaN(r.Accuracy) || math.IsInf(r.Accuracy, 0) || r.Accuracy < 0 {
		return false
	}
	if math.IsNaN(r.Altitude) || math.IsInf(r.Altitude, 0) {
		return false
	}
	return util.ValidCoordinate(r.Lat, r.Lon)
}
