package pace

import "fmt"

const MIN_PACE_SPEED = 0.2 // meter/second, slower than this has no meaningful pace

// Pace. time per kilometer
type Pace struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// FromSpeed converts meter/second into minutes and whole seconds per kilometer (both truncated).
// ok is false below MIN_PACE_SPEED.
func FromSpeed(mps float64) (Pace, bool) {
	if !(mps >= MIN_PACE_SPEED) {
		return Pace{}, false
	}
	minutesPerKm := (1000.0 / 60.0) / mps
	minutes := int(minutesPerKm)
	seconds := int((minutesPerKm - float64(minutes)) * 60)
	return Pace{Minutes: minutes, Seconds: seconds}, true
}

func (p Pace) String() string {
	return fmt.Sprintf("%d:%02d", p.Minutes, p.Seconds)
}

// Format. pace of mps for display, "-" if there is none
func Format(mps float64) string {
	p, ok := FromSpeed(mps)
	if !ok {
		return "-"
	}
	return p.String()
}

func KilometersPerHour(mps float64) float64 {
	return mps * 3.6
}
