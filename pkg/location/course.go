package location

import (
	"math"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/lintang-b-s/bikestats/pkg/spatialindex"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

type CourseState uint8

const (
	Unloaded CourseState = iota
	AtStart
	Advancing
)

func (s CourseState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case AtStart:
		return "at_start"
	default:
		return "advancing"
	}
}

/*
CourseProcessor. statistics relative to a preloaded reference track.
every accepted fix moves a cursor forward along the track to the first waypoint that is closer to the fix
than the current one and within MatchingThreshold. the cursor never moves backward.
waypoints passed by the cursor get the fix time, skipped waypoints get linearly interpolated times.
*/
type CourseProcessor struct {
	cfg CourseConfig
	log *zap.Logger

	track *da.ReferenceTrack
	index *spatialindex.WaypointIndex

	position int
	times    []int64 // estimated time (unix millis) at waypoint i, 0 = not yet estimated

	lastFix    da.Fix
	hasLastFix bool
	curSpeed   float64
	maxSpeed   float64
	rejections rejectionCounter
}

func NewCourseProcessor(cfg CourseConfig, log *zap.Logger) *CourseProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseProcessor{
		cfg: cfg,
		log: log.Named("course"),
	}
}

// LoadTrack replaces the reference track and resets the session.
func (cp *CourseProcessor) LoadTrack(points []da.TrackPoint) error {
	track, err := da.NewReferenceTrack(points)
	if err != nil {
		return err
	}
	index := spatialindex.NewWaypointIndex()
	index.Build(track, cp.log)

	cp.track = track
	cp.index = index
	cp.times = make([]int64, track.Len())
	cp.Clear()

	cp.log.Info("course loaded", zap.Int("waypoints", track.Len()), zap.Float64("length", track.Length()))
	return nil
}

func (cp *CourseProcessor) AddFix(fix da.Fix) {
	if cp.track == nil {
		cp.rejections.inc(NoCourse)
		cp.log.Debug("no course loaded. Discarding")
		return
	}
	if !validFix(fix) {
		cp.rejections.inc(InvalidFix)
		cp.log.Info("Invalid location. Discarding", zap.Float64("lat", fix.Lat()), zap.Float64("lon", fix.Lon()),
			zap.Float64("accuracy", fix.Accuracy()))
		return
	}
	if fix.Accuracy() > cp.cfg.AccuracyThreshold {
		cp.rejections.inc(AccuracyTooLow)
		cp.log.Info("Location above accuracy threshold. Discarding", zap.Float64("accuracy", fix.Accuracy()))
		return
	}

	speed, hasSpeed := fix.Speed()
	if hasSpeed {
		cp.curSpeed = speed
	}

	oldPosition := cp.position
	oldDistance := geo.DistanceMeters(cp.track.Point(oldPosition).Coordinate(), fix.Coordinate())
	newPosition := cp.match(fix, oldPosition, oldDistance)

	for i := oldPosition + 1; i <= newPosition; i++ {
		cp.times[i] = fix.TimeMillis()
	}

	jumpedPositions := newPosition - oldPosition
	if jumpedPositions > 1 && cp.times[oldPosition] > 0 {
		avgTimePassed := float64(cp.times[newPosition]-cp.times[oldPosition]) / float64(jumpedPositions)
		for i := 1; i <= jumpedPositions; i++ {
			cp.times[oldPosition+i] = cp.times[oldPosition] + int64(avgTimePassed*float64(i))
		}
	}

	if newPosition == 0 && oldDistance < cp.cfg.MatchingThreshold {
		// waiting at the start line, the latest fix there is the departure time
		cp.times[0] = fix.TimeMillis()
	}

	if !hasSpeed && jumpedPositions > 0 && cp.times[oldPosition] > 0 {
		if secs := util.MillisToSeconds(cp.times[newPosition] - cp.times[oldPosition]); secs > 0 {
			cp.curSpeed = (cp.track.Cumulative(newPosition) - cp.track.Cumulative(oldPosition)) / secs
		}
	}
	cp.maxSpeed = util.MaxOf(cp.maxSpeed, cp.curSpeed)

	if jumpedPositions > 0 {
		cp.log.Debug("course position advanced", zap.Int("from", oldPosition), zap.Int("to", newPosition))
	}
	cp.position = newPosition
	cp.lastFix = fix
	cp.hasLastFix = true
}

// match returns the lowest waypoint index after position that is closer to fix than the waypoint at position
// and within MatchingThreshold, or position if there is none.
func (cp *CourseProcessor) match(fix da.Fix, position int, positionDistance float64) int {
	newPosition := position
	for _, n := range cp.index.SearchWithinRadius(fix.Lat(), fix.Lon(), cp.cfg.MatchingThreshold) {
		if n.Index <= position || n.Dist >= positionDistance {
			continue
		}
		if newPosition == position || n.Index < newPosition {
			newPosition = n.Index
		}
	}
	return newPosition
}

func (cp *CourseProcessor) AverageSpeed(meters int) float64 {
	if cp.track == nil {
		return 0
	}
	pos := cp.position
	cur := cp.track.Cumulative(pos)

	startIndex := 0
	for i := pos; i >= 0; i-- {
		if cur-cp.track.Cumulative(i) > float64(meters) {
			startIndex = i
			break
		}
	}

	// only start at a waypoint we have been at
	known := -1
	for i := startIndex; i <= pos; i++ {
		if cp.times[i] > 0 {
			known = i
			break
		}
	}
	if known < 0 {
		cp.log.Debug("no timed waypoint in window")
		return 0
	}

	diffSeconds := util.MillisToSeconds(cp.times[pos] - cp.times[known])
	if diffSeconds < cp.cfg.MinSecondsEval {
		cp.log.Debug("not enough time processed for average speed", zap.Float64("seconds", diffSeconds))
		return 0
	}
	return (cur - cp.track.Cumulative(known)) / diffSeconds
}

func (cp *CourseProcessor) CurrentSpeed() float64 {
	return cp.curSpeed
}

func (cp *CourseProcessor) MaxSpeed() float64 {
	return cp.maxSpeed
}

func (cp *CourseProcessor) TotalDistance() float64 {
	if cp.track == nil {
		return 0
	}
	return cp.track.Cumulative(cp.position)
}

func (cp *CourseProcessor) Clear() {
	cp.position = 0
	for i := range cp.times {
		cp.times[i] = 0
	}
	cp.lastFix = da.Fix{}
	cp.hasLastFix = false
	cp.curSpeed = 0
	cp.maxSpeed = 0
	cp.rejections.reset()
}

// ExportHistory. timed waypoints up to the cursor, newest first, with accuracy 0.
func (cp *CourseProcessor) ExportHistory() []da.Record {
	if cp.track == nil {
		return nil
	}
	out := make([]da.Record, 0, cp.position+1)
	for i := cp.position; i >= 0; i-- {
		if cp.times[i] == 0 {
			continue
		}
		p := cp.track.Point(i)
		out = append(out, da.Record{
			TimeMillis: cp.times[i],
			Lon:        p.Lon,
			Lat:        p.Lat,
			Altitude:   p.Elevation,
		})
	}
	return out
}

// LoadHistory restores the cursor from records produced by ExportHistory on the same course.
// every record must lie on a waypoint after the previous record's waypoint.
func (cp *CourseProcessor) LoadHistory(records []da.Record) error {
	if cp.track == nil {
		return util.WrapErrorf(nil, util.ErrLoad, "no course loaded")
	}

	times := make([]int64, cp.track.Len())
	pos, next := 0, 0
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if !validRecord(r) {
			return util.WrapErrorf(nil, util.ErrLoad, "history record %d is malformed", i)
		}
		if i < len(records)-1 && r.TimeMillis < records[i+1].TimeMillis {
			return util.WrapErrorf(nil, util.ErrLoad, "history record %d is older than record %d", i, i+1)
		}
		j := cp.locate(r, next)
		if j < 0 {
			return util.WrapErrorf(nil, util.ErrLoad, "history record %d is not on the course", i)
		}
		times[j] = r.TimeMillis
		pos, next = j, j+1
	}

	cp.Clear()
	cp.times = times
	cp.position = pos
	cp.log.Info("course history loaded", zap.Int("records", len(records)), zap.Int("position", pos))
	return nil
}

func (cp *CourseProcessor) locate(r da.Record, from int) int {
	best := -1
	for _, n := range cp.index.SearchWithinRadius(r.Lat, r.Lon, HISTORY_MATCH_TOLERANCE) {
		if n.Index >= from && (best < 0 || n.Index < best) {
			best = n.Index
		}
	}
	return best
}

func (cp *CourseProcessor) Rejections() map[RejectReason]int {
	return cp.rejections.snapshot()
}

func (cp *CourseProcessor) Name() string {
	return COURSE_PROCESSOR_NAME
}

func (cp *CourseProcessor) State() CourseState {
	switch {
	case cp.track == nil:
		return Unloaded
	case cp.position == 0:
		return AtStart
	default:
		return Advancing
	}
}

func (cp *CourseProcessor) CurrentIndex() int {
	return cp.position
}

func (cp *CourseProcessor) Track() *da.ReferenceTrack {
	return cp.track
}

// EstimatedTimes. copy of the estimated time per waypoint (unix millis, 0 = unknown)
func (cp *CourseProcessor) EstimatedTimes() []int64 {
	out := make([]int64, len(cp.times))
	copy(out, cp.times)
	return out
}

// Progress. fraction of the course length covered by the cursor
func (cp *CourseProcessor) Progress() float64 {
	if cp.track == nil || cp.track.Length() == 0 {
		return 0
	}
	return cp.TotalDistance() / cp.track.Length()
}

func (cp *CourseProcessor) RemainingDistance() float64 {
	if cp.track == nil {
		return 0
	}
	return cp.track.Length() - cp.TotalDistance()
}

// Bearing. heading (degree) of the track segment leaving the cursor waypoint
func (cp *CourseProcessor) Bearing() float64 {
	if cp.track == nil {
		return 0
	}
	from, to := cp.position, cp.position+1
	if to >= cp.track.Len() {
		from, to = cp.track.Len()-2, cp.track.Len()-1
	}
	a, b := cp.track.Point(from), cp.track.Point(to)
	return geo.Bearing(a.Coordinate(), b.Coordinate())
}

// SnappedPosition. last accepted fix projected onto the nearest track segment adjacent to the cursor
func (cp *CourseProcessor) SnappedPosition() (geo.Coordinate, bool) {
	coord, _, ok := cp.snap()
	return coord, ok
}

// OffCourseDistance. distance in meter from the last accepted fix to the track around the cursor
func (cp *CourseProcessor) OffCourseDistance() (float64, bool) {
	_, dist, ok := cp.snap()
	return dist, ok
}

func (cp *CourseProcessor) snap() (geo.Coordinate, float64, bool) {
	if cp.track == nil || !cp.hasLastFix {
		return geo.Coordinate{}, 0, false
	}
	fixCoord := cp.lastFix.Coordinate()
	best := geo.Coordinate{}
	bestDist := math.Inf(1)
	for _, seg := range [][2]int{{cp.position - 1, cp.position}, {cp.position, cp.position + 1}} {
		if seg[0] < 0 || seg[1] >= cp.track.Len() {
			continue
		}
		a, b := cp.track.Point(seg[0]).Coordinate(), cp.track.Point(seg[1]).Coordinate()
		projected := geo.ProjectPointToLineCoord(a, b, fixCoord)
		if d := geo.DistanceMeters(projected, fixCoord); d < bestDist {
			best, bestDist = projected, d
		}
	}
	return best, bestDist, true
}
