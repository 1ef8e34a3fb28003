package location

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightCourse. n waypoints heading east from the origin, spacing meters apart
func straightCourse(n int, spacing float64) []da.TrackPoint {
	points := make([]da.TrackPoint, 0, n)
	for i := 0; i < n; i++ {
		lat, lon := geo.GetDestinationPoint(originLat, originLon, 90, float64(i)*spacing/1000)
		points = append(points, da.NewTrackPoint(lat, lon, 500+float64(i)))
	}
	return points
}

// fixAtWaypoint. fix on waypoint p, offsetNorth meters to the side of the track
func fixAtWaypoint(p da.TrackPoint, offsetNorth, accuracy float64, timeMillis int64) da.Fix {
	lat, lon := p.Lat, p.Lon
	if offsetNorth != 0 {
		lat, lon = geo.GetDestinationPoint(p.Lat, p.Lon, 0, offsetNorth/1000)
	}
	return da.NewFix(lat, lon, p.Elevation, accuracy, timeMillis)
}

func newLoadedCourse(t *testing.T, points []da.TrackPoint) *CourseProcessor {
	t.Helper()
	cp := NewCourseProcessor(DefaultCourseConfig(), nil)
	require.NoError(t, cp.LoadTrack(points))
	return cp
}

func TestCourseInterpolatesSkippedWaypoints(t *testing.T) {
	points := straightCourse(5, 200)
	cp := newLoadedCourse(t, points)
	T := baseTime

	cp.AddFix(fixAtWaypoint(points[0], 0, 5, T))
	assert.Equal(t, 0, cp.CurrentIndex())
	assert.Equal(t, AtStart, cp.State())

	cp.AddFix(fixAtWaypoint(points[3], 0, 5, T+30_000))

	assert.Equal(t, 3, cp.CurrentIndex())
	assert.Equal(t, Advancing, cp.State())
	assert.Equal(t, []int64{T, T + 10_000, T + 20_000, T + 30_000, 0}, cp.EstimatedTimes())
	assert.InDelta(t, 600, cp.TotalDistance(), 0.01)
	assert.InDelta(t, 20, cp.AverageSpeed(1000), 1e-3)
	assert.InDelta(t, 20, cp.CurrentSpeed(), 1e-3, "speed derived from track progress")
}

func TestCourseNoInterpolationWithoutStartTime(t *testing.T) {
	points := straightCourse(5, 200)
	cp := newLoadedCourse(t, points)

	// first fix lands on waypoint 2 directly, waypoint 0 was never stamped
	cp.AddFix(fixAtWaypoint(points[2], 0, 5, baseTime+5_000))
	assert.Equal(t, 2, cp.CurrentIndex())
	assert.Equal(t, []int64{0, baseTime + 5_000, baseTime + 5_000, 0, 0}, cp.EstimatedTimes())
	assert.Equal(t, 0.0, cp.CurrentSpeed())
}

func TestCourseMatching(t *testing.T) {
	points := straightCourse(6, 50)

	testCases := []struct {
		name      string
		fixes     []da.Fix
		wantIndex int
	}{
		{
			name: "fix beyond matching threshold does not advance",
			fixes: []da.Fix{
				fixAtWaypoint(points[1], 15, 5, baseTime+10_000),
			},
			wantIndex: 0,
		},
		{
			name: "fix within threshold advances",
			fixes: []da.Fix{
				fixAtWaypoint(points[1], 8, 5, baseTime+10_000),
			},
			wantIndex: 1,
		},
		{
			name: "consecutive waypoints",
			fixes: []da.Fix{
				fixAtWaypoint(points[1], 0, 5, baseTime+10_000),
				fixAtWaypoint(points[2], 9, 5, baseTime+20_000),
			},
			wantIndex: 2,
		},
		{
			name: "fix going back to an earlier waypoint keeps the cursor",
			fixes: []da.Fix{
				fixAtWaypoint(points[3], 0, 5, baseTime+10_000),
				fixAtWaypoint(points[1], 0, 5, baseTime+20_000),
			},
			wantIndex: 3,
		},
		{
			name: "inaccurate fix is rejected",
			fixes: []da.Fix{
				fixAtWaypoint(points[2], 0, 12, baseTime+10_000),
			},
			wantIndex: 0,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			cp := newLoadedCourse(t, points)
			for _, f := range tt.fixes {
				cp.AddFix(f)
			}
			assert.Equal(t, tt.wantIndex, cp.CurrentIndex())
		})
	}
}

func TestCourseRejections(t *testing.T) {
	points := straightCourse(4, 50)

	testCases := []struct {
		name           string
		fix            da.Fix
		wantRejections map[RejectReason]int
	}{
		{
			name:           "nan latitude",
			fix:            da.NewFix(math.NaN(), points[1].Lon, 0, 3, baseTime+10_000),
			wantRejections: map[RejectReason]int{InvalidFix: 1},
		},
		{
			name:           "longitude out of range",
			fix:            da.NewFix(points[1].Lat, 181, 0, 3, baseTime+10_000),
			wantRejections: map[RejectReason]int{InvalidFix: 1},
		},
		{
			name:           "inaccurate fix",
			fix:            fixAtWaypoint(points[1], 0, 12, baseTime+10_000),
			wantRejections: map[RejectReason]int{AccuracyTooLow: 1},
		},
		{
			name:           "accepted fix",
			fix:            fixAtWaypoint(points[1], 0, 3, baseTime+10_000),
			wantRejections: map[RejectReason]int{},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			cp := newLoadedCourse(t, points)
			cp.AddFix(tt.fix)
			assert.Equal(t, tt.wantRejections, cp.Rejections())
			if len(tt.wantRejections) > 0 {
				assert.Equal(t, 0, cp.CurrentIndex())
				assert.Equal(t, []int64{0, 0, 0, 0}, cp.EstimatedTimes())
			}
		})
	}
}

func TestCourseMatchesAcrossAntimeridian(t *testing.T) {
	// about 10 m apart on the equator, waypoint 3 lies east of 180
	lons := []float64{179.99976, 179.99985, 179.99994, -179.99997, -179.99988}
	points := make([]da.TrackPoint, 0, len(lons))
	for _, lon := range lons {
		points = append(points, da.NewTrackPoint(0, lon, 0))
	}
	cp := newLoadedCourse(t, points)

	cp.AddFix(da.NewFix(0, lons[1], 0, 3, baseTime+10_000))
	cp.AddFix(da.NewFix(0, lons[2], 0, 3, baseTime+20_000))
	require.Equal(t, 2, cp.CurrentIndex())

	// still west of 180, but 4.4 m from waypoint 3 and 5.6 m from waypoint 2
	cp.AddFix(da.NewFix(0, 179.99999, 0, 3, baseTime+30_000))
	assert.Equal(t, 3, cp.CurrentIndex())
	assert.InDelta(t, 30, cp.TotalDistance(), 0.5)
}

func TestCourseOutAndBackMatchesFirstPass(t *testing.T) {
	east := straightCourse(3, 50)
	// way back runs 4 m north of the way out
	backLat, backLon := geo.GetDestinationPoint(east[1].Lat, east[1].Lon, 0, 0.004)
	points := []da.TrackPoint{east[0], east[1], east[2], da.NewTrackPoint(backLat, backLon, 0), east[0]}
	cp := newLoadedCourse(t, points)

	// exactly on waypoint 3, but waypoint 1 is within the threshold too
	cp.AddFix(da.NewFix(points[3].Lat, points[3].Lon, 0, 3, baseTime+10_000))
	assert.Equal(t, 1, cp.CurrentIndex())

	cp.AddFix(fixAtWaypoint(points[2], 0, 3, baseTime+20_000))
	cp.AddFix(da.NewFix(points[3].Lat, points[3].Lon, 0, 3, baseTime+30_000))
	assert.Equal(t, 3, cp.CurrentIndex())
}

func TestCourseCursorNeverRegresses(t *testing.T) {
	rd := rand.New(rand.NewSource(7))
	points := straightCourse(200, 20)
	cp := newLoadedCourse(t, points)

	prev := 0
	ts := baseTime
	for i := 0; i < 3000; i++ {
		p := points[rd.Intn(len(points))]
		ts += int64(rd.Intn(2000))
		cp.AddFix(fixAtWaypoint(p, rd.Float64()*30-15, rd.Float64()*14, ts))

		require.GreaterOrEqual(t, cp.CurrentIndex(), prev)
		prev = cp.CurrentIndex()
	}
	assert.Greater(t, prev, 0)
}

func TestCourseAverageSpeedWindow(t *testing.T) {
	points := straightCourse(10, 100)
	cp := newLoadedCourse(t, points)
	for i, p := range points {
		cp.AddFix(fixAtWaypoint(p, 0, 3, baseTime+int64(i)*20_000).WithSpeed(5))
	}
	require.Equal(t, 9, cp.CurrentIndex())

	testCases := []struct {
		name   string
		window int
		want   float64
	}{
		{name: "window spans three segments", window: 250, want: 300.0 / 60},
		{name: "window longer than the course", window: 5000, want: 900.0 / 180},
		{name: "zero window", window: 0, want: 100.0 / 20},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cp.AverageSpeed(tt.window), 1e-3)
		})
	}
	assert.Equal(t, 5.0, cp.MaxSpeed())
}

func TestCourseAverageSpeedZeroBelowMinSeconds(t *testing.T) {
	points := straightCourse(10, 30)
	cp := newLoadedCourse(t, points)
	for i := 0; i < 4; i++ {
		cp.AddFix(fixAtWaypoint(points[i], 0, 3, baseTime+int64(i)*900))
	}
	require.Equal(t, 3, cp.CurrentIndex())
	for _, w := range []int{0, 50, 100, 10_000} {
		assert.Equal(t, 0.0, cp.AverageSpeed(w), "window %d", w)
	}
}

func TestCourseUnloaded(t *testing.T) {
	cp := NewCourseProcessor(DefaultCourseConfig(), nil)
	assert.Equal(t, Unloaded, cp.State())

	cp.AddFix(da.NewFix(originLat, originLon, 0, 3, baseTime))
	assert.Equal(t, map[RejectReason]int{NoCourse: 1}, cp.Rejections())
	assert.Equal(t, 0.0, cp.TotalDistance())
	assert.Equal(t, 0.0, cp.AverageSpeed(300))
	assert.Nil(t, cp.ExportHistory())

	err := cp.LoadHistory([]da.Record{{TimeMillis: baseTime, Lat: originLat, Lon: originLon}})
	assert.True(t, errors.Is(util.ErrorCode(err), util.ErrLoad))
}

func TestCourseLoadTrackErrors(t *testing.T) {
	cp := NewCourseProcessor(DefaultCourseConfig(), nil)
	err := cp.LoadTrack(straightCourse(1, 10))
	require.Error(t, err)
	assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
	assert.Equal(t, Unloaded, cp.State())
}

func TestCourseClearAndReplay(t *testing.T) {
	points := straightCourse(20, 40)
	fixes := make([]da.Fix, 0, 20)
	for i := 0; i < 20; i += 2 {
		fixes = append(fixes, fixAtWaypoint(points[i], 2, 4, baseTime+int64(i)*8_000).WithSpeed(float64(i)/4))
	}

	cp := newLoadedCourse(t, points)
	for _, f := range fixes {
		cp.AddFix(f)
	}
	firstTotal, firstMax, firstTimes := cp.TotalDistance(), cp.MaxSpeed(), cp.EstimatedTimes()

	cp.Clear()
	assert.Equal(t, 0, cp.CurrentIndex())
	assert.Equal(t, 0.0, cp.TotalDistance())

	for _, f := range fixes {
		cp.AddFix(f)
	}
	assert.Equal(t, firstTotal, cp.TotalDistance())
	assert.Equal(t, firstMax, cp.MaxSpeed())
	assert.Equal(t, firstTimes, cp.EstimatedTimes())
}

func TestCourseExportLoadHistory(t *testing.T) {
	points := straightCourse(8, 100)
	cp := newLoadedCourse(t, points)
	cp.AddFix(fixAtWaypoint(points[0], 0, 3, baseTime))
	cp.AddFix(fixAtWaypoint(points[2], 0, 3, baseTime+40_000))
	cp.AddFix(fixAtWaypoint(points[5], 1, 3, baseTime+100_000))

	records := cp.ExportHistory()
	require.Len(t, records, 6)
	assert.Equal(t, baseTime+100_000, records[0].TimeMillis)
	assert.Equal(t, baseTime, records[5].TimeMillis)

	restored := newLoadedCourse(t, points)
	require.NoError(t, restored.LoadHistory(records))
	assert.Equal(t, cp.CurrentIndex(), restored.CurrentIndex())
	assert.Equal(t, cp.EstimatedTimes(), restored.EstimatedTimes())
	assert.Equal(t, cp.TotalDistance(), restored.TotalDistance())
	assert.InDelta(t, cp.AverageSpeed(300), restored.AverageSpeed(300), 1e-9)

	offCourse := []da.Record{{TimeMillis: baseTime, Lat: originLat + 1, Lon: originLon}}
	err := restored.LoadHistory(offCourse)
	assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
	assert.Equal(t, 5, restored.CurrentIndex(), "failed load keeps the cursor")
}

func TestCourseSnappedPosition(t *testing.T) {
	points := straightCourse(4, 100)
	cp := newLoadedCourse(t, points)

	_, ok := cp.SnappedPosition()
	assert.False(t, ok)

	cp.AddFix(fixAtWaypoint(points[1], 0, 3, baseTime+20_000))
	require.Equal(t, 1, cp.CurrentIndex())

	midLat, midLon := geo.GetDestinationPoint(points[1].Lat, points[1].Lon, 90, 0.05)
	cp.AddFix(fixAtWaypoint(da.NewTrackPoint(midLat, midLon, 0), 3, 3, baseTime+30_000))
	require.Equal(t, 1, cp.CurrentIndex())

	snapped, ok := cp.SnappedPosition()
	require.True(t, ok)
	assert.InDelta(t, midLon, snapped.Lon, 1e-6)
	off, _ := cp.OffCourseDistance()
	assert.InDelta(t, 3, off, 0.05)

	assert.InDelta(t, 90, cp.Bearing(), 0.1)
	assert.InDelta(t, 1.0/3, cp.Progress(), 1e-6)
	assert.InDelta(t, 200, cp.RemainingDistance(), 0.01)
	assert.Equal(t, COURSE_PROCESSOR_NAME, cp.Name())
}
