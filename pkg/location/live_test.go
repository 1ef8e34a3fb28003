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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	originLat       = 47.3
	originLon       = 12.8
	baseTime  int64 = 1_700_000_000_000
)

// fixEast. fix meters east of the origin at baseTime+seconds
func fixEast(meters, accuracy float64, seconds float64) da.Fix {
	lat, lon := geo.GetDestinationPoint(originLat, originLon, 90, meters/1000)
	return da.NewFix(lat, lon, 500, accuracy, baseTime+int64(seconds*1000))
}

func newObservedLive(cfg LiveConfig) (*LiveProcessor, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLiveProcessor(cfg, zap.New(core)), logs
}

func TestLiveTwoFixes(t *testing.T) {
	testCases := []struct {
		name      string
		second    da.Fix
		wantSpeed float64
	}{
		{
			name:      "speed derived from accepted step",
			second:    fixEast(100, 5, 20),
			wantSpeed: (100 - (math.Hypot(5, 100)-100)/2) / 20,
		},
		{
			name:      "reported speed wins",
			second:    fixEast(100, 5, 20).WithSpeed(6.5),
			wantSpeed: 6.5,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			lp := NewLiveProcessor(DefaultLiveConfig(), nil)
			lp.AddFix(fixEast(0, 5, 0))
			assert.Equal(t, 0.0, lp.TotalDistance())

			lp.AddFix(tt.second)

			assert.InDelta(t, 99.9375, lp.TotalDistance(), 1e-3)
			assert.InDelta(t, tt.wantSpeed, lp.CurrentSpeed(), 1e-3)
			assert.InDelta(t, tt.wantSpeed, lp.MaxSpeed(), 1e-3)
			assert.Equal(t, 2, lp.Len())
		})
	}
}

func TestLiveRejections(t *testing.T) {
	testCases := []struct {
		name       string
		fixes      []da.Fix
		wantReason RejectReason
		wantLevel  zapcore.Level
		wantLen    int
	}{
		{
			name:       "accuracy above threshold",
			fixes:      []da.Fix{fixEast(0, 5, 0), fixEast(500, 200, 60)},
			wantReason: AccuracyTooLow,
			wantLevel:  zapcore.InfoLevel,
			wantLen:    1,
		},
		{
			name:       "time flowing backwards",
			fixes:      []da.Fix{fixEast(0, 5, 10), fixEast(100, 5, 5)},
			wantReason: TimeReversed,
			wantLevel:  zapcore.WarnLevel,
			wantLen:    1,
		},
		{
			name:       "displacement below noise floor",
			fixes:      []da.Fix{fixEast(0, 5, 0), fixEast(10, 5, 10)},
			wantReason: BelowNoiseFloor,
			wantLevel:  zapcore.InfoLevel,
			wantLen:    1,
		},
		{
			name:       "nan coordinate",
			fixes:      []da.Fix{da.NewFix(math.NaN(), 1, 0, 3, baseTime)},
			wantReason: InvalidFix,
			wantLevel:  zapcore.InfoLevel,
			wantLen:    0,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			lp, logs := newObservedLive(DefaultLiveConfig())
			for _, f := range tt.fixes {
				lp.AddFix(f)
			}

			assert.Equal(t, 0.0, lp.TotalDistance())
			assert.Equal(t, tt.wantLen, lp.Len())
			assert.Equal(t, map[RejectReason]int{tt.wantReason: 1}, lp.Rejections())
			assert.Equal(t, 1, logs.FilterLevelExact(tt.wantLevel).Len())
		})
	}
}

func TestLiveTotalDistanceMonotonic(t *testing.T) {
	rd := rand.New(rand.NewSource(42))
	lp := NewLiveProcessor(DefaultLiveConfig(), nil)

	lat, lon := originLat, originLon
	ts := baseTime
	prev := 0.0
	for i := 0; i < 2000; i++ {
		lat, lon = geo.GetDestinationPoint(lat, lon, rd.Float64()*360, rd.Float64()*0.05)
		ts += int64(rd.Intn(4000)) - 300 // sometimes goes backwards
		acc := rd.Float64() * 180
		lp.AddFix(da.NewFix(lat, lon, 0, acc, ts))

		got := lp.TotalDistance()
		require.GreaterOrEqual(t, got, 0.0)
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Greater(t, prev, 0.0)
}

func TestLiveAverageSpeed(t *testing.T) {
	testCases := []struct {
		name   string
		fixes  []da.Fix
		window int
		want   float64
	}{
		{
			name: "window ends after exceeding meters",
			fixes: []da.Fix{
				fixEast(0, 0, 0), fixEast(50, 0, 10), fixEast(100, 0, 20),
				fixEast(200, 0, 30), fixEast(300, 0, 40),
			},
			window: 150,
			want:   200.0 / 20, // 100+100 newest steps cover the window
		},
		{
			name: "whole history shorter than window",
			fixes: []da.Fix{
				fixEast(0, 0, 0), fixEast(50, 0, 10), fixEast(100, 0, 20),
			},
			window: 10000,
			want:   100.0 / 20,
		},
		{
			name:   "below min seconds",
			fixes:  []da.Fix{fixEast(0, 0, 0), fixEast(50, 0, 2)},
			window: 300,
			want:   0,
		},
		{
			name:   "single fix",
			fixes:  []da.Fix{fixEast(0, 0, 0)},
			window: 300,
			want:   0,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			lp := NewLiveProcessor(DefaultLiveConfig(), nil)
			for _, f := range tt.fixes {
				lp.AddFix(f)
			}
			assert.InDelta(t, tt.want, lp.AverageSpeed(tt.window), 1e-3)
		})
	}
}

func TestLiveAverageSpeedZeroBelowMinSeconds(t *testing.T) {
	lp := NewLiveProcessor(DefaultLiveConfig(), nil)
	// 1 fix per 0.5 s, 2.5 s total
	for i := 0; i < 6; i++ {
		lp.AddFix(fixEast(float64(i)*20, 3, float64(i)*0.5))
	}
	for _, w := range []int{0, 10, 100, 1_000_000} {
		assert.Equal(t, 0.0, lp.AverageSpeed(w), "window %d", w)
	}
}

func rideFixes() []da.Fix {
	fixes := make([]da.Fix, 0, 60)
	for i := 0; i < 60; i++ {
		f := fixEast(float64(i)*40+float64(i%3), 4+float64(i%5), float64(i)*6)
		if i%4 == 0 {
			f = f.WithSpeed(6 + float64(i%7)*0.1)
		}
		fixes = append(fixes, f)
	}
	return fixes
}

func TestLiveClearAndReplay(t *testing.T) {
	lp := NewLiveProcessor(DefaultLiveConfig(), nil)
	for _, f := range rideFixes() {
		lp.AddFix(f)
	}
	firstTotal, firstMax := lp.TotalDistance(), lp.MaxSpeed()
	require.Greater(t, firstTotal, 0.0)

	lp.Clear()
	assert.Equal(t, 0.0, lp.TotalDistance())
	assert.Equal(t, 0, lp.Len())
	assert.Equal(t, 0.0, lp.MaxSpeed())

	for _, f := range rideFixes() {
		lp.AddFix(f)
	}
	assert.Equal(t, firstTotal, lp.TotalDistance())
	assert.Equal(t, firstMax, lp.MaxSpeed())
}

func TestLiveExportLoadRoundTrip(t *testing.T) {
	lp := NewLiveProcessor(DefaultLiveConfig(), nil)
	for _, f := range rideFixes() {
		lp.AddFix(f)
	}
	records := lp.ExportHistory()
	require.Len(t, records, lp.Len())
	assert.GreaterOrEqual(t, records[0].TimeMillis, records[len(records)-1].TimeMillis)

	restored := NewLiveProcessor(DefaultLiveConfig(), nil)
	require.NoError(t, restored.LoadHistory(records))
	restored.RecalculateTotalDistance()

	assert.InDelta(t, lp.TotalDistance(), restored.TotalDistance(), 1e-6)
	assert.InDelta(t, lp.AverageSpeed(300), restored.AverageSpeed(300), 1e-9)
	assert.Equal(t, records, restored.ExportHistory())
}

func TestLiveLoadHistoryErrors(t *testing.T) {
	good := da.Record{TimeMillis: baseTime, Lon: originLon, Lat: originLat, Accuracy: 5}
	testCases := []struct {
		name    string
		records []da.Record
	}{
		{
			name:    "latitude out of range",
			records: []da.Record{{TimeMillis: baseTime, Lon: 1, Lat: 95, Accuracy: 5}},
		},
		{
			name:    "negative accuracy",
			records: []da.Record{{TimeMillis: baseTime, Lon: 1, Lat: 1, Accuracy: -1}},
		},
		{
			name:    "oldest first",
			records: []da.Record{good, {TimeMillis: baseTime + 1000, Lon: originLon, Lat: originLat, Accuracy: 5}},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			lp := NewLiveProcessor(DefaultLiveConfig(), nil)
			lp.AddFix(fixEast(0, 5, 0))

			err := lp.LoadHistory(tt.records)
			require.Error(t, err)
			var ierr *util.Error
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, util.ErrLoad, ierr.Code())
			assert.Equal(t, 1, lp.Len(), "failed load keeps the current history")
		})
	}
}

func TestLiveHistoryCapacity(t *testing.T) {
	cfg := DefaultLiveConfig()
	cfg.HistoryCapacity = 3
	lp := NewLiveProcessor(cfg, nil)
	for i := 0; i < 6; i++ {
		lp.AddFix(fixEast(float64(i)*100, 0, float64(i)*10))
	}
	assert.Equal(t, 3, lp.Len())
	assert.InDelta(t, 500, lp.TotalDistance(), 1e-3)

	records := lp.ExportHistory()
	assert.Equal(t, baseTime+50_000, records[0].TimeMillis)
	assert.Equal(t, baseTime+30_000, records[2].TimeMillis)

	lp.RecalculateTotalDistance()
	assert.InDelta(t, 200, lp.TotalDistance(), 1e-3)
}

func TestLiveCustomThresholds(t *testing.T) {
	cfg := DefaultLiveConfig()
	cfg.AccuracyThreshold = 15
	lp := NewLiveProcessor(cfg, nil)

	lp.AddFix(fixEast(0, 15, 0))
	lp.AddFix(fixEast(100, 15.01, 10))
	assert.Equal(t, 1, lp.Len())
	assert.Equal(t, map[RejectReason]int{AccuracyTooLow: 1}, lp.Rejections())
	assert.Equal(t, LIVE_PROCESSOR_NAME, lp.Name())
}
