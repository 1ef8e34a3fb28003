package location

import (
	"math"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

// LiveProcessor. free ride statistics, distance is accumulated from consecutive accepted fixes.
type LiveProcessor struct {
	cfg LiveConfig
	log *zap.Logger

	history       *da.FixHistory // newest first
	totalDistance float64
	curSpeed      float64
	maxSpeed      float64
	rejections    rejectionCounter
}

func NewLiveProcessor(cfg LiveConfig, log *zap.Logger) *LiveProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveProcessor{
		cfg:     cfg,
		log:     log.Named("live"),
		history: da.NewFixHistory(cfg.HistoryCapacity),
	}
}

/*
correctedStep. the accuracy radius of a fix inflates the apparent displacement between two fixes.
the overestimation (sqrt(acc^2 + d^2) - d)/2 is subtracted from the raw distance d, the result is never negative.
*/
func correctedStep(diff, accuracy float64) float64 {
	overestimation := (math.Hypot(accuracy, diff) - diff) / 2
	return math.Max(0, diff-overestimation)
}

func (lp *LiveProcessor) AddFix(fix da.Fix) {
	if !validFix(fix) {
		lp.rejections.inc(InvalidFix)
		lp.log.Info("Invalid location. Discarding", zap.Float64("lat", fix.Lat()), zap.Float64("lon", fix.Lon()),
			zap.Float64("accuracy", fix.Accuracy()))
		return
	}
	if fix.Accuracy() > lp.cfg.AccuracyThreshold {
		lp.rejections.inc(AccuracyTooLow)
		lp.log.Info("Location above accuracy threshold. Discarding", zap.Float64("accuracy", fix.Accuracy()))
		return
	}

	lastLoc, ok := lp.history.Front()
	if !ok {
		lp.history.PushFront(fix)
		lp.updateSpeed(fix, 0, 0)
		return
	}
	if lastLoc.TimeMillis() > fix.TimeMillis() {
		lp.rejections.inc(TimeReversed)
		lp.log.Warn("Time is flowing in the wrong direction", zap.Int64("last_time", lastLoc.TimeMillis()),
			zap.Int64("time", fix.TimeMillis()))
		return
	}

	diff := lastLoc.DistanceTo(fix)
	if diff*lp.cfg.NoiseGateFactor < fix.Accuracy() {
		lp.rejections.inc(BelowNoiseFloor)
		lp.log.Info("Location difference too small for accuracy. Discarding", zap.Float64("diff", diff),
			zap.Float64("accuracy", fix.Accuracy()))
		return
	}

	step := correctedStep(diff, fix.Accuracy())
	lp.totalDistance += step

	if evicted := lp.history.PushFront(fix); evicted {
		lp.log.Debug("history full, oldest location evicted", zap.Int("capacity", lp.history.Capacity()))
	}
	lp.updateSpeed(fix, step, fix.TimeMillis()-lastLoc.TimeMillis())
}

// updateSpeed. the reported sensor speed wins, otherwise the speed over the accepted step.
func (lp *LiveProcessor) updateSpeed(fix da.Fix, step float64, elapsedMillis int64) {
	if speed, ok := fix.Speed(); ok {
		lp.curSpeed = speed
	} else if elapsedMillis > 0 {
		lp.curSpeed = step / util.MillisToSeconds(elapsedMillis)
	}
	lp.maxSpeed = util.MaxOf(lp.maxSpeed, lp.curSpeed)
}

// RecalculateTotalDistance. replay the history from the oldest fix, needed after the history was bulk loaded.
func (lp *LiveProcessor) RecalculateTotalDistance() {
	total := 0.0
	var older da.Fix
	lp.history.ForEachOldestFirst(func(i int, fix da.Fix) bool {
		if i == lp.history.Len()-1 {
			older = fix
			return true
		}
		total += correctedStep(older.DistanceTo(fix), fix.Accuracy())
		older = fix
		return true
	})
	lp.totalDistance = total
}

func (lp *LiveProcessor) AverageSpeed(meters int) float64 {
	processedMeters := 0.0
	processedSeconds := 0.0
	var newer da.Fix
	lp.history.ForEachNewestFirst(func(i int, fix da.Fix) bool {
		if i == 0 {
			newer = fix
			return true
		}
		processedMeters += correctedStep(fix.DistanceTo(newer), newer.Accuracy())
		processedSeconds += util.MillisToSeconds(newer.TimeMillis() - fix.TimeMillis())
		newer = fix
		return processedMeters <= float64(meters)
	})

	if processedSeconds < lp.cfg.MinSecondsEval {
		lp.log.Debug("not enough time processed for average speed", zap.Float64("seconds", processedSeconds))
		return 0
	}
	return processedMeters / processedSeconds
}

func (lp *LiveProcessor) CurrentSpeed() float64 {
	return lp.curSpeed
}

func (lp *LiveProcessor) MaxSpeed() float64 {
	return lp.maxSpeed
}

func (lp *LiveProcessor) TotalDistance() float64 {
	return lp.totalDistance
}

func (lp *LiveProcessor) Len() int {
	return lp.history.Len()
}

func (lp *LiveProcessor) Clear() {
	lp.history.Clear()
	lp.totalDistance = 0
	lp.curSpeed = 0
	lp.maxSpeed = 0
	lp.rejections.reset()
}

// LoadHistory replaces the history with records ordered newest first (the ExportHistory order)
// and recalculates the total distance. records beyond the history capacity are dropped from the old end.
func (lp *LiveProcessor) LoadHistory(records []da.Record) error {
	for i, r := range records {
		if !validRecord(r) {
			return util.WrapErrorf(nil, util.ErrLoad, "history record %d is malformed", i)
		}
		if i > 0 && r.TimeMillis > records[i-1].TimeMillis {
			return util.WrapErrorf(nil, util.ErrLoad, "history record %d is newer than record %d", i, i-1)
		}
	}

	lp.Clear()
	n := min(len(records), lp.history.Capacity())
	for i := n - 1; i >= 0; i-- {
		lp.history.PushFront(records[i].ToFix())
	}
	lp.RecalculateTotalDistance()

	lp.log.Info("history loaded", zap.Int("records", len(records)), zap.Int("kept", n),
		zap.Float64("total_distance", lp.totalDistance))
	return nil
}

// ExportHistory. accepted fixes newest first
func (lp *LiveProcessor) ExportHistory() []da.Record {
	out := make([]da.Record, 0, lp.history.Len())
	lp.history.ForEachNewestFirst(func(i int, fix da.Fix) bool {
		out = append(out, fix.ToRecord())
		return true
	})
	return out
}

func (lp *LiveProcessor) Rejections() map[RejectReason]int {
	return lp.rejections.snapshot()
}

func (lp *LiveProcessor) Name() string {
	return LIVE_PROCESSOR_NAME
}
