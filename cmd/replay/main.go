package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"github.com/lintang-b-s/bikestats/pkg/concurrent"
	"github.com/lintang-b-s/bikestats/pkg/config"
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/location"
	"github.com/lintang-b-s/bikestats/pkg/logger"
	"github.com/lintang-b-s/bikestats/pkg/pace"
	"github.com/lintang-b-s/bikestats/pkg/trackio"
	"go.uber.org/zap"
)

var (
	coursePath = flag.String("course", "", "reference course gpx, rides are also matched against it when set")
	accuracy   = flag.Float64("accuracy", 5, "accuracy in meter assigned to every replayed fix")
	window     = flag.Int("window", 0, "average speed window in meter (0 uses stats.window_meters)")
	workers    = flag.Int("workers", runtime.NumCPU(), "rides replayed concurrently")
	configDir  = flag.String("config_dir", "", "directory holding config.yaml (default ./data and .)")
	debug      = flag.Bool("debug", false, "debug logging")
)

type rideSummary struct {
	file   string
	fixes  int
	live   location.Stats
	course *location.Stats
	index  int
	points int
}

func main() {
	flag.Parse()
	logger, err := logger.NewDevelopment(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck // ignore

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay [flags] ride.gpx [ride.gpx ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *window > 0 {
		cfg.WindowMeters = *window
	}

	var course []da.TrackPoint
	if *coursePath != "" {
		course, err = readCourse(*coursePath)
		if err != nil {
			logger.Fatal("read course", zap.String("path", *coursePath), zap.Error(err))
		}
		logger.Info("course loaded", zap.String("path", *coursePath), zap.Int("waypoints", len(course)))
	}

	results := concurrent.Run(context.Background(), *workers, flag.Args(),
		func(ctx context.Context, file string) (rideSummary, error) {
			return replay(file, cfg, course, logger)
		})

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ride\tfixes\tdistance (km)\tavg (km/h)\tpace\tmax (km/h)\tcourse")
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Error("replay failed", zap.String("file", flag.Arg(res.Index)), zap.Error(res.Err))
			continue
		}
		printSummary(tw, res.Value)
	}
	tw.Flush()

	if failed > 0 {
		os.Exit(1)
	}
}

func readCourse(path string) ([]da.TrackPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return trackio.ReadCourseGPX(f)
}

// replay feeds every fix of the ride into a fresh live processor, and a course processor when a course is given.
func replay(file string, cfg config.Config, course []da.TrackPoint, log *zap.Logger) (rideSummary, error) {
	f, err := os.Open(file)
	if err != nil {
		return rideSummary{}, err
	}
	defer f.Close()

	fixes, err := trackio.ReadReplayGPX(f, *accuracy)
	if err != nil {
		return rideSummary{}, err
	}

	rideLog := log.With(zap.String("ride", filepath.Base(file)))
	live := location.NewLiveProcessor(cfg.Live, rideLog)
	var cp *location.CourseProcessor
	if len(course) > 0 {
		cp = location.NewCourseProcessor(cfg.Course, rideLog)
		if err := cp.LoadTrack(course); err != nil {
			return rideSummary{}, err
		}
	}

	for _, fix := range fixes {
		live.AddFix(fix)
		if cp != nil {
			cp.AddFix(fix)
		}
	}

	summary := rideSummary{
		file:  filepath.Base(file),
		fixes: len(fixes),
		live:  location.Snapshot(live, cfg.WindowMeters),
	}
	if cp != nil {
		cs := location.Snapshot(cp, cfg.WindowMeters)
		summary.course = &cs
		summary.index = cp.CurrentIndex()
		summary.points = cp.Track().Len()
	}
	rideLog.Debug("ride replayed", zap.Int("fixes", len(fixes)), zap.Any("rejections", live.Rejections()))
	return summary, nil
}

func printSummary(tw *tabwriter.Writer, s rideSummary) {
	courseCol := "-"
	if s.course != nil {
		courseCol = fmt.Sprintf("%d/%d waypoints, %.2f km, avg %.1f km/h", s.index+1, s.points,
			s.course.TotalDistance/1000, pace.KilometersPerHour(s.course.AverageSpeed))
	}
	fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f\t%s\t%.1f\t%s\n",
		s.file, s.fixes,
		s.live.TotalDistance/1000,
		pace.KilometersPerHour(s.live.AverageSpeed),
		pace.Format(s.live.AverageSpeed),
		pace.KilometersPerHour(s.live.MaxSpeed),
		courseCol,
	)
}
