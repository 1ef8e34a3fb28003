package session

import (
	"context"
	"sync"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/geo"
	"github.com/lintang-b-s/bikestats/pkg/location"
	"github.com/lintang-b-s/bikestats/pkg/pace"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeGPS    Mode = "gps"
	ModeCourse Mode = "course"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGPS, "":
		return ModeGPS, nil
	case ModeCourse:
		return ModeCourse, nil
	}
	return "", util.WrapErrorf(nil, util.ErrBadParamInput, "unknown mode %q", s)
}

type Config struct {
	Live         location.LiveConfig
	Course       location.CourseConfig
	WindowMeters int
}

func DefaultConfig() Config {
	return Config{
		Live:         location.DefaultLiveConfig(),
		Course:       location.DefaultCourseConfig(),
		WindowMeters: 300,
	}
}

/*
Session. one ride. the processor is owned by the goroutine started with Run,
every exported method posts a closure to it and waits, so fixes and queries are applied in arrival order.
*/
type Session struct {
	id   string
	mode Mode
	cfg  Config
	log  *zap.Logger

	proc       location.Processor
	course     *location.CourseProcessor // nil in gps mode
	courseName string

	reqs      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(id string, mode Mode, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", id), zap.String("mode", string(mode)))

	s := &Session{
		id:   id,
		mode: mode,
		cfg:  cfg,
		log:  log,
		reqs: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	if mode == ModeCourse {
		s.course = location.NewCourseProcessor(cfg.Course, log)
		s.proc = s.course
	} else {
		s.proc = location.NewLiveProcessor(cfg.Live, log)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Mode() Mode {
	return s.mode
}

// Run serves requests until ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	s.log.Debug("session started")
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("session context done")
			return
		case <-s.quit:
			s.log.Debug("session closed")
			return
		case fn := <-s.reqs:
			fn()
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// do runs fn on the session goroutine. ctx only bounds the wait for the goroutine to take fn:
// once taken, fn writes into the caller's variables, so do waits for it to return.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	req := func() {
		defer close(finished)
		fn()
	}

	select {
	case s.reqs <- req:
	case <-s.done:
		return util.WrapErrorf(nil, util.ErrNotFound, "session %s is closed", s.id)
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

// AddFix feeds one fix and returns the statistics right after it.
func (s *Session) AddFix(ctx context.Context, fix da.Fix) (Stats, error) {
	var stats Stats
	err := s.do(ctx, func() {
		s.proc.AddFix(fix)
		stats = s.snapshot(s.cfg.WindowMeters)
	})
	return stats, err
}

// Stats. window <= 0 uses the configured window
func (s *Session) Stats(ctx context.Context, window int) (Stats, error) {
	if window <= 0 {
		window = s.cfg.WindowMeters
	}
	var stats Stats
	err := s.do(ctx, func() {
		stats = s.snapshot(window)
	})
	return stats, err
}

func (s *Session) Clear(ctx context.Context) error {
	return s.do(ctx, func() {
		s.proc.Clear()
	})
}

// LoadCourse replaces the reference track of a course session, progress starts over.
func (s *Session) LoadCourse(ctx context.Context, name string, points []da.TrackPoint) error {
	if s.course == nil {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "session %s is not a course session", s.id)
	}
	var loadErr error
	err := s.do(ctx, func() {
		loadErr = s.course.LoadTrack(points)
		if loadErr == nil {
			s.courseName = name
		}
	})
	if err != nil {
		return err
	}
	return loadErr
}

// Export. history records newest first
func (s *Session) Export(ctx context.Context) ([]da.Record, error) {
	var records []da.Record
	err := s.do(ctx, func() {
		records = s.proc.ExportHistory()
	})
	return records, err
}

func (s *Session) LoadHistory(ctx context.Context, records []da.Record) error {
	var loadErr error
	err := s.do(ctx, func() {
		loadErr = s.proc.LoadHistory(records)
	})
	if err != nil {
		return err
	}
	return loadErr
}

// CourseStats. position on the loaded course
type CourseStats struct {
	Name              string          `json:"name"`
	State             string          `json:"state"`
	Index             int             `json:"index"`
	Waypoints         int             `json:"waypoints"`
	Progress          float64         `json:"progress"`
	RemainingDistance float64         `json:"remaining_distance"`
	Bearing           float64         `json:"bearing"`
	OffCourseDistance *float64        `json:"off_course_distance,omitempty"`
	Snapped           *geo.Coordinate `json:"snapped,omitempty"`
}

type Stats struct {
	location.Stats
	SessionID   string         `json:"session_id"`
	AveragePace string         `json:"average_pace"`
	Rejections  map[string]int `json:"rejections"`
	Course      *CourseStats   `json:"course,omitempty"`
}

func (s *Session) snapshot(window int) Stats {
	stats := Stats{
		Stats:      location.Snapshot(s.proc, window),
		SessionID:  s.id,
		Rejections: make(map[string]int),
	}
	stats.AveragePace = pace.Format(stats.AverageSpeed)
	for reason, n := range s.proc.Rejections() {
		stats.Rejections[reason.String()] = n
	}

	if s.course == nil || s.course.State() == location.Unloaded {
		return stats
	}
	cs := &CourseStats{
		Name:              s.courseName,
		State:             s.course.State().String(),
		Index:             s.course.CurrentIndex(),
		Waypoints:         s.course.Track().Len(),
		Progress:          s.course.Progress(),
		RemainingDistance: s.course.RemainingDistance(),
		Bearing:           s.course.Bearing(),
	}
	if off, ok := s.course.OffCourseDistance(); ok {
		cs.OffCourseDistance = &off
	}
	if snapped, ok := s.course.SnappedPosition(); ok {
		cs.Snapped = &snapped
	}
	stats.Course = cs
	return stats
}
