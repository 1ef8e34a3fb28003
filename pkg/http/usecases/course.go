package usecases

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

const MAX_COURSE_NAME_LEN = 64

// CourseLibrary. parsed reference tracks by name, the least recently used course is evicted first
type CourseLibrary struct {
	log     *zap.Logger
	courses *lru.Cache[string, *da.ReferenceTrack]
}

func NewCourseLibrary(log *zap.Logger, size int) (*CourseLibrary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	courses, err := lru.NewWithEvict[string, *da.ReferenceTrack](size, func(name string, _ *da.ReferenceTrack) {
		log.Info("course evicted from library", zap.String("course", name))
	})
	if err != nil {
		return nil, err
	}
	return &CourseLibrary{log: log, courses: courses}, nil
}

func validCourseName(name string) bool {
	return name != "" && len(name) <= MAX_COURSE_NAME_LEN && !strings.ContainsAny(name, "/\\ \t\n")
}

// PutCourse replaces the course stored under name.
func (cl *CourseLibrary) PutCourse(name string, points []da.TrackPoint) (*da.ReferenceTrack, error) {
	if !validCourseName(name) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid course name %q", name)
	}
	track, err := da.NewReferenceTrack(points)
	if err != nil {
		return nil, err
	}
	cl.courses.Add(name, track)
	cl.log.Info("course stored", zap.String("course", name), zap.Int("waypoints", track.Len()),
		zap.Float64("length", track.Length()))
	return track, nil
}

func (cl *CourseLibrary) Get(name string) (*da.ReferenceTrack, error) {
	track, ok := cl.courses.Get(name)
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "course %q not found", name)
	}
	return track, nil
}

func (cl *CourseLibrary) GetCourse(name string) (*da.ReferenceTrack, error) {
	return cl.Get(name)
}

func (cl *CourseLibrary) Names() []string {
	return cl.courses.Keys()
}
