package usecases

import (
	"context"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/session"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"go.uber.org/zap"
)

type SessionService struct {
	log      *zap.Logger
	sessions SessionStore
	courses  CourseStore
}

func NewSessionService(log *zap.Logger, sessions SessionStore, courses CourseStore) *SessionService {
	return &SessionService{
		log:      log,
		sessions: sessions,
		courses:  courses,
	}
}

// CreateSession starts a session. a course session may start with a course from the library.
func (ss *SessionService) CreateSession(ctx context.Context, mode session.Mode, courseName string) (string, error) {
	var track *da.ReferenceTrack
	if courseName != "" {
		if mode != session.ModeCourse {
			return "", util.WrapErrorf(nil, util.ErrBadParamInput, "course %q given for a %s session", courseName, mode)
		}
		var err error
		track, err = ss.courses.Get(courseName)
		if err != nil {
			return "", err
		}
	}

	s := ss.sessions.Create(mode)
	if track != nil {
		if err := s.LoadCourse(ctx, courseName, track.Points()); err != nil {
			_ = ss.sessions.Remove(s.ID())
			return "", err
		}
	}
	return s.ID(), nil
}

func (ss *SessionService) DeleteSession(id string) error {
	return ss.sessions.Remove(id)
}

func (ss *SessionService) ride(id string) (Ride, error) {
	return ss.sessions.Get(id)
}

func (ss *SessionService) AddFix(ctx context.Context, id string, fix da.Fix) (session.Stats, error) {
	r, err := ss.ride(id)
	if err != nil {
		return session.Stats{}, err
	}
	return r.AddFix(ctx, fix)
}

func (ss *SessionService) Stats(ctx context.Context, id string, window int) (session.Stats, error) {
	r, err := ss.ride(id)
	if err != nil {
		return session.Stats{}, err
	}
	return r.Stats(ctx, window)
}

func (ss *SessionService) Clear(ctx context.Context, id string) error {
	r, err := ss.ride(id)
	if err != nil {
		return err
	}
	return r.Clear(ctx)
}

// LoadCourse switches the course of a running course session.
func (ss *SessionService) LoadCourse(ctx context.Context, id, courseName string) error {
	r, err := ss.ride(id)
	if err != nil {
		return err
	}
	track, err := ss.courses.Get(courseName)
	if err != nil {
		return err
	}
	return r.LoadCourse(ctx, courseName, track.Points())
}

func (ss *SessionService) ExportHistory(ctx context.Context, id string) ([]da.Record, error) {
	r, err := ss.ride(id)
	if err != nil {
		return nil, err
	}
	return r.Export(ctx)
}

func (ss *SessionService) ImportHistory(ctx context.Context, id string, records []da.Record) error {
	r, err := ss.ride(id)
	if err != nil {
		return err
	}
	return r.LoadHistory(ctx, records)
}
