package usecases

import (
	"context"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/session"
)

type SessionStore interface {
	Create(mode session.Mode) *session.Session
	Get(id string) (*session.Session, error)
	Remove(id string) error
}

type CourseStore interface {
	Get(name string) (*da.ReferenceTrack, error)
}

// Ride. operations of a single session, implemented by *session.Session
type Ride interface {
	ID() string
	Mode() session.Mode
	AddFix(ctx context.Context, fix da.Fix) (session.Stats, error)
	Stats(ctx context.Context, window int) (session.Stats, error)
	Clear(ctx context.Context) error
	LoadCourse(ctx context.Context, name string, points []da.TrackPoint) error
	Export(ctx context.Context) ([]da.Record, error)
	LoadHistory(ctx context.Context, records []da.Record) error
}

var _ Ride = (*session.Session)(nil)
