package controllers

import (
	"context"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/session"
)

type SessionService interface {
	CreateSession(ctx context.Context, mode session.Mode, courseName string) (string, error)
	DeleteSession(id string) error
	AddFix(ctx context.Context, id string, fix da.Fix) (session.Stats, error)
	Stats(ctx context.Context, id string, window int) (session.Stats, error)
	Clear(ctx context.Context, id string) error
	LoadCourse(ctx context.Context, id, courseName string) error
	ExportHistory(ctx context.Context, id string) ([]da.Record, error)
	ImportHistory(ctx context.Context, id string, records []da.Record) error
}

type CourseService interface {
	PutCourse(name string, points []da.TrackPoint) (*da.ReferenceTrack, error)
	GetCourse(name string) (*da.ReferenceTrack, error)
	Names() []string
}
