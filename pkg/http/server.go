package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/bikestats/pkg/http/router"
	"github.com/lintang-b-s/bikestats/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/bikestats/pkg/http/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
	g   *errgroup.Group
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use starts the API in the background, Wait returns its error once ctx is done.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	config http_server.Config,
	sessionService controllers.SessionService,
	courseService controllers.CourseService,
) (*Server, error) {
	server, err := http_router.NewAPI(log)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(
			gctx, config,
			sessionService, courseService,
		)
	})
	s.g = g

	return s, nil
}

func (s *Server) Wait() error {
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}

// GracefulShutdown blocks until SIGINT or SIGTERM.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return <-quit
}
