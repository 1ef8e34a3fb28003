package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/bikestats/pkg/config"
	"github.com/lintang-b-s/bikestats/pkg/http"
	http_server "github.com/lintang-b-s/bikestats/pkg/http/server"
	"github.com/lintang-b-s/bikestats/pkg/http/usecases"
	"github.com/lintang-b-s/bikestats/pkg/logger"
	"github.com/lintang-b-s/bikestats/pkg/session"
	"github.com/lintang-b-s/bikestats/pkg/trackio"
	"go.uber.org/zap"
)

const DEFAULT_SESSION_ID = "default"

var (
	configDir = flag.String("config_dir", "", "directory holding config.yaml (default ./data and .)")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck // ignore

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	sessions := session.NewManager(ctx, session.Config{
		Live:         cfg.Live,
		Course:       cfg.Course,
		WindowMeters: cfg.WindowMeters,
	}, logger)

	defaultSession, err := restoreDefaultSession(ctx, sessions, cfg.History.Path, logger)
	if err != nil {
		logger.Fatal("restore default session", zap.Error(err))
	}

	courses, err := usecases.NewCourseLibrary(logger, cfg.Server.CourseCacheSize)
	if err != nil {
		logger.Fatal("create course library", zap.Error(err))
	}
	sessionService := usecases.NewSessionService(logger, sessions, courses)

	api, err := http.NewServer(logger).Use(ctx, logger, http_server.Config{
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		UseRateLimit:   cfg.Server.UseRateLimit,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	}, sessionService, courses)
	if err != nil {
		logger.Fatal("start api", zap.Error(err))
	}

	signal := http.GracefulShutdown()
	logger.Info("bikestats server stopping", zap.String("signal", signal.String()))

	saveDefaultSession(ctx, defaultSession, cfg.History, logger)

	cleanup()
	if err := api.Wait(); err != nil {
		logger.Error("api stopped with error", zap.Error(err))
	}
	sessions.RemoveAll()
	logger.Info("bikestats server stopped")
}

// restoreDefaultSession creates the gps session fed by clients that do not manage sessions,
// with the accepted fixes of the previous run.
func restoreDefaultSession(ctx context.Context, sessions *session.Manager, path string,
	log *zap.Logger) (*session.Session, error) {
	s, err := sessions.CreateWithID(DEFAULT_SESSION_ID, session.ModeGPS)
	if err != nil {
		return nil, err
	}
	records, err := trackio.LoadHistoryFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.LoadHistory(ctx, records); err != nil {
		return nil, err
	}
	log.Info("default session restored", zap.String("path", path), zap.Int("records", len(records)))
	return s, nil
}

func saveDefaultSession(ctx context.Context, s *session.Session, cfg config.HistoryConfig, log *zap.Logger) {
	records, err := s.Export(ctx)
	if err != nil {
		log.Error("export default session", zap.Error(err))
		return
	}
	if err := trackio.SaveHistoryFile(cfg.Path, records, cfg.Compress); err != nil {
		log.Error("save history", zap.String("path", cfg.Path), zap.Error(err))
		return
	}
	log.Info("history saved", zap.String("path", cfg.Path), zap.Int("records", len(records)))
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
