package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lintang-b-s/bikestats/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/bikestats/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/bikestats/pkg/http/server"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/mailru/easygo/netpoll"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "net/http/pprof"
)

type API struct {
	log            *zap.Logger
	ctx            context.Context
	hub            *controllers.Hub
	poller         netpoll.Poller
	sessionService controllers.SessionService
}

// NewAPI. websocket streams are read through an epoll (kqueue on bsd) poller instead of a goroutine per connection
func NewAPI(log *zap.Logger) (*API, error) {
	poller, err := netpoll.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{log: log, ctx: context.Background(), poller: poller}, nil
}

//	@title			bikestats API
//	@version		1.0
//	@description	live cycling statistics: distance, speed and average speed from a stream of gps fixes, free ride or along a course.

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(
	ctx context.Context,
	config http_server.Config,

	sessionService controllers.SessionService,
	courseService controllers.CourseService,
) http.Handler {
	api.ctx = ctx
	api.sessionService = sessionService
	api.hub = controllers.NewHub(sessionService)

	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	router.GET("/ws/sessions/:id", api.serveWebsocket)

	group := router_helper.NewRouteGroup(router, "/api")

	statsRoutes := controllers.New(sessionService, courseService, api.log)

	statsRoutes.Routes(group)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "the requested resource could not be found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("the %s method is not supported for this resource", r.Method))
	})

	var mwChain []alice.Constructor
	if config.UseRateLimit {
		mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
			RealIP, Heartbeat("healthz"), Logger(api.log), Labels, Limit(config.RateLimitRPS, config.RateLimitBurst))
	} else {
		mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
			RealIP, Heartbeat("healthz"), Logger(api.log), Labels)
	}
	return alice.New(mwChain...).Then(router)
}

// Run serves the API until ctx is done, then closes the websocket streams and shuts the server down.
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,

	sessionService controllers.SessionService,
	courseService controllers.CourseService,
) error {
	api.log.Info("Run httprouter API")

	handler := api.Handler(ctx, config, sessionService, courseService)
	srv := http_server.New(ctx, handler, config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		api.hub.RemoveAllUser()
		return err

	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		api.hub.RemoveAllUser()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
