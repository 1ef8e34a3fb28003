package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Port           int
	Timeout        time.Duration // per request, websocket connections reset it after the upgrade
	UseRateLimit   bool
	RateLimitRPS   float64
	RateLimitBurst int
}

func New(ctx context.Context, handler http.Handler, config Config) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:       config.Timeout,
		WriteTimeout:      config.Timeout + 5*time.Second,
		IdleTimeout:       2 * config.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
