package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/api/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
)

type ServerConfig struct {
	Addr string
}

func NewServerConfig(cfg *config.Config) ServerConfig {
	return ServerConfig{Addr: fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)}
}

func RunHTTP(lc fx.Lifecycle, cfg ServerConfig, mux *http.ServeMux, st *service.State) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			st.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			st.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

// Module поднимает HTTP-срез: health, метрики и управление ботом.
func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			service.NewState,
			service.NewHandlers,
			service.NewMux,
			NewServerConfig,
		),
		fx.Invoke(RunHTTP),
	)
}
