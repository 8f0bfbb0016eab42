package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	sharedcache "github.com/lotonet/banca-limits-engine/internal/shared/cache"
	"github.com/lotonet/banca-limits-engine/internal/shared/config"
	"github.com/lotonet/banca-limits-engine/internal/shared/logger"
	"github.com/lotonet/banca-limits-engine/internal/shared/metrics"
	"github.com/lotonet/banca-limits-engine/internal/terminal-gateway/ws"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Redis: el gateway escucha el canal de limit updates del motor
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hub WebSocket de terminales; origen abierto, el POC corre en LAN
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, hub, cfg.RedisPubSubChannel)

	engine := rp(cfg.EngineURL)

	mux := http.NewServeMux()

	// WebSocket de terminales: subscribe/unsubscribe por sorteo
	mux.HandleFunc("/ws", hub.HandleWS)

	// API del motor (ej.: /api/tickets -> limits-engine)
	mux.Handle("/api/", http.StripPrefix("/api", engine))

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: withCORS(mux)}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("terminal-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("engine", cfg.EngineURL),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
	log.Info("terminal-gateway stopped")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
