package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	lcache "github.com/lotonet/banca-limits-engine/internal/limits-engine/cache"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/coordinator"
	lhttp "github.com/lotonet/banca-limits-engine/internal/limits-engine/http"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/producer"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/pubsub"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/repo"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/resolver"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
	sharedcache "github.com/lotonet/banca-limits-engine/internal/shared/cache"
	"github.com/lotonet/banca-limits-engine/internal/shared/config"
	"github.com/lotonet/banca-limits-engine/internal/shared/db"
	"github.com/lotonet/banca-limits-engine/internal/shared/kafka"
	"github.com/lotonet/banca-limits-engine/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: fuente de verdad de reglas y consumo acumulado
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: pub/sub hacia los terminales + cache de bloqueados
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Carga inicial: reglas activas del día, con el consumo ya aplicado
	limitRepo := repo.NewPostgres(pg)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	limits, err := limitRepo.LoadActiveLimits(loadCtx, time.Now())
	loadCancel()
	if err != nil {
		log.Fatal("load limits", zap.Error(err))
	}

	st := store.New()
	st.Load(limits)
	log.Info("limits loaded", zap.Int("count", len(limits)))

	blockedCache := lcache.New(redisClient)

	// Cada delta aplicado refresca el set de bloqueados del sorteo.
	st.OnChange = func(l store.Limit) {
		if l.Number == "" {
			return // un límite general no es enumerable como números
		}
		go func(drawID int64) {
			cctx, ccancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer ccancel()
			numbers := st.RefreshBlockedSet(drawID)
			if err := blockedCache.SetBlocked(cctx, drawID, numbers, 30*time.Second); err != nil {
				log.Warn("blocked cache refresh failed", zap.Int64("drawId", drawID), zap.Error(err))
			}
		}(l.DrawID)
	}

	// Kafka writers: auditoría de tickets y rastro de limit updates
	admittedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTicketAdmitted)
	defer admittedWriter.Close()
	cancelledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTicketCancelled)
	defer cancelledWriter.Close()
	updatesWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLimitUpdates)
	defer updatesWriter.Close()

	pub := &producer.Publisher{
		AdmittedWriter:  admittedWriter,
		CancelledWriter: cancelledWriter,
		UpdatesWriter:   updatesWriter,
		Broadcaster:     pubsub.NewRedisBroadcaster(redisClient),
		Channel:         cfg.RedisPubSubChannel,
	}

	// Métricas Prometheus de admisión
	linesAdmitted := prometheus.NewCounter(prometheus.CounterOpts{Name: "limits_lines_admitted_total", Help: "líneas admitidas"})
	linesRejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "limits_lines_rejected_total", Help: "líneas rechazadas por razón"}, []string{"reason"})
	tickets := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "limits_tickets_total", Help: "tickets por estado"}, []string{"status"})
	prometheus.MustRegister(linesAdmitted, linesRejected, tickets)

	res := &resolver.Resolver{Store: st, Log: log, AllowPartial: cfg.AllowPartial}
	coord := &coordinator.Coordinator{
		Resolver:  res,
		Log:       log,
		Mode:      coordinator.Mode(cfg.AdmissionMode),
		Publisher: pub,

		OnLineAdmitted: func() { linesAdmitted.Inc() },
		OnLineRejected: func(reason string) { linesRejected.WithLabelValues(reason).Inc() },
		OnTicket:       func(status string) { tickets.WithLabelValues(status).Inc() },
	}

	// HTTP público
	api := lhttp.NewServer(log, coord, st, blockedCache, limitRepo)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		hctx, hcancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer hcancel()
		if err := pg.PingContext(hctx); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(hctx).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	go func() {
		<-ctx.Done()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = apiSrv.Shutdown(shCtx)
	}()

	log.Info("limits-engine listening",
		zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)),
		zap.String("mode", cfg.AdmissionMode),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("limits-engine stopped")
}
