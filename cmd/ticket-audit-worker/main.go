package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/shared/config"
	"github.com/lotonet/banca-limits-engine/internal/shared/db"
	"github.com/lotonet/banca-limits-engine/internal/shared/kafka"
	"github.com/lotonet/banca-limits-engine/internal/shared/logger"
	"github.com/lotonet/banca-limits-engine/internal/ticket-audit/consumer"
	"github.com/lotonet/banca-limits-engine/internal/ticket-audit/repository"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: destino de tickets y consumo acumulado
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka: un reader por tópico, mismo consumer group
	admittedReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicTicketAdmitted, "ticket-audit")
	defer admittedReader.Close()
	cancelledReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicTicketCancelled, "ticket-audit")
	defer cancelledReader.Close()

	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTicketAdmittedDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus del pipeline de auditoría
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_tickets_consumed_total", Help: "eventos consumidos"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_tickets_persisted_total", Help: "tickets persistidos"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_tickets_cancelled_total", Help: "anulaciones procesadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "audit_errors_total", Help: "errores por etapa"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, cancelled, errorsBy)

	proc := &consumer.Processor{
		Log:          log,
		Repo:         repository.NewPostgresRepo(pg),
		Reader:       admittedReader,
		CancelReader: cancelledReader,
		DLQ:          dlqWriter,

		OnConsumed:  func() { consumed.Inc() },
		OnPersist:   func() { persisted.Inc() },
		OnCancelled: func() { cancelled.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas y health check
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("ticket-audit-worker started",
		zap.String("consume", cfg.TopicTicketAdmitted),
		zap.String("cancel", cfg.TopicTicketCancelled),
	)

	go func() {
		if err := proc.RunCancellations(ctx); err != nil && ctx.Err() == nil {
			log.Error("cancellation loop stopped", zap.Error(err))
		}
	}()

	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("ticket-audit-worker stopped")
}
