package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/dto"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
	"github.com/lotonet/banca-limits-engine/internal/shared/config"
	"github.com/lotonet/banca-limits-engine/internal/shared/logger"
	"github.com/lotonet/banca-limits-engine/internal/shared/metrics"
)

// Catálogo fijo de sorteos simulados
var drawCatalog = []int64{101, 102, 103, 104}

var betTypes = []string{store.BetDirecto, store.BetPale, store.BetTripleta, store.BetCash3Straight}

// Métricas Prometheus del simulador
var (
	ticketsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_tickets_sent_total",
		Help: "Tickets enviados al motor",
	})
	ticketsByStatus = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_tickets_result_total",
		Help: "Resultado de admisión por estado",
	}, []string{"status"})
	sendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_send_errors_total",
		Help: "Errores de envío HTTP",
	})
)

// randomLine genera una jugada en notación corta: la mayoría son
// números planos, el resto usa generadores.
func randomLine() dto.LineInput {
	ln := dto.LineInput{
		AmountCents: int64((rand.Intn(20) + 1) * 500), // 5.00 a 100.00
		BetType:     betTypes[rand.Intn(len(betTypes))],
	}
	switch rand.Intn(10) {
	case 0: // combinaciones: 123q
		ln.RawInput = fmt.Sprintf("%03dq", rand.Intn(1000))
		ln.Generator = "combinations"
	case 1: // pares idénticos: 33d66
		a, b := rand.Intn(8)+1, rand.Intn(9)+1
		if b <= a {
			b = a + 1
		}
		ln.RawInput = fmt.Sprintf("%d%dd%d%d", a, a, b, b)
		ln.Generator = "sequence_pairs"
	case 2: // serie +100: 123-10
		ln.RawInput = fmt.Sprintf("1%02d-10", rand.Intn(100))
		ln.Generator = "plus_100"
	default:
		ln.RawInput = fmt.Sprintf("%02d", rand.Intn(100))
		ln.Generator = "none"
	}
	return ln
}

func randomTicket() dto.SubmitTicketRequest {
	req := dto.SubmitTicketRequest{
		BancaID: int64(rand.Intn(50) + 1),
		ZoneID:  int64(rand.Intn(5) + 1),
		GroupID: int64(rand.Intn(3) + 1),
	}
	sel := dto.DrawSelection{DrawID: drawCatalog[rand.Intn(len(drawCatalog))]}
	for i := 0; i < rand.Intn(4)+1; i++ {
		sel.Lines = append(sel.Lines, randomLine())
	}
	req.DrawSelections = append(req.DrawSelections, sel)
	return req
}

func sendTicket(ctx context.Context, engineURL string, req dto.SubmitTicketRequest) (string, error) {
	body, _ := json.Marshal(req)
	hreq, _ := http.NewRequestWithContext(ctx, http.MethodPost, engineURL+"/tickets", bytes.NewReader(body))
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(hreq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("engine http %s", resp.Status)
	}

	var out dto.SubmitTicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	rand.Seed(time.Now().UnixNano())

	prometheus.MustRegister(ticketsSent, ticketsByStatus, sendErrors)

	// Servidor de métricas
	metrics.StartMetricsServer(cfg.MetricsPort, func(_ context.Context) error { return nil })
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("terminal simulator running", zap.String("engine", cfg.EngineURL))

	// Envía un ticket aleatorio cada 2 segundos
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		req := randomTicket()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		status, err := sendTicket(ctx, cfg.EngineURL, req)
		cancel()
		if err != nil {
			sendErrors.Inc()
			log.Warn("ticket send failed", zap.Error(err))
			continue
		}
		ticketsSent.Inc()
		ticketsByStatus.WithLabelValues(status).Inc()
		log.Debug("ticket result", zap.String("status", status))
	}
}
