package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eva-notify/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger é o banco verificado pelo health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource fornece o estado dos workers
type StatsSource interface {
	Stats() []workers.WorkerStat
}

// Server é o listener opcional de operação: health, stats e métricas
type Server struct {
	db        Pinger
	stats     StatsSource
	startTime time.Time
	logger    *zap.Logger
	http      *http.Server
}

func NewServer(port string, db Pinger, stats StatsSource, logger *zap.Logger) *Server {
	s := &Server{db: db, stats: stats, startTime: time.Now(), logger: logger}
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router monta as rotas
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	api.HandleFunc("/stats", s.statsHandler).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}

// ListenAndServe bloqueia até Shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info("✅ Servidor de operação pronto", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "healthy"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime":    formatDuration(time.Since(s.startTime)),
		"workers":   s.stats.Stats(),
		"timestamp": time.Now().Unix(),
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
