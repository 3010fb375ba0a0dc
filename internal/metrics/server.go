package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/protocol"
)

// shutdownTimeout bounds graceful shutdown of the exporter
const shutdownTimeout = 5 * time.Second

// statusResponse is served on /status
type statusResponse struct {
	Online  bool             `json:"online"`
	Updated *time.Time       `json:"updated,omitempty"`
	Error   string           `json:"error,omitempty"`
	Status  *protocol.Report `json:"status,omitempty"`
}

// Router serves the exporter endpoints:
//
//	GET /metrics   Prometheus text format
//	GET /status    last status report as JSON
//	GET /healthz   200 while the last poll succeeded, 503 otherwise
func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/status", c.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", c.handleHealth).Methods(http.MethodGet)
	return r
}

func (c *Collector) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status, updated, err := c.Snapshot()

	resp := statusResponse{Online: status != nil && err == nil}
	if status != nil {
		report := status.Report()
		resp.Status = &report
		resp.Updated = &updated
	}
	if err != nil {
		resp.Error = err.Error()
	}

	code := http.StatusOK
	if status == nil {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (c *Collector) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, _, err := c.Snapshot()
	if status == nil || err != nil {
		http.Error(w, "fridge offline", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (c *Collector) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return c.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener
func (c *Collector) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:      c.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logging.Info("Exporter listening", zap.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("Shutting down exporter...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Exporter shutdown timeout, forcing close", zap.Error(err))
			return srv.Close()
		}
		return nil
	}
}
