package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics collects dispatch and compile statistics. A nil *metrics is a
// valid no-op collector.
type metrics struct {
	Dispatches     *prometheus.CounterVec
	DeviceSeconds  *prometheus.HistogramVec
	CompileSeconds prometheus.Histogram
	Sanitized      *prometheus.CounterVec
}

// newMetrics creates the collectors and registers them with reg when it
// is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "beamfield",
				Name:      "dispatch_total",
				Help:      "Kernel dispatches completed, by kernel",
			},
			[]string{"kernel"},
		),
		DeviceSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "beamfield",
				Name:      "dispatch_device_seconds",
				Help:      "Device time per kernel dispatch in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kernel"},
		),
		CompileSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "beamfield",
				Name:      "compile_seconds",
				Help:      "Program build duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		Sanitized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "beamfield",
				Name:      "sanitized_samples_total",
				Help:      "Pressure samples zeroed because the device returned NaN or Inf",
			},
			[]string{"sampler"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Dispatches, m.DeviceSeconds, m.CompileSeconds, m.Sanitized)
	}
	return m
}

func (m *metrics) observeDispatch(kernel string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(kernel).Inc()
	m.DeviceSeconds.WithLabelValues(kernel).Observe(elapsed.Seconds())
}

func (m *metrics) observeCompile(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CompileSeconds.Observe(elapsed.Seconds())
}

func (m *metrics) addSanitized(sampler string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Sanitized.WithLabelValues(sampler).Add(float64(n))
}

// metricsServer exposes a registry over HTTP.
type metricsServer struct {
	srv *http.Server
	log *slog.Logger
}

// serveMetrics starts serving reg on addr in the background.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle(defaultMetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	s := &metricsServer{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: logger,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr, "path", defaultMetricsPath)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return s
}

func (s *metricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownWait)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("metrics server shutdown", "error", err)
	}
}
