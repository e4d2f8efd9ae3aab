package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-poll/poll"
)

const namespace = "serialmon"

// Helper holds the counters of one serialmon run on a private registry.
type Helper struct {
	registry *prometheus.Registry

	Waits        prometheus.Counter
	Events       *prometheus.CounterVec
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	WouldBlock   *prometheus.CounterVec
	Messages     prometheus.Counter
}

// New registers the serialmon counters and the Go and process collectors.
func New() *Helper {
	h := &Helper{
		registry: prometheus.NewRegistry(),
		Waits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waits_total",
			Help:      "Poll.Wait calls that returned.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Readiness events dispatched, by source and readiness kind.",
		}, []string{"source", "kind"}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes read from the serial port.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to the serial port.",
		}),
		WouldBlock: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "would_block_total",
			Help:      "Reads and writes that stopped on would-block.",
		}, []string{"op"}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_messages_total",
			Help:      "Payloads received through notifiers.",
		}),
	}
	h.registry.MustRegister(
		h.Waits,
		h.Events,
		h.BytesRead,
		h.BytesWritten,
		h.WouldBlock,
		h.Messages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return h
}

// Observe counts one event of the named source.
func (h *Helper) Observe(source string, ev poll.Event) {
	if ev.IsReadable() {
		h.Events.WithLabelValues(source, "readable").Inc()
	}
	if ev.IsWritable() {
		h.Events.WithLabelValues(source, "writable").Inc()
	}
}

// Registry returns the registry the counters live on.
func (h *Helper) Registry() *prometheus.Registry { return h.registry }

// Handler serves the registry in the Prometheus exposition format.
func (h *Helper) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned function is called.
func (h *Helper) Serve(addr string, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// StartPush pushes the registry to a Prometheus push gateway every interval
// until the returned function is called.
func (h *Helper) StartPush(url, job string, interval time.Duration, logger *zap.Logger) (stop func()) {
	pusher := push.New(url, job).Gatherer(h.registry)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := pusher.Add(); err != nil {
					logger.Warn("prometheus push failed", zap.String("url", url), zap.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
