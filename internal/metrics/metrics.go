// Package metrics exports connection activity from the bus as Prometheus
// collectors.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/realtime"
	"github.com/matheus3301/rtlink/internal/retention"
	"github.com/matheus3301/rtlink/internal/status"
)

const namespace = "rtlink"

var states = []status.State{status.Disconnected, status.Connecting, status.Connected, status.ReconnectPending}

// Metrics holds the collectors and the bus subscriber feeding them.
type Metrics struct {
	registry *prometheus.Registry
	bus      *bus.Bus
	logger   *zap.Logger

	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	inbound     *prometheus.CounterVec
	outbound    *prometheus.CounterVec
	pruned      prometheus.Counter

	cancel context.CancelFunc
	done   chan struct{}
	server *http.Server
}

// New builds the collectors on a private registry. onlinePeers, when non-nil,
// backs a gauge of peers believed online.
func New(b *bus.Bus, onlinePeers func() int, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bus:      b,
		logger:   logger.Named("metrics"),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Connection state transitions.",
		}, []string{"from", "to"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_attempts_total",
			Help:      "Failed connection attempts by outcome (retry or exhausted).",
		}, []string{"outcome"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound server events by kind.",
		}, []string{"kind"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_signals_total",
			Help:      "Outbound signals accepted by the transport, by event.",
		}, []string{"event"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_pruned_total",
			Help:      "Journal entries removed by retention.",
		}),
	}

	m.registry.MustRegister(
		m.state, m.transitions, m.attempts, m.inbound, m.outbound, m.pruned,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_dropped_total",
			Help:      "Bus deliveries skipped because a subscriber was full.",
		}, func() float64 { return float64(b.Dropped()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if onlinePeers != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_peers",
			Help:      "Peers currently believed online.",
		}, func() float64 { return float64(onlinePeers()) }))
	}
	m.setState(status.Disconnected)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Start subscribes to the bus until ctx ends or Stop is called.
func (m *Metrics) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	ch, unsub := m.bus.Subscribe("", 512)

	go func() {
		defer close(m.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				m.Observe(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the subscriber and shuts the HTTP server down if one is running.
func (m *Metrics) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

// Serve exposes /metrics on addr in the background.
func (m *Metrics) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	m.logger.Info("metrics listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Observe folds one bus event into the collectors.
func (m *Metrics) Observe(evt bus.Event) {
	switch {
	case evt.Kind == bus.KindStateChanged:
		if c, ok := evt.Payload.(status.StatusChange); ok {
			m.transitions.WithLabelValues(string(c.From), string(c.To)).Inc()
			m.setState(c.To)
		}
	case evt.Kind == bus.KindAttemptFailed:
		if f, ok := evt.Payload.(realtime.AttemptFailure); ok {
			outcome := "retry"
			if f.Final {
				outcome = "exhausted"
			}
			m.attempts.WithLabelValues(outcome).Inc()
		}
	case evt.Kind == bus.KindSignalSent:
		if s, ok := evt.Payload.(realtime.SignalSent); ok {
			m.outbound.WithLabelValues(s.Event).Inc()
		}
	case evt.Kind == bus.KindJournalPruned:
		if p, ok := evt.Payload.(retention.Pruned); ok {
			m.pruned.Add(float64(p.Removed))
		}
	case strings.HasPrefix(evt.Kind, bus.KindInboundPrefix):
		m.inbound.WithLabelValues(strings.TrimPrefix(evt.Kind, bus.KindInboundPrefix)).Inc()
	}
}

func (m *Metrics) setState(cur status.State) {
	for _, s := range states {
		v := 0.0
		if s == cur {
			v = 1
		}
		m.state.WithLabelValues(string(s)).Set(v)
	}
}
