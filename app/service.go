// Package app wires configuration, infrastructure and the fleet manager into
// a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	apifleet "github.com/kilianp07/fleetnav/api/fleet"
	"github.com/kilianp07/fleetnav/config"
	coreeventlog "github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/events"
	"github.com/kilianp07/fleetnav/core/fleet"
	coremetrics "github.com/kilianp07/fleetnav/core/metrics"
	coremon "github.com/kilianp07/fleetnav/core/monitoring"
	"github.com/kilianp07/fleetnav/core/traffic"
	"github.com/kilianp07/fleetnav/infra/eventlog"
	"github.com/kilianp07/fleetnav/infra/graphfile"
	"github.com/kilianp07/fleetnav/infra/logger"
	"github.com/kilianp07/fleetnav/infra/metrics"
	"github.com/kilianp07/fleetnav/infra/monitoring"
	"github.com/kilianp07/fleetnav/infra/mqtt"
	"github.com/kilianp07/fleetnav/internal/eventbus"
)

// Service runs the tick loop and the outer surfaces of one fleet.
type Service struct {
	Manager *fleet.Manager

	cfg       *config.Config
	store     coreeventlog.Store
	sink      coremetrics.FleetSink
	bridge    *mqtt.Bridge
	conflicts *eventbus.Bus[events.Conflict]
	ticks     *eventbus.Bus[events.Tick]
	api       *http.Server
	apiAddr   chan net.Addr
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	g, err := graphfile.Load(cfg.Graph.Path, cfg.Graph.Level)
	if err != nil {
		return nil, err
	}
	store, err := eventlog.New(cfg.EventLog)
	if err != nil {
		return nil, fmt.Errorf("event log: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		store:     store,
		sink:      sink,
		conflicts: eventbus.New[events.Conflict](eventbus.DefaultBuffer),
		ticks:     eventbus.New[events.Tick](eventbus.DefaultBuffer),
		apiAddr:   make(chan net.Addr, 1),
		log:       logg,
	}

	sinks := fleet.MultiSink{fleet.LoggerSink{Log: logger.New("agent")}}
	if store != nil {
		sinks = append(sinks, fleet.StoreSink{Store: store})
	}
	m, err := fleet.NewManager(g, cfg.Fleet.ToFleetConfig(),
		fleet.WithLogger(logger.New("fleet")),
		fleet.WithEventSink(sinks),
		fleet.WithMetrics(sink),
		fleet.WithParallel(cfg.Fleet.Parallel),
		fleet.WithConflictHook(func(c traffic.Conflict) {
			s.conflicts.Publish(events.Conflict{Time: c.Time, Message: c.Message})
		}),
	)
	if err != nil {
		_ = s.closeStores()
		return nil, err
	}
	s.Manager = m
	for _, v := range cfg.Fleet.Spawn {
		if _, err := m.Spawn(v); err != nil {
			_ = s.closeStores()
			return nil, err
		}
	}

	if cfg.MQTT.Enabled() {
		b, err := mqtt.NewBridge(cfg.MQTT)
		if err != nil {
			_ = s.closeStores()
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		s.bridge = b
	}
	s.api = &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           apifleet.NewHandler(m, store, cfg.API.Token),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logg.Infof("fleet ready: %d vertices, %d agents", g.Len(), m.Len())
	return s, nil
}

// Run ticks the fleet every fleet.tick_period and serves the API until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()

	go s.serveAPI(ctx)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.bridge != nil {
		go s.bridge.ForwardConflicts(ctx, s.conflicts.Subscribe())
		go s.bridge.ForwardStates(ctx, s.ticks.Subscribe())
	}

	ticker := time.NewTicker(s.cfg.Fleet.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Step applies the queued remote commands and runs one tick.
func (s *Service) Step(ctx context.Context) error {
	s.applyCommands()
	start := time.Now()
	if err := s.Manager.Tick(ctx); err != nil {
		return err
	}
	s.ticks.Publish(events.Tick{
		Number:    s.Manager.TickCount(),
		Duration:  time.Since(start),
		Snapshots: s.Manager.Snapshots(),
	})
	return nil
}

func (s *Service) applyCommands() {
	if s.bridge == nil {
		return
	}
	for {
		select {
		case cmd := <-s.bridge.Commands():
			ack := cmd.Apply(s.Manager)
			s.log.Debugf("command %s %s: success=%t reason=%s", cmd.Kind, cmd.CommandID, ack.Success, ack.Reason)
			if err := s.bridge.PublishAck(cmd, ack); err != nil {
				s.log.Errorf("ack %s: %v", cmd.CommandID, err)
			}
		default:
			return
		}
	}
}

func (s *Service) serveAPI(ctx context.Context) {
	defer coremon.Recover()
	ln, err := net.Listen("tcp", s.api.Addr)
	if err != nil {
		s.log.Errorf("api listen: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "api"})
		return
	}
	s.apiAddr <- ln.Addr()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.api.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", ln.Addr())
	if err := s.api.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Errorf("api: %v", err)
	}
}

// APIAddr blocks until the API listener is bound or ctx is done.
func (s *Service) APIAddr(ctx context.Context) (net.Addr, error) {
	select {
	case a := <-s.apiAddr:
		s.apiAddr <- a
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.bridge != nil {
		s.bridge.Disconnect()
	}
	s.conflicts.Close()
	s.ticks.Close()
	err := s.closeStores()
	coremon.Flush(2 * time.Second)
	return err
}

func (s *Service) closeStores() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}
