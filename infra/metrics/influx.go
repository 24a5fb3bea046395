package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetnav/core/metrics"
	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes fleet points to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.FleetSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTick writes one fleet_tick point.
func (s *InfluxSink) RecordTick(sum coremetrics.TickSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_tick").
		AddTag("component", "fleet").
		AddField("tick", int64(sum.Tick)).
		AddField("agents", sum.Agents).
		AddField("duration_ms", round3(float64(sum.Duration.Microseconds())/1000)).
		AddField("active_conflicts", sum.ActiveConflicts).
		AddField("mean_battery", round3(sum.MeanBattery)).
		SetTime(sum.Time)
	for st, n := range sum.StatusCounts {
		p = p.AddField("agents_"+st.String(), n)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAgentStates writes one agent_state point per agent.
func (s *InfluxSink) RecordAgentStates(states []model.AgentSnapshot) error {
	if len(states) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now()
	points := make([]*write.Point, 0, len(states))
	for _, st := range states {
		points = append(points, write.NewPointWithMeasurement("agent_state").
			AddTag("agent_id", strconv.Itoa(st.ID)).
			AddTag("status", st.Status.String()).
			AddField("battery", round3(st.Battery)).
			AddField("charge_progress", round3(st.ChargeProgress)).
			AddField("x", round3(st.Position[0])).
			AddField("y", round3(st.Position[1])).
			AddField("vertex", st.Current).
			AddField("emergency", st.Emergency).
			SetTime(now))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordConflict writes a conflict point.
func (s *InfluxSink) RecordConflict(ev coremetrics.ConflictEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("conflict").
		AddTag("component", "traffic").
		AddField("message", ev.Message).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
