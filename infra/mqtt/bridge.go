// Package mqtt bridges the fleet to an MQTT broker: commands come in on
// per-agent topics and acknowledgments, agent states and conflicts go out.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/fleetnav/core/events"
	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/monitoring"
	"github.com/kilianp07/fleetnav/infra/logger"
)

// ErrQueueFull is reported when the service loop lags behind the broker.
var ErrQueueFull = errors.New("command queue full")

const commandBuffer = 64

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Bridge owns the broker connection.
type Bridge struct {
	cli    pahoClient
	cfg    Config
	topics topics
	logger logger.Logger

	commands   chan Command
	maxRetries int
	backoff    time.Duration
}

// NewBridge connects to the broker and subscribes to the command topics.
func NewBridge(cfg Config) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_bridge")
	b := &Bridge{
		cfg:        cfg,
		topics:     topics{prefix: cfg.TopicPrefix},
		logger:     log,
		commands:   make(chan Command, commandBuffer),
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		b.subscribe(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

func (b *Bridge) subscribe(c subscriber) {
	qos := b.cfg.qos("command")
	handlers := map[string]paho.MessageHandler{
		b.topics.spawn(): b.onSpawn,
		b.topics.task():  b.onTask,
		b.topics.drain(): b.onDrain,
	}
	for topic, h := range handlers {
		if token := c.Subscribe(topic, qos, h); token.Wait() && token.Error() != nil {
			b.logger.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
}

// Commands yields decoded commands in arrival order.
func (b *Bridge) Commands() <-chan Command { return b.commands }

func (b *Bridge) onSpawn(_ paho.Client, msg paho.Message) {
	var body struct {
		CommandID string `json:"command_id"`
		Vertex    *int   `json:"vertex"`
	}
	if err := json.Unmarshal(msg.Payload(), &body); err != nil {
		b.logger.Errorf("decode spawn: %v", err)
		return
	}
	if body.Vertex == nil {
		b.logger.Errorf("spawn without vertex on %s", msg.Topic())
		return
	}
	b.enqueue(Command{Kind: CommandSpawn, CommandID: body.CommandID, Vertex: *body.Vertex})
}

func (b *Bridge) onTask(_ paho.Client, msg paho.Message) {
	id, err := b.topics.agentFromTopic(msg.Topic())
	if err != nil {
		b.logger.Errorf("%v", err)
		return
	}
	var body struct {
		CommandID string `json:"command_id"`
		Target    *int   `json:"target"`
	}
	if err := json.Unmarshal(msg.Payload(), &body); err != nil {
		b.logger.Errorf("decode task: %v", err)
		return
	}
	if body.Target == nil {
		b.logger.Errorf("task without target on %s", msg.Topic())
		return
	}
	b.enqueue(Command{Kind: CommandTask, CommandID: body.CommandID, AgentID: id, Target: *body.Target})
}

func (b *Bridge) onDrain(_ paho.Client, msg paho.Message) {
	id, err := b.topics.agentFromTopic(msg.Topic())
	if err != nil {
		b.logger.Errorf("%v", err)
		return
	}
	var body struct {
		CommandID string  `json:"command_id"`
		Amount    float64 `json:"amount"`
	}
	if err := json.Unmarshal(msg.Payload(), &body); err != nil {
		b.logger.Errorf("decode drain: %v", err)
		return
	}
	b.enqueue(Command{Kind: CommandDrain, CommandID: body.CommandID, AgentID: id, Amount: body.Amount})
}

func (b *Bridge) enqueue(cmd Command) {
	if cmd.CommandID == "" {
		cmd.CommandID = uuid.NewString()
	}
	select {
	case b.commands <- cmd:
		b.logger.Debugf("queued %s command %s", cmd.Kind, cmd.CommandID)
	default:
		b.logger.Warnf("dropping %s command %s: %v", cmd.Kind, cmd.CommandID, ErrQueueFull)
		_ = b.PublishAck(cmd, Ack{CommandID: cmd.CommandID, AgentID: cmd.AgentID, Reason: ErrQueueFull.Error()})
	}
}

// PublishAck answers cmd. Failed spawns have no agent yet and are answered on
// <prefix>/spawn/ack.
func (b *Bridge) PublishAck(cmd Command, ack Ack) error {
	topic := b.topics.ack(ack.AgentID)
	if cmd.Kind == CommandSpawn && !ack.Success {
		topic = b.topics.spawnAck()
	}
	return b.publish(topic, b.cfg.qos("ack"), ack, map[string]string{"command_id": ack.CommandID})
}

// PublishStates sends one state message per agent.
func (b *Bridge) PublishStates(snaps []model.AgentSnapshot) error {
	var errs []error
	for _, s := range snaps {
		if err := b.publish(b.topics.state(s.ID), b.cfg.qos("state"), s, map[string]string{"agent_id": fmt.Sprint(s.ID)}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishConflict sends one conflict message.
func (b *Bridge) PublishConflict(c events.Conflict) error {
	return b.publish(b.topics.conflicts(), b.cfg.qos("conflict"), c, nil)
}

// ForwardConflicts publishes every conflict read from ch until ctx is done or
// ch is closed.
func (b *Bridge) ForwardConflicts(ctx context.Context, ch <-chan events.Conflict) {
	defer monitoring.Recover()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			_ = b.PublishConflict(c)
		}
	}
}

// ForwardStates publishes the agent states carried by tick events, at most
// once per state interval, until ctx is done or ch is closed.
func (b *Bridge) ForwardStates(ctx context.Context, ch <-chan events.Tick) {
	defer monitoring.Recover()
	interval := time.Duration(b.cfg.StateIntervalMS) * time.Millisecond
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			if now := time.Now(); last.IsZero() || now.Sub(last) >= interval {
				last = now
				_ = b.PublishStates(t.Snapshots)
			}
		}
	}
}

func (b *Bridge) publish(topic string, qos byte, v any, tags map[string]string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		token := b.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			b.logger.Debugf("published %s", topic)
			return nil
		}
		b.logger.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, publishErr)
		if attempt < b.maxRetries {
			time.Sleep(b.backoff * time.Duration(1<<attempt))
		}
	}
	all := map[string]string{"module": "mqtt", "topic": topic}
	for k, v := range tags {
		all[k] = v
	}
	monitoring.CaptureException(publishErr, all)
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (b *Bridge) Disconnect() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
