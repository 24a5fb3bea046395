//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMosquitto runs an anonymous broker and returns its URL.
func startMosquitto(t *testing.T) string {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestBridgeRoundTrip(t *testing.T) {
	broker := startMosquitto(t)

	var b *Bridge
	var err error
	for i := 0; i < 5; i++ {
		b, err = NewBridge(Config{Broker: broker, ClientID: "bridge"})
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}
	defer b.Disconnect()

	peer := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("peer"))
	if tok := peer.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("peer connect: %v", tok.Error())
	}
	defer peer.Disconnect(100)

	acks := make(chan Ack, 1)
	if tok := peer.Subscribe("fleet/agents/2/ack", 1, func(_ paho.Client, m paho.Message) {
		var a Ack
		if json.Unmarshal(m.Payload(), &a) == nil {
			acks <- a
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("peer subscribe: %v", tok.Error())
	}

	// The bridge subscribes in OnConnect; give the broker a moment to register it.
	time.Sleep(200 * time.Millisecond)
	if tok := peer.Publish("fleet/agents/2/task", 1, false, `{"command_id":"it-1","target":5}`); tok.Wait() && tok.Error() != nil {
		t.Fatalf("peer publish: %v", tok.Error())
	}

	var cmd Command
	select {
	case cmd = <-b.Commands():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for command")
	}
	if cmd.Kind != CommandTask || cmd.AgentID != 2 || cmd.Target != 5 || cmd.CommandID != "it-1" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	if err := b.PublishAck(cmd, Ack{CommandID: cmd.CommandID, AgentID: cmd.AgentID, Success: true, Reason: "task assigned"}); err != nil {
		t.Fatalf("ack: %v", err)
	}
	select {
	case a := <-acks:
		if !a.Success || a.CommandID != "it-1" {
			t.Fatalf("unexpected ack %+v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for ack")
	}
}
