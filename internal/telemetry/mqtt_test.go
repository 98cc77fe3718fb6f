package telemetry

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmorsell/microrail-remote/internal/status"
	"github.com/vmorsell/microrail-remote/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, qos, retained, payload.([]byte)})
	return newFakeToken(p.err)
}

func (p *fakePublisher) messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func TestMirror_Publish(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMirror(zap.NewNop(), pub, "microrail/status")

	s, err := status.Decode([]byte(`{"ssid":"Home","version":"1.2","batVoltage":7.4,"batRate":80,"speed":0,"direction":0}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m.Publish(s)

	msgs := pub.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].topic != "microrail/status" {
		t.Errorf("unexpected topic %q", msgs[0].topic)
	}
	if !msgs[0].retained {
		t.Error("expected retained message")
	}

	got, err := status.Decode(msgs[0].payload)
	if err != nil {
		t.Fatalf("published payload is not a status record: %v", err)
	}
	if status.Text(got.SSID) != "Home" || status.Number(got.BatVoltage) != "7.4" || !got.Stopped() || !got.Forward() {
		t.Errorf("unexpected published status %s", msgs[0].payload)
	}
}

func TestMirror_PublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{err: errors.New("not connected")}
	m := NewMirror(zap.New(core), pub, "microrail/status")

	speed := 5.0
	m.Publish(model.Status{Speed: &speed})

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("failed to publish status").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected publish failure to be logged")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
