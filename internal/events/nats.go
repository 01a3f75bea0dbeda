package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Header names set on every published event.
const (
	HeaderJobID = "Jobs-Job-Id"
	clientName  = "jobline"
)

func connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name(clientName)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON events to NATS subjects. Each message carries
// a unique Nats-Msg-Id so JetStream can drop retried publishes, and lane
// events carry the job id in the Jobs-Job-Id header.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	if k, ok := event.(jobKeyed); ok && k.jobKey() != "" {
		msg.Header.Set(HeaderJobID, k.jobKey())
	}
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered events to the server before closing.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(5 * time.Second)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber consumes raw payloads from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects with unlimited reconnects. Extra options (for
// example disconnect handlers) are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers payloads for topic (NATS wildcards allowed) on the
// returned channel. A slow reader holds messages back in the client's
// pending queue rather than losing them, so ingested jobs survive bursts.
// cancel unsubscribes and closes the channel; it is safe to call twice.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	out := make(chan []byte)
	done := make(chan struct{})
	var (
		mu     sync.RWMutex
		closed bool
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case out <- msg.Data:
		case <-done:
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before messages published on
	// other connections are routed to it.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
			mu.Lock()
			closed = true
			close(out)
			mu.Unlock()
		})
	}
	return out, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
