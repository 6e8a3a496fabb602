package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink exports change events to NATS subjects, one subject per event
// kind. Downstream consumers (durable store writers, notification fanout)
// subscribe independently; the core does not wait for them.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if prefix == "" {
		prefix = "numa"
	}
	return &NATSSink{conn: conn, prefix: prefix}, nil
}

func (s *NATSSink) Write(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.prefix+"."+string(evt.Kind), payload)
}

func (s *NATSSink) Close() {
	s.conn.Close()
}
